// Package ingestion turns uploaded study material into indexed chunks:
// extraction, cleaning, chunking, and the hand-off to the vector index.
package ingestion

import (
	"path/filepath"
	"strings"
)

// Format enumerates the supported study material formats.
type Format string

const (
	// FormatUnknown represents an unsupported or undetected format.
	FormatUnknown Format = ""
	// FormatPDF represents PDF documents.
	FormatPDF Format = "pdf"
	// FormatNotebook represents Jupyter notebooks.
	FormatNotebook Format = "notebook"
)

// DetectFormat infers a format from the filename extension.
func DetectFormat(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return FormatPDF
	case ".ipynb":
		return FormatNotebook
	default:
		return FormatUnknown
	}
}

// ParseFormat maps a declared kind to a Format.
func ParseFormat(kind string) Format {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "pdf":
		return FormatPDF
	case "notebook", "ipynb":
		return FormatNotebook
	default:
		return FormatUnknown
	}
}
