package ingestion

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"

	pdf "github.com/ledongthuc/pdf"

	"github.com/echolearn/go-tutor/errs"
)

// Metadata is the per-format detail returned alongside extracted text.
type Metadata struct {
	Pages int
	Cells int
}

// Extractor pulls raw text out of an uploaded file. Extraction has no side
// effects: it either returns the full text or an extraction error.
type Extractor interface {
	Extract(ctx context.Context, filename string, data []byte) (string, Metadata, error)
}

// NewExtractor returns the extractor for the given format.
func NewExtractor(format Format) (Extractor, error) {
	switch format {
	case FormatPDF:
		return pdfExtractor{}, nil
	case FormatNotebook:
		return notebookExtractor{}, nil
	default:
		return nil, errs.Newf(errs.KindExtraction, "unsupported document format: %q", string(format))
	}
}

type pdfExtractor struct{}

func (pdfExtractor) Extract(_ context.Context, filename string, data []byte) (string, Metadata, error) {
	if len(data) == 0 {
		return "", Metadata{}, errs.Newf(errs.KindExtraction, "%s is empty", filename)
	}

	// NewReader fails on password-protected and corrupt files.
	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", Metadata{}, errs.Wrap(errs.KindExtraction, "unreadable or password-protected pdf", err)
	}

	plain, err := doc.GetPlainText()
	if err != nil {
		return "", Metadata{}, errs.Wrap(errs.KindExtraction, "extract pdf text", err)
	}

	buf := &bytes.Buffer{}
	if _, err := io.Copy(buf, plain); err != nil {
		return "", Metadata{}, errs.Wrap(errs.KindExtraction, "read pdf text", err)
	}

	return buf.String(), Metadata{Pages: doc.NumPage()}, nil
}

type notebookExtractor struct{}

type notebookFile struct {
	Cells    []notebookCell `json:"cells"`
	NBFormat int            `json:"nbformat"`
}

type notebookCell struct {
	CellType string     `json:"cell_type"`
	Source   cellSource `json:"source"`
}

// cellSource accepts nbformat's two encodings of cell source: a single
// string or a list of lines.
type cellSource string

func (s *cellSource) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = cellSource(single)
		return nil
	}
	var lines []string
	if err := json.Unmarshal(data, &lines); err != nil {
		return err
	}
	*s = cellSource(strings.Join(lines, ""))
	return nil
}

// Extract concatenates code and markdown cell sources in cell order. Cell
// outputs and binary payloads are never read.
func (notebookExtractor) Extract(_ context.Context, filename string, data []byte) (string, Metadata, error) {
	var nb notebookFile
	if err := json.Unmarshal(data, &nb); err != nil {
		return "", Metadata{}, errs.Wrap(errs.KindExtraction, "unreadable notebook", err)
	}
	if len(nb.Cells) == 0 {
		return "", Metadata{}, errs.Newf(errs.KindExtraction, "%s contains no cells", filename)
	}

	var parts []string
	cells := 0
	for _, cell := range nb.Cells {
		switch cell.CellType {
		case "code", "markdown":
		default:
			continue
		}
		text := strings.TrimSpace(string(cell.Source))
		if text == "" {
			continue
		}
		parts = append(parts, text)
		cells++
	}

	return strings.Join(parts, "\n\n"), Metadata{Cells: cells}, nil
}
