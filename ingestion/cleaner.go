package ingestion

import (
	"strings"
	"unicode"
)

// Clean normalizes raw extracted text: line endings and whitespace runs
// collapse to single spaces and control characters are stripped. Clean is
// idempotent and never merges or splits words — any control or whitespace
// sequence between two words becomes exactly one space.
func Clean(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	pendingSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) || unicode.IsControl(r) || r == unicode.ReplacementChar {
			pendingSpace = true
			continue
		}
		if pendingSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		pendingSpace = false
		b.WriteRune(r)
	}

	return b.String()
}
