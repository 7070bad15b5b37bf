package ingestion

import (
	"github.com/echolearn/go-tutor/errs"
)

// Piece is one chunk of cleaned text. Overlap is the number of leading
// bytes carried over from the previous piece, so concatenating
// piece.Text[piece.Overlap:] over all pieces reconstructs the input exactly.
type Piece struct {
	Text    string
	Overlap int
}

// Split chunks cleaned text into overlapping pieces of at most maxSize
// bytes. Units are sentences; a sentence longer than maxSize is re-split on
// whitespace, and a single word longer than maxSize is emitted whole as an
// oversized piece rather than truncated. Empty input yields no pieces.
//
// Split is a pure function of its input: identical arguments always produce
// identical pieces.
func Split(text string, maxSize, overlap int) ([]Piece, error) {
	if maxSize <= 0 {
		return nil, errs.New(errs.KindChunking, "max chunk size must be positive")
	}
	if overlap < 0 || overlap >= maxSize {
		return nil, errs.New(errs.KindChunking, "overlap must be in [0, max chunk size)")
	}

	units := splitUnits(text, maxSize)
	if len(units) == 0 {
		return nil, nil
	}

	var pieces []Piece
	var current []string
	currentLen := 0
	carried := 0

	flush := func() {
		var b []byte
		for _, u := range current {
			b = append(b, u...)
		}
		pieces = append(pieces, Piece{Text: string(b), Overlap: carried})
	}

	for _, unit := range units {
		// Emit only when the accumulated piece holds content beyond
		// the carried overlap.
		if currentLen > carried && currentLen+len(unit) > maxSize {
			flush()
			current, currentLen = carryTail(current, overlap)
			carried = currentLen
		}
		// The carried overlap is context, never a reason to oversize a
		// piece: drop leading carried units until the unit fits. Only a
		// single atomic unit larger than maxSize may exceed the bound.
		for currentLen == carried && carried > 0 && currentLen+len(unit) > maxSize {
			currentLen -= len(current[0])
			carried = currentLen
			current = current[1:]
		}
		current = append(current, unit)
		currentLen += len(unit)
	}

	if currentLen > carried {
		flush()
	}

	return pieces, nil
}

// carryTail returns the trailing units totaling at most overlap bytes,
// seeding the next piece with cross-boundary context.
func carryTail(units []string, overlap int) ([]string, int) {
	if overlap <= 0 {
		return nil, 0
	}

	total := 0
	start := len(units)
	for start > 0 && total+len(units[start-1]) <= overlap {
		start--
		total += len(units[start])
	}

	tail := make([]string, len(units)-start)
	copy(tail, units[start:])
	return tail, total
}

// splitUnits cuts text into sentence units; sentences over maxSize fall
// back to whitespace-delimited units. Each unit keeps its trailing
// separator, so concatenating the units reproduces text byte for byte.
func splitUnits(text string, maxSize int) []string {
	if text == "" {
		return nil
	}

	sentences := splitSentences(text)
	units := make([]string, 0, len(sentences))
	for _, sentence := range sentences {
		if len(sentence) <= maxSize {
			units = append(units, sentence)
			continue
		}
		units = append(units, splitWords(sentence)...)
	}
	return units
}

func splitSentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
		default:
			continue
		}
		// A sentence ends at terminal punctuation followed by a space
		// (or end of input); "3.14" stays intact.
		end := i + 1
		for end < len(text) && text[end] == ' ' {
			end++
		}
		if end == i+1 && end != len(text) {
			continue
		}
		out = append(out, text[start:end])
		start = end
		i = end - 1
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

func splitWords(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' {
			out = append(out, s[start:i+1])
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}
