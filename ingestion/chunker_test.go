package ingestion

import (
	"reflect"
	"strings"
	"testing"

	"github.com/echolearn/go-tutor/errs"
)

func reconstruct(pieces []Piece) string {
	var b strings.Builder
	for _, p := range pieces {
		b.WriteString(p.Text[p.Overlap:])
	}
	return b.String()
}

func TestSplitCoversInputExactly(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 20)

	pieces, err := Split(text, 100, 30)
	if err != nil {
		t.Fatalf("Split() error: %v", err)
	}
	if len(pieces) < 2 {
		t.Fatalf("expected multiple pieces, got %d", len(pieces))
	}
	if got := reconstruct(pieces); got != text {
		t.Fatalf("reconstructed text differs from input:\ngot  %q\nwant %q", got, text)
	}
}

func TestSplitRespectsSizeBound(t *testing.T) {
	text := strings.Repeat("Short sentence here. ", 50)

	pieces, err := Split(text, 120, 40)
	if err != nil {
		t.Fatalf("Split() error: %v", err)
	}
	for i, p := range pieces {
		if len(p.Text) > 120 {
			t.Fatalf("piece %d exceeds max size: %d bytes", i, len(p.Text))
		}
	}
}

func TestSplitOverlapCarriesTrailingContext(t *testing.T) {
	text := strings.Repeat("One two three four five six seven. ", 10)

	pieces, err := Split(text, 80, 40)
	if err != nil {
		t.Fatalf("Split() error: %v", err)
	}
	if pieces[0].Overlap != 0 {
		t.Fatalf("first piece overlap = %d, want 0", pieces[0].Overlap)
	}
	for i := 1; i < len(pieces); i++ {
		if pieces[i].Overlap > 40 {
			t.Fatalf("piece %d overlap %d exceeds configured overlap", i, pieces[i].Overlap)
		}
		prev := pieces[i-1].Text
		lead := pieces[i].Text[:pieces[i].Overlap]
		if !strings.HasSuffix(prev, lead) {
			t.Fatalf("piece %d overlap %q is not a suffix of the previous piece", i, lead)
		}
	}
}

func TestSplitOversizedWordEmittedWhole(t *testing.T) {
	word := strings.Repeat("x", 300)

	pieces, err := Split(word, 100, 20)
	if err != nil {
		t.Fatalf("Split() error: %v", err)
	}
	if len(pieces) != 1 {
		t.Fatalf("expected one piece, got %d", len(pieces))
	}
	if pieces[0].Text != word {
		t.Fatalf("oversized word was altered")
	}
}

func TestSplitOversizedSentenceFallsBackToWords(t *testing.T) {
	sentence := strings.Repeat("word ", 60) + "end."

	pieces, err := Split(sentence, 50, 10)
	if err != nil {
		t.Fatalf("Split() error: %v", err)
	}
	if len(pieces) < 2 {
		t.Fatalf("expected the long sentence to be split, got %d piece(s)", len(pieces))
	}
	for i, p := range pieces {
		if len(p.Text) > 50 {
			t.Fatalf("piece %d exceeds max size after word fallback: %d", i, len(p.Text))
		}
	}
	if got := reconstruct(pieces); got != sentence {
		t.Fatalf("reconstructed text differs from input")
	}
}

func TestSplitTrimsOverlapToKeepSizeBound(t *testing.T) {
	// Sentences of 55 bytes with a 60-byte overlap: the carried context
	// alone nearly fills a piece, so it must shrink to admit the next
	// sentence instead of producing a 110-byte piece.
	sentence := strings.Repeat("a", 53) + ". "
	text := strings.Repeat(sentence, 6)

	pieces, err := Split(text, 100, 60)
	if err != nil {
		t.Fatalf("Split() error: %v", err)
	}
	for i, p := range pieces {
		if len(p.Text) > 100 {
			t.Fatalf("piece %d has len %d > 100 without an oversized unit", i, len(p.Text))
		}
	}
	if got := reconstruct(pieces); got != text {
		t.Fatalf("reconstructed text differs from input")
	}
}

func TestSplitPartialOverlapTrimKeepsReconstruction(t *testing.T) {
	// Mixed unit sizes force the trim to drop only some carried units.
	text := strings.Repeat("Tiny one. ", 4) + strings.Repeat(strings.Repeat("b", 68)+". ", 3)

	pieces, err := Split(text, 100, 80)
	if err != nil {
		t.Fatalf("Split() error: %v", err)
	}
	for i, p := range pieces {
		if len(p.Text) > 100 {
			t.Fatalf("piece %d has len %d > 100 without an oversized unit", i, len(p.Text))
		}
		if i > 0 && p.Overlap > 0 {
			prev := pieces[i-1].Text
			if !strings.HasSuffix(prev, p.Text[:p.Overlap]) {
				t.Fatalf("piece %d overlap is not a suffix of the previous piece", i)
			}
		}
	}
	if got := reconstruct(pieces); got != text {
		t.Fatalf("reconstructed text differs from input")
	}
}

func TestSplitEmptyInput(t *testing.T) {
	pieces, err := Split("", 100, 20)
	if err != nil {
		t.Fatalf("Split() error: %v", err)
	}
	if len(pieces) != 0 {
		t.Fatalf("expected no pieces, got %d", len(pieces))
	}
}

func TestSplitIsDeterministic(t *testing.T) {
	text := strings.Repeat("Determinism matters for retrieval scores. ", 15)

	first, err := Split(text, 90, 25)
	if err != nil {
		t.Fatalf("Split() error: %v", err)
	}
	second, err := Split(text, 90, 25)
	if err != nil {
		t.Fatalf("Split() error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("identical inputs produced different pieces")
	}
}

func TestSplitRejectsBadConfiguration(t *testing.T) {
	cases := []struct {
		name    string
		maxSize int
		overlap int
	}{
		{"zero max size", 0, 0},
		{"negative overlap", 100, -1},
		{"overlap equals max size", 100, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Split("some text", tc.maxSize, tc.overlap)
			if !errs.IsKind(err, errs.KindChunking) {
				t.Fatalf("expected chunking error, got %v", err)
			}
		})
	}
}

func TestSplitDecimalNumberStaysIntact(t *testing.T) {
	text := "Pi is about 3.14 in most courses. A second sentence follows here."

	pieces, err := Split(text, 40, 0)
	if err != nil {
		t.Fatalf("Split() error: %v", err)
	}
	joined := reconstruct(pieces)
	if !strings.Contains(joined, "3.14") {
		t.Fatalf("decimal number was split apart: %q", joined)
	}
	if joined != text {
		t.Fatalf("reconstructed text differs from input")
	}
}
