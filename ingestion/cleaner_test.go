package ingestion

import "testing"

func TestCleanCollapsesWhitespace(t *testing.T) {
	got := Clean("hello\t\tworld\r\n\r\nsecond   line")
	want := "hello world second line"
	if got != want {
		t.Fatalf("Clean() = %q, want %q", got, want)
	}
}

func TestCleanStripsControlCharacters(t *testing.T) {
	got := Clean("a\x00b\x1fc")
	want := "a b c"
	if got != want {
		t.Fatalf("Clean() = %q, want %q", got, want)
	}
}

func TestCleanTrimsEdges(t *testing.T) {
	got := Clean("  \n padded \t ")
	if got != "padded" {
		t.Fatalf("Clean() = %q, want %q", got, "padded")
	}
}

func TestCleanIsIdempotent(t *testing.T) {
	inputs := []string{
		"plain text",
		"  mixed   spacing\nand lines�",
		"",
		"\t\r\n",
	}
	for _, input := range inputs {
		once := Clean(input)
		twice := Clean(once)
		if once != twice {
			t.Fatalf("Clean not idempotent for %q: %q != %q", input, once, twice)
		}
	}
}

func TestCleanKeepsWordBoundaries(t *testing.T) {
	got := Clean("first\nsecond")
	if got != "first second" {
		t.Fatalf("Clean() merged words: %q", got)
	}
}

func TestCleanEmptyInput(t *testing.T) {
	if got := Clean(""); got != "" {
		t.Fatalf("Clean(\"\") = %q, want empty", got)
	}
}
