package errs

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestKindOfAndStageOf(t *testing.T) {
	err := WrapStage(KindTranscription, "transcribing", "bad audio", errors.New("io failure"))

	if KindOf(err) != KindTranscription {
		t.Fatalf("KindOf = %q", KindOf(err))
	}
	if StageOf(err) != "transcribing" {
		t.Fatalf("StageOf = %q", StageOf(err))
	}
}

func TestIsKindSeesThroughWrapping(t *testing.T) {
	inner := New(KindIndexBusy, "mutation in flight")
	outer := fmt.Errorf("process upload: %w", inner)

	if !IsKind(outer, KindIndexBusy) {
		t.Fatal("IsKind missed wrapped kind")
	}
	if IsKind(outer, KindGeneration) {
		t.Fatal("IsKind matched the wrong kind")
	}
}

func TestIsKindWalksNestedKinds(t *testing.T) {
	inner := New(KindEmbedding, "provider down")
	outer := WrapStage(KindGeneration, "generating", "generate answer", inner)

	if !IsKind(outer, KindGeneration) {
		t.Fatal("outer kind not found")
	}
	if !IsKind(outer, KindEmbedding) {
		t.Fatal("inner kind not found")
	}
}

func TestWrapNilReturnsNil(t *testing.T) {
	if Wrap(KindEmbedding, "ignored", nil) != nil {
		t.Fatal("Wrap(nil) should be nil")
	}
	if WrapStage(KindEmbedding, "stage", "ignored", nil) != nil {
		t.Fatal("WrapStage(nil) should be nil")
	}
}

func TestErrorStringIncludesKindStageAndCause(t *testing.T) {
	err := WrapStage(KindSynthesis, "synthesizing", "render speech", errors.New("disk full"))
	got := err.Error()

	for _, part := range []string{"synthesis", "synthesizing", "render speech", "disk full"} {
		if !strings.Contains(got, part) {
			t.Fatalf("error string %q missing %q", got, part)
		}
	}
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(KindExtraction, "extract pdf", cause)

	if !errors.Is(err, cause) {
		t.Fatal("errors.Is did not find the cause")
	}
}
