package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/echolearn/go-tutor/embeddings"
	"github.com/echolearn/go-tutor/errs"
	"github.com/echolearn/go-tutor/index"
)

type stubEmbedder struct {
	dimension int
	err       error
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = make([]float32, s.dimension)
	}
	return vectors, nil
}

var _ embeddings.Embedder = (*stubEmbedder)(nil)

type stubSearcher struct {
	matches []index.Match
	err     error
	gotK    int
}

func (s *stubSearcher) Search(_ context.Context, _ []float32, k int) ([]index.Match, error) {
	s.gotK = k
	if s.err != nil {
		return nil, s.err
	}
	return s.matches, nil
}

var _ Searcher = (*stubSearcher)(nil)

func matchesWithScores(scores ...float64) []index.Match {
	matches := make([]index.Match, len(scores))
	for i, score := range scores {
		matches[i] = index.Match{Score: score}
	}
	return matches
}

func TestRetrievePreservesStoreOrder(t *testing.T) {
	searcher := &stubSearcher{matches: matchesWithScores(0.9, 0.7, 0.5)}
	r := New(&stubEmbedder{dimension: 4}, searcher, 4)

	matches, err := r.Retrieve(context.Background(), "what is a derivative", 3, 0.0)
	if err != nil {
		t.Fatalf("Retrieve() error: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("got %d matches, want 3", len(matches))
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].Score > matches[i-1].Score {
			t.Fatalf("matches out of order at %d", i)
		}
	}
}

func TestRetrieveFiltersBelowThreshold(t *testing.T) {
	searcher := &stubSearcher{matches: matchesWithScores(0.9, 0.4, 0.2)}
	r := New(&stubEmbedder{dimension: 4}, searcher, 4)

	matches, err := r.Retrieve(context.Background(), "question", 5, 0.3)
	if err != nil {
		t.Fatalf("Retrieve() error: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(matches))
	}
	for _, m := range matches {
		if m.Score < 0.3 {
			t.Fatalf("match below threshold leaked: %v", m.Score)
		}
	}
}

func TestRetrieveEmptyIndexYieldsNoMatches(t *testing.T) {
	r := New(&stubEmbedder{dimension: 4}, &stubSearcher{}, 4)

	matches, err := r.Retrieve(context.Background(), "question", 5, 0.3)
	if err != nil {
		t.Fatalf("Retrieve() error: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("got %d matches, want 0", len(matches))
	}
}

func TestRetrieveRejectsEmptyQuery(t *testing.T) {
	r := New(&stubEmbedder{dimension: 4}, &stubSearcher{}, 4)

	_, err := r.Retrieve(context.Background(), "   ", 5, 0.3)
	if !errs.IsKind(err, errs.KindInvalidRequest) {
		t.Fatalf("expected invalid request error, got %v", err)
	}
}

func TestRetrieveDimensionMismatchIsConfigurationError(t *testing.T) {
	r := New(&stubEmbedder{dimension: 8}, &stubSearcher{}, 4)

	_, err := r.Retrieve(context.Background(), "question", 5, 0.3)
	if !errs.IsKind(err, errs.KindConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRetrieveEmbedderFailureIsEmbeddingError(t *testing.T) {
	r := New(&stubEmbedder{err: errors.New("provider down")}, &stubSearcher{}, 4)

	_, err := r.Retrieve(context.Background(), "question", 5, 0.3)
	if !errs.IsKind(err, errs.KindEmbedding) {
		t.Fatalf("expected embedding error, got %v", err)
	}
}

func TestRetrieveZeroKShortCircuits(t *testing.T) {
	searcher := &stubSearcher{matches: matchesWithScores(0.9)}
	r := New(&stubEmbedder{dimension: 4}, searcher, 4)

	matches, err := r.Retrieve(context.Background(), "question", 0, 0.3)
	if err != nil {
		t.Fatalf("Retrieve() error: %v", err)
	}
	if matches != nil {
		t.Fatalf("expected nil matches for k=0, got %v", matches)
	}
	if searcher.gotK != 0 {
		t.Fatal("searcher should not be called for k=0")
	}
}
