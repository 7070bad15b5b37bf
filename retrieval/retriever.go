// Package retrieval answers "which passages are relevant to this question".
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/echolearn/go-tutor/embeddings"
	"github.com/echolearn/go-tutor/errs"
	"github.com/echolearn/go-tutor/index"
)

// Searcher is the read side of the index manager.
type Searcher interface {
	Search(ctx context.Context, vector []float32, k int) ([]index.Match, error)
}

type Retriever struct {
	embedder  embeddings.Embedder
	searcher  Searcher
	dimension int
}

// New builds a retriever over the shared embedder and index. dimension must
// equal the dimension used at ingestion time.
func New(embedder embeddings.Embedder, searcher Searcher, dimension int) *Retriever {
	return &Retriever{
		embedder:  embedder,
		searcher:  searcher,
		dimension: dimension,
	}
}

// Retrieve embeds the query and returns at most k matches with score >=
// minScore, most relevant first. An empty index yields an empty slice. A
// query vector whose dimension differs from the index dimension is a fatal
// configuration error, never a recoverable one.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int, minScore float64) ([]index.Match, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errs.New(errs.KindInvalidRequest, "query is empty")
	}
	if k <= 0 {
		return nil, nil
	}

	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, errs.Wrap(errs.KindEmbedding, "embed query", err)
	}
	if len(vectors) != 1 {
		return nil, errs.Newf(errs.KindEmbedding, "expected one query vector, got %d", len(vectors))
	}
	if len(vectors[0]) != r.dimension {
		return nil, errs.Newf(errs.KindConfiguration, "query embedding dimension mismatch: index uses %d, got %d", r.dimension, len(vectors[0]))
	}

	matches, err := r.searcher.Search(ctx, vectors[0], k)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	// The store returns matches ordered by descending score; keep that
	// order and drop everything under the relevance threshold.
	filtered := matches[:0]
	for _, m := range matches {
		if m.Score >= minScore {
			filtered = append(filtered, m)
		}
	}
	if len(filtered) > k {
		filtered = filtered[:k]
	}
	return filtered, nil
}
