// Package index owns the persisted vector index: documents, chunks, and
// their embeddings.
package index

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Document describes one ingested study material. The raw upload is not
// retained; only the derived chunks persist.
type Document struct {
	ID         uuid.UUID
	Filename   string
	Kind       string
	IngestedAt time.Time
}

// Chunk is the unit of retrieval. Overlap records how many leading
// characters were carried over from the previous chunk of the same document.
type Chunk struct {
	ID         uuid.UUID
	DocumentID uuid.UUID
	Ordinal    int
	Text       string
	Overlap    int
}

// Entry pairs a chunk with its embedding vector. The vector is produced once
// at ingestion time and immutable thereafter.
type Entry struct {
	Chunk     Chunk
	Embedding []float32
}

// Match is a similarity search hit. Score is a normalized similarity;
// higher means more relevant.
type Match struct {
	Chunk    Chunk
	Filename string
	Score    float64
}

type Stats struct {
	NumDocuments int64
	NumChunks    int64
}

// Store is the durable backend. Replace and Add must be atomic: a failed
// call leaves the previously persisted state untouched.
type Store interface {
	Init(ctx context.Context) error
	Replace(ctx context.Context, doc Document, entries []Entry) error
	Add(ctx context.Context, doc Document, entries []Entry) error
	Search(ctx context.Context, vector []float32, k int) ([]Match, error)
	Stats(ctx context.Context) (Stats, error)
}
