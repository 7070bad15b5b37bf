package index

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/echolearn/go-tutor/embeddings"
	"github.com/echolearn/go-tutor/errs"
)

// Manager coordinates embedding and persistence for the single shared
// index. Mutations (Build/Append) are mutually exclusive: a second caller is
// rejected with an index_busy error instead of queueing, so upload requests
// fail fast while a long embedding batch is in flight. Reads (Search/Stats)
// share a read lock and are never blocked by each other.
type Manager struct {
	mu        sync.RWMutex
	store     Store
	embedder  embeddings.Embedder
	dimension int
	logger    *zap.Logger
}

func NewManager(store Store, embedder embeddings.Embedder, dimension int, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:     store,
		embedder:  embedder,
		dimension: dimension,
		logger:    logger,
	}
}

// Dimension is the embedding dimension shared by index and retriever.
func (m *Manager) Dimension() int { return m.dimension }

// Load recovers the persisted index at process start. A missing index is an
// empty index, not an error.
func (m *Manager) Load(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Init(ctx)
}

// Build embeds the chunks and replaces the whole persisted index with this
// document. The operation is all-or-nothing: an embedding failure happens
// before any write, and the store replace is transactional.
func (m *Manager) Build(ctx context.Context, doc Document, chunks []Chunk) error {
	if !m.mu.TryLock() {
		return errs.New(errs.KindIndexBusy, "another index mutation is in flight")
	}
	defer m.mu.Unlock()

	entries, err := m.embed(ctx, chunks)
	if err != nil {
		return err
	}

	if err := m.store.Replace(ctx, doc, entries); err != nil {
		return err
	}
	m.logger.Info("index rebuilt", zap.String("document", doc.Filename), zap.Int("chunks", len(entries)))
	return nil
}

// Append embeds the chunks and adds them to the existing persisted index
// without discarding prior content.
func (m *Manager) Append(ctx context.Context, doc Document, chunks []Chunk) error {
	if !m.mu.TryLock() {
		return errs.New(errs.KindIndexBusy, "another index mutation is in flight")
	}
	defer m.mu.Unlock()

	entries, err := m.embed(ctx, chunks)
	if err != nil {
		return err
	}

	if err := m.store.Add(ctx, doc, entries); err != nil {
		return err
	}
	m.logger.Info("index extended", zap.String("document", doc.Filename), zap.Int("chunks", len(entries)))
	return nil
}

// Search returns the k nearest chunks for the query vector, most similar
// first, ties broken by ingestion order.
func (m *Manager) Search(ctx context.Context, vector []float32, k int) ([]Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.store.Search(ctx, vector, k)
}

func (m *Manager) Stats(ctx context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.store.Stats(ctx)
}

func (m *Manager) embed(ctx context.Context, chunks []Chunk) ([]Entry, error) {
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, err := m.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, errs.Wrap(errs.KindEmbedding, "embed chunks", err)
	}
	if len(vectors) != len(chunks) {
		return nil, errs.Newf(errs.KindEmbedding, "embedding count mismatch: have %d chunks, %d vectors", len(chunks), len(vectors))
	}

	entries := make([]Entry, len(chunks))
	for i, chunk := range chunks {
		if len(vectors[i]) != m.dimension {
			return nil, errs.Newf(errs.KindConfiguration, "embedding dimension mismatch: expected %d, got %d", m.dimension, len(vectors[i]))
		}
		entries[i] = Entry{Chunk: chunk, Embedding: vectors[i]}
	}
	return entries, nil
}
