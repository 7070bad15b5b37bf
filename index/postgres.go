package index

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PostgresStore persists the index in Postgres with pgvector. Every mutation
// runs in a single transaction, so a failure leaves the previously committed
// index untouched.
type PostgresStore struct {
	pool      *pgxpool.Pool
	dimension int
}

func NewPostgresStore(pool *pgxpool.Pool, dimension int) *PostgresStore {
	return &PostgresStore{pool: pool, dimension: dimension}
}

func (s *PostgresStore) Init(ctx context.Context) error {
	if s.dimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive")
	}

	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		`CREATE TABLE IF NOT EXISTS tutor_documents (
			id UUID PRIMARY KEY,
			filename TEXT NOT NULL,
			kind TEXT NOT NULL,
			ingested_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS tutor_chunks (
			id UUID PRIMARY KEY,
			document_id UUID NOT NULL REFERENCES tutor_documents(id) ON DELETE CASCADE,
			seq BIGSERIAL,
			ordinal INT NOT NULL,
			overlap_len INT NOT NULL DEFAULT 0,
			content TEXT NOT NULL,
			embedding VECTOR(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE(document_id, ordinal)
		)`, s.dimension),
		"CREATE INDEX IF NOT EXISTS idx_tutor_chunks_document ON tutor_chunks(document_id)",
		"CREATE INDEX IF NOT EXISTS idx_tutor_chunks_embedding ON tutor_chunks USING ivfflat (embedding vector_cosine_ops)",
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("execute schema statement: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Replace(ctx context.Context, doc Document, entries []Entry) error {
	return s.write(ctx, doc, entries, true)
}

func (s *PostgresStore) Add(ctx context.Context, doc Document, entries []Entry) error {
	return s.write(ctx, doc, entries, false)
}

func (s *PostgresStore) write(ctx context.Context, doc Document, entries []Entry, replace bool) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if replace {
		if _, err = tx.Exec(ctx, "TRUNCATE tutor_chunks, tutor_documents"); err != nil {
			return fmt.Errorf("clear existing index: %w", err)
		}
	}

	if _, err = tx.Exec(ctx, `
		INSERT INTO tutor_documents (id, filename, kind, ingested_at)
		VALUES ($1, $2, $3, $4)
	`, doc.ID, doc.Filename, doc.Kind, doc.IngestedAt); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}

	for _, entry := range entries {
		chunk := entry.Chunk
		if _, err = tx.Exec(ctx, `
			INSERT INTO tutor_chunks (id, document_id, ordinal, overlap_len, content, embedding)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, chunk.ID, chunk.DocumentID, chunk.Ordinal, chunk.Overlap, chunk.Text, pgvector.NewVector(entry.Embedding)); err != nil {
			return fmt.Errorf("insert chunk %d: %w", chunk.Ordinal, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Search orders by cosine distance; equal distances fall back to the seq
// column so repeated queries return identical orderings.
func (s *PostgresStore) Search(ctx context.Context, vector []float32, k int) ([]Match, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("query vector is empty")
	}
	if k <= 0 {
		return nil, nil
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	probes := k * 10
	if probes < 10 {
		probes = 10
	}
	if _, err := conn.Exec(ctx, fmt.Sprintf("SET ivfflat.probes = %d", probes)); err != nil {
		return nil, fmt.Errorf("set ivfflat probes: %w", err)
	}

	rows, err := conn.Query(ctx, `
		SELECT
			c.id,
			c.document_id,
			c.ordinal,
			c.overlap_len,
			c.content,
			d.filename,
			(c.embedding <=> $1::vector) AS distance
		FROM tutor_chunks c
		JOIN tutor_documents d ON d.id = c.document_id
		ORDER BY c.embedding <=> $1::vector, c.seq
		LIMIT $2
	`, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, fmt.Errorf("query similar chunks: %w", err)
	}
	defer rows.Close()

	matches := make([]Match, 0, k)
	for rows.Next() {
		var m Match
		var distance float64
		if err := rows.Scan(&m.Chunk.ID, &m.Chunk.DocumentID, &m.Chunk.Ordinal, &m.Chunk.Overlap, &m.Chunk.Text, &m.Filename, &distance); err != nil {
			return nil, fmt.Errorf("scan similar chunk: %w", err)
		}
		m.Score = 1 - distance
		matches = append(matches, m)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return matches, nil
}

func (s *PostgresStore) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM tutor_documents),
			(SELECT COUNT(*) FROM tutor_chunks)
	`).Scan(&stats.NumDocuments, &stats.NumChunks)
	if err != nil {
		return Stats{}, fmt.Errorf("query index stats: %w", err)
	}
	return stats, nil
}

var _ Store = (*PostgresStore)(nil)
