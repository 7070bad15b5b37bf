package ingestion

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/echolearn/go-tutor/config"
	"github.com/echolearn/go-tutor/errs"
	"github.com/echolearn/go-tutor/index"
)

// Indexer is the slice of the index manager the ingestion path needs.
type Indexer interface {
	Build(ctx context.Context, doc index.Document, chunks []index.Chunk) error
	Append(ctx context.Context, doc index.Document, chunks []index.Chunk) error
}

// Graph mirrors the ingested material into the optional study-material
// graph. Graph failures never fail an upload.
type Graph interface {
	SyncMaterial(ctx context.Context, doc index.Document, chunks []index.Chunk) error
	Purge(ctx context.Context) error
}

// Result reports a completed ingestion.
type Result struct {
	Document  index.Document
	NumChunks int
	Elapsed   time.Duration
}

type Service struct {
	indexer      Indexer
	graph        Graph
	maxChunkSize int
	overlap      int
	logger       *zap.Logger
}

// NewService wires the ingestion pipeline. graph may be nil.
func NewService(indexer Indexer, graph Graph, chunking config.ChunkingConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		indexer:      indexer,
		graph:        graph,
		maxChunkSize: chunking.MaxChunkSize,
		overlap:      chunking.ChunkOverlap,
		logger:       logger,
	}
}

// Process runs the full ingestion path for one upload: extract, clean,
// chunk, then embed-and-persist. With rebuild the new document replaces the
// whole index; otherwise it is appended. The raw upload is discarded once
// extraction completes.
func (s *Service) Process(ctx context.Context, filename string, format Format, data []byte, rebuild bool) (Result, error) {
	start := time.Now()

	extractor, err := NewExtractor(format)
	if err != nil {
		return Result{}, err
	}

	raw, meta, err := extractor.Extract(ctx, filename, data)
	if err != nil {
		return Result{}, err
	}

	text := Clean(raw)
	if text == "" {
		return Result{}, errs.Newf(errs.KindExtraction, "%s contains no extractable text", filename)
	}

	pieces, err := Split(text, s.maxChunkSize, s.overlap)
	if err != nil {
		return Result{}, err
	}

	doc := index.Document{
		ID:         uuid.New(),
		Filename:   filename,
		Kind:       string(format),
		IngestedAt: start.UTC(),
	}

	chunks := make([]index.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = index.Chunk{
			ID:         uuid.New(),
			DocumentID: doc.ID,
			Ordinal:    i,
			Text:       piece.Text,
			Overlap:    piece.Overlap,
		}
	}

	if rebuild {
		err = s.indexer.Build(ctx, doc, chunks)
	} else {
		err = s.indexer.Append(ctx, doc, chunks)
	}
	if err != nil {
		return Result{}, err
	}

	s.syncGraph(ctx, doc, chunks, rebuild)

	elapsed := time.Since(start)
	s.logger.Info("document ingested",
		zap.String("filename", filename),
		zap.String("kind", string(format)),
		zap.Int("chunks", len(chunks)),
		zap.Int("pages", meta.Pages),
		zap.Int("cells", meta.Cells),
		zap.Bool("rebuild", rebuild),
		zap.Duration("elapsed", elapsed),
	)

	return Result{Document: doc, NumChunks: len(chunks), Elapsed: elapsed}, nil
}

func (s *Service) syncGraph(ctx context.Context, doc index.Document, chunks []index.Chunk, rebuild bool) {
	if s.graph == nil {
		return
	}
	if rebuild {
		if err := s.graph.Purge(ctx); err != nil {
			s.logger.Warn("purge material graph", zap.Error(err))
			return
		}
	}
	if err := s.graph.SyncMaterial(ctx, doc, chunks); err != nil {
		s.logger.Warn("sync material graph", zap.Error(err))
	}
}
