package ingestion

import (
	"context"
	"errors"
	"testing"

	"github.com/echolearn/go-tutor/config"
	"github.com/echolearn/go-tutor/errs"
	"github.com/echolearn/go-tutor/index"
)

type stubIndexer struct {
	builds  int
	appends int
	doc     index.Document
	chunks  []index.Chunk
	err     error
}

func (s *stubIndexer) Build(_ context.Context, doc index.Document, chunks []index.Chunk) error {
	if s.err != nil {
		return s.err
	}
	s.builds++
	s.doc = doc
	s.chunks = chunks
	return nil
}

func (s *stubIndexer) Append(_ context.Context, doc index.Document, chunks []index.Chunk) error {
	if s.err != nil {
		return s.err
	}
	s.appends++
	s.doc = doc
	s.chunks = chunks
	return nil
}

var _ Indexer = (*stubIndexer)(nil)

type stubGraph struct {
	syncs  int
	purges int
	err    error
}

func (s *stubGraph) SyncMaterial(_ context.Context, _ index.Document, _ []index.Chunk) error {
	s.syncs++
	return s.err
}

func (s *stubGraph) Purge(_ context.Context) error {
	s.purges++
	return s.err
}

var _ Graph = (*stubGraph)(nil)

var testChunking = config.ChunkingConfig{MaxChunkSize: 200, ChunkOverlap: 50}

const testNotebook = `{
	"nbformat": 4,
	"cells": [
		{"cell_type": "markdown", "source": "Linear regression fits a line to data points."},
		{"cell_type": "code", "source": "model.fit(X, y)"}
	]
}`

func TestProcessRebuildUsesBuild(t *testing.T) {
	indexer := &stubIndexer{}
	svc := NewService(indexer, nil, testChunking, nil)

	result, err := svc.Process(context.Background(), "lab.ipynb", FormatNotebook, []byte(testNotebook), true)
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if indexer.builds != 1 || indexer.appends != 0 {
		t.Fatalf("builds=%d appends=%d, want 1/0", indexer.builds, indexer.appends)
	}
	if result.NumChunks == 0 || result.NumChunks != len(indexer.chunks) {
		t.Fatalf("NumChunks = %d, indexer got %d", result.NumChunks, len(indexer.chunks))
	}
	if result.Document.Filename != "lab.ipynb" {
		t.Fatalf("Document.Filename = %q", result.Document.Filename)
	}
	if result.Document.Kind != "notebook" {
		t.Fatalf("Document.Kind = %q", result.Document.Kind)
	}
}

func TestProcessAppendUsesAppend(t *testing.T) {
	indexer := &stubIndexer{}
	svc := NewService(indexer, nil, testChunking, nil)

	_, err := svc.Process(context.Background(), "lab.ipynb", FormatNotebook, []byte(testNotebook), false)
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if indexer.builds != 0 || indexer.appends != 1 {
		t.Fatalf("builds=%d appends=%d, want 0/1", indexer.builds, indexer.appends)
	}
}

func TestProcessChunksShareDocumentID(t *testing.T) {
	indexer := &stubIndexer{}
	svc := NewService(indexer, nil, testChunking, nil)

	_, err := svc.Process(context.Background(), "lab.ipynb", FormatNotebook, []byte(testNotebook), true)
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	for i, chunk := range indexer.chunks {
		if chunk.DocumentID != indexer.doc.ID {
			t.Fatalf("chunk %d has document id %s, want %s", i, chunk.DocumentID, indexer.doc.ID)
		}
		if chunk.Ordinal != i {
			t.Fatalf("chunk %d has ordinal %d", i, chunk.Ordinal)
		}
	}
}

func TestProcessEmptyTextFails(t *testing.T) {
	notebook := `{"nbformat": 4, "cells": [{"cell_type": "code", "source": "   "}]}`
	svc := NewService(&stubIndexer{}, nil, testChunking, nil)

	_, err := svc.Process(context.Background(), "blank.ipynb", FormatNotebook, []byte(notebook), true)
	if !errs.IsKind(err, errs.KindExtraction) {
		t.Fatalf("expected extraction error, got %v", err)
	}
}

func TestProcessIndexerErrorPropagates(t *testing.T) {
	indexer := &stubIndexer{err: errs.New(errs.KindIndexBusy, "busy")}
	svc := NewService(indexer, nil, testChunking, nil)

	_, err := svc.Process(context.Background(), "lab.ipynb", FormatNotebook, []byte(testNotebook), true)
	if !errs.IsKind(err, errs.KindIndexBusy) {
		t.Fatalf("expected index busy error, got %v", err)
	}
}

func TestProcessGraphFailureIsNonFatal(t *testing.T) {
	indexer := &stubIndexer{}
	graph := &stubGraph{err: errors.New("neo4j down")}
	svc := NewService(indexer, graph, testChunking, nil)

	_, err := svc.Process(context.Background(), "lab.ipynb", FormatNotebook, []byte(testNotebook), true)
	if err != nil {
		t.Fatalf("graph failure should not fail ingestion: %v", err)
	}
	if graph.purges != 1 {
		t.Fatalf("expected purge on rebuild, got %d", graph.purges)
	}
}

func TestProcessRebuildPurgesGraphFirst(t *testing.T) {
	graph := &stubGraph{}
	svc := NewService(&stubIndexer{}, graph, testChunking, nil)

	_, err := svc.Process(context.Background(), "lab.ipynb", FormatNotebook, []byte(testNotebook), true)
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if graph.purges != 1 || graph.syncs != 1 {
		t.Fatalf("purges=%d syncs=%d, want 1/1", graph.purges, graph.syncs)
	}

	_, err = svc.Process(context.Background(), "more.ipynb", FormatNotebook, []byte(testNotebook), false)
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if graph.purges != 1 || graph.syncs != 2 {
		t.Fatalf("append must not purge: purges=%d syncs=%d", graph.purges, graph.syncs)
	}
}
