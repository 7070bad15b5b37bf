package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/echolearn/go-tutor/api"
	"github.com/echolearn/go-tutor/audio"
	"github.com/echolearn/go-tutor/config"
	"github.com/echolearn/go-tutor/database"
	"github.com/echolearn/go-tutor/embeddings"
	"github.com/echolearn/go-tutor/index"
	"github.com/echolearn/go-tutor/ingestion"
	"github.com/echolearn/go-tutor/knowledge"
	"github.com/echolearn/go-tutor/llm"
	"github.com/echolearn/go-tutor/memory"
	"github.com/echolearn/go-tutor/retrieval"
	"github.com/echolearn/go-tutor/tutor"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "echotutor: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPostgresPool(ctx, cfg.Database.PostgresDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	embedder, err := embeddings.NewEmbedder(cfg)
	if err != nil {
		return err
	}

	generator, err := llm.NewClient(cfg)
	if err != nil {
		return err
	}

	transcriber, synthesizer, err := audio.NewBridge(cfg)
	if err != nil {
		return err
	}

	store := index.NewPostgresStore(pool, cfg.Embeddings.Dimension)
	manager := index.NewManager(store, embedder, cfg.Embeddings.Dimension, logger)
	if err := manager.Load(ctx); err != nil {
		return fmt.Errorf("load index: %w", err)
	}

	var graph *knowledge.Neo4jStore
	var insights tutor.InsightProvider
	var ingestGraph ingestion.Graph
	if cfg.Neo4j.URI != "" {
		driver, err := database.NewNeo4jDriver(ctx, cfg.Neo4j.URI, cfg.Neo4j.Username, cfg.Neo4j.Password)
		if err != nil {
			return err
		}
		defer driver.Close(context.Background())
		graph = knowledge.NewNeo4jStore(driver)
		insights = graph
		ingestGraph = graph
		logger.Info("study-material graph enabled", zap.String("uri", cfg.Neo4j.URI))
	}

	var conversation memory.Store
	switch cfg.Memory.Backend {
	case "redis":
		client, err := database.NewRedisClient(ctx, cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
		if err != nil {
			return err
		}
		defer client.Close()
		conversation = memory.NewRedisStore(client, cfg.Memory.MaxTurns)
		logger.Info("conversation memory backed by redis", zap.String("addr", cfg.Database.Redis.Addr))
	default:
		conversation = memory.NewRing(cfg.Memory.MaxTurns)
	}

	ingestor := ingestion.NewService(manager, ingestGraph, cfg.Chunking, logger)
	retriever := retrieval.New(embedder, manager, cfg.Embeddings.Dimension)

	composer := tutor.Composer{
		MaxChars:         cfg.LLM.MaxPromptChars,
		MaxPassages:      cfg.Retrieval.TopK,
		PassageCharLimit: cfg.Chunking.MaxChunkSize,
	}
	orchestrator := tutor.NewService(
		retriever,
		conversation,
		generator,
		transcriber,
		synthesizer,
		insights,
		composer,
		cfg.Retrieval.TopK,
		cfg.Retrieval.MinScore,
		logger,
	)

	server := api.NewServer(ingestor, orchestrator, manager, conversation, synthesizer, api.Options{
		Mode:            cfg.Server.Mode,
		AudioDir:        cfg.Audio.OutputDir,
		IngestTimeout:   time.Duration(cfg.Server.IngestTimeoutSecs) * time.Second,
		QuestionTimeout: time.Duration(cfg.Server.QuestionTimeoutSecs) * time.Second,
	}, logger)

	httpServer := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: server.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", cfg.Level, err)
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}
