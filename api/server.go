// Package api exposes the tutoring pipeline over HTTP.
package api

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/echolearn/go-tutor/audio"
	"github.com/echolearn/go-tutor/errs"
	"github.com/echolearn/go-tutor/index"
	"github.com/echolearn/go-tutor/ingestion"
	"github.com/echolearn/go-tutor/memory"
	"github.com/echolearn/go-tutor/tutor"
)

// Ingestor runs the upload pipeline.
type Ingestor interface {
	Process(ctx context.Context, filename string, format ingestion.Format, data []byte, rebuild bool) (ingestion.Result, error)
}

// Orchestrator answers questions.
type Orchestrator interface {
	Ask(ctx context.Context, req tutor.Request) (tutor.Response, error)
}

// IndexStats is the health-check view of the index.
type IndexStats interface {
	Stats(ctx context.Context) (index.Stats, error)
}

type Server struct {
	engine          *gin.Engine
	ingestor        Ingestor
	orchestrator    Orchestrator
	stats           IndexStats
	memory          memory.Store
	synthesizer     audio.Synthesizer
	audioDir        string
	ingestTimeout   time.Duration
	questionTimeout time.Duration
	logger          *zap.Logger
}

type Options struct {
	Mode            string
	AudioDir        string
	IngestTimeout   time.Duration
	QuestionTimeout time.Duration
}

// NewServer wires the routes. synthesizer is used only for the upload
// greeting and may be nil.
func NewServer(
	ingestor Ingestor,
	orchestrator Orchestrator,
	stats IndexStats,
	mem memory.Store,
	synthesizer audio.Synthesizer,
	opts Options,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Mode != "" {
		gin.SetMode(opts.Mode)
	}

	s := &Server{
		engine:          gin.New(),
		ingestor:        ingestor,
		orchestrator:    orchestrator,
		stats:           stats,
		memory:          mem,
		synthesizer:     synthesizer,
		audioDir:        opts.AudioDir,
		ingestTimeout:   opts.IngestTimeout,
		questionTimeout: opts.QuestionTimeout,
		logger:          logger,
	}

	s.engine.Use(gin.Recovery())

	s.engine.GET("/health", s.handleHealth)
	s.engine.POST("/upload", s.handleUpload)
	s.engine.POST("/ask", s.handleAsk)
	s.engine.GET("/audio/:filename", s.handleAudio)
	s.engine.POST("/clear-memory", s.handleClearMemory)

	return s
}

// Handler exposes the router for http.Server and tests.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) handleHealth(c *gin.Context) {
	stats, err := s.stats.Stats(c.Request.Context())
	if err != nil {
		s.logger.Warn("index stats unavailable", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{
			"status":      "degraded",
			"index_ready": false,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"index_ready":   stats.NumChunks > 0,
		"num_documents": stats.NumDocuments,
		"num_chunks":    stats.NumChunks,
	})
}

func (s *Server) handleUpload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		s.writeError(c, errs.New(errs.KindInvalidRequest, "multipart field 'file' is required"))
		return
	}

	format := ingestion.ParseFormat(c.PostForm("kind"))
	if format == ingestion.FormatUnknown {
		format = ingestion.DetectFormat(fileHeader.Filename)
	}
	if format == ingestion.FormatUnknown {
		s.writeError(c, errs.Newf(errs.KindInvalidRequest, "unsupported file type: %s", fileHeader.Filename))
		return
	}

	// Rebuilding drops the whole index, so it is opt-in; a bare upload
	// appends.
	rebuild := parseBool(c.PostForm("rebuild_index"), false)

	file, err := fileHeader.Open()
	if err != nil {
		s.writeError(c, errs.Wrap(errs.KindInvalidRequest, "open uploaded file", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(c, errs.Wrap(errs.KindInvalidRequest, "read uploaded file", err))
		return
	}

	ctx := c.Request.Context()
	if s.ingestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.ingestTimeout)
		defer cancel()
	}

	result, err := s.ingestor.Process(ctx, fileHeader.Filename, format, data, rebuild)
	if err != nil {
		s.writeError(c, err)
		return
	}

	resp := gin.H{
		"filename":        result.Document.Filename,
		"num_chunks":      result.NumChunks,
		"processing_time": result.Elapsed.Seconds(),
	}
	if path := s.greet(ctx, result.Document.Filename); path != "" {
		resp["greeting_audio"] = path
	}

	c.JSON(http.StatusOK, resp)
}

// greet synthesizes a short spoken confirmation. Failures only cost the
// greeting, never the upload.
func (s *Server) greet(ctx context.Context, filename string) string {
	if s.synthesizer == nil {
		return ""
	}
	text := "I've finished reading " + filename + ". What would you like to know?"
	path, err := s.synthesizer.Synthesize(ctx, text)
	if err != nil {
		s.logger.Warn("greeting synthesis failed", zap.Error(err))
		return ""
	}
	return "/audio/" + filepath.Base(path)
}

func (s *Server) handleAsk(c *gin.Context) {
	req := tutor.Request{
		Text:         c.PostForm("text"),
		UseRetrieval: parseBool(c.PostForm("use_retrieval"), true),
		ReturnAudio:  parseBool(c.PostForm("return_audio"), true),
	}

	if fileHeader, err := c.FormFile("audio"); err == nil {
		file, err := fileHeader.Open()
		if err != nil {
			s.writeError(c, errs.Wrap(errs.KindInvalidRequest, "open question audio", err))
			return
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			s.writeError(c, errs.Wrap(errs.KindInvalidRequest, "read question audio", err))
			return
		}
		req.Audio = data
		req.AudioFilename = fileHeader.Filename
	}

	ctx := c.Request.Context()
	if s.questionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.questionTimeout)
		defer cancel()
	}

	resp, err := s.orchestrator.Ask(ctx, req)
	if err != nil {
		s.writeError(c, err)
		return
	}

	if resp.AudioPath != "" {
		resp.AudioPath = "/audio/" + filepath.Base(resp.AudioPath)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleAudio(c *gin.Context) {
	// Base strips any path traversal from the requested name.
	name := filepath.Base(c.Param("filename"))
	path := filepath.Join(s.audioDir, name)

	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "audio file not found"})
		return
	}
	c.File(path)
}

func (s *Server) handleClearMemory(c *gin.Context) {
	if err := s.memory.Clear(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear conversation memory"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "memory cleared"})
}

func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch errs.KindOf(err) {
	case errs.KindInvalidRequest, errs.KindChunking:
		status = http.StatusBadRequest
	case errs.KindIndexBusy:
		status = http.StatusConflict
	case errs.KindExtraction, errs.KindTranscription:
		status = http.StatusUnprocessableEntity
	case errs.KindEmbedding, errs.KindGeneration:
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	} else {
		s.logger.Warn("request rejected", zap.Error(err), zap.Int("status", status))
	}

	body := gin.H{"error": err.Error()}
	if stage := errs.StageOf(err); stage != "" {
		body["stage"] = stage
	}
	c.JSON(status, body)
}

func parseBool(value string, fallback bool) bool {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
