// Package tutor orchestrates one question/answer exchange across the
// transcription, retrieval, generation and synthesis capabilities.
package tutor

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/echolearn/go-tutor/audio"
	"github.com/echolearn/go-tutor/errs"
	"github.com/echolearn/go-tutor/index"
	"github.com/echolearn/go-tutor/knowledge"
	"github.com/echolearn/go-tutor/llm"
	"github.com/echolearn/go-tutor/memory"
)

// Pipeline stage names, reported in timing breakdowns and error tags.
const (
	StageReceived     = "received"
	StageTranscribing = "transcribing"
	StageRetrieving   = "retrieving"
	StageComposing    = "composing"
	StageGenerating   = "generating"
	StageSynthesizing = "synthesizing"
)

// snippetLimit bounds the excerpt text echoed back in answer sources.
const snippetLimit = 500

// Request is one question, given as text or as recorded audio.
type Request struct {
	Text          string
	Audio         []byte
	AudioFilename string
	UseRetrieval  bool
	ReturnAudio   bool
}

// Source is one passage the answer was grounded on.
type Source struct {
	Text       string            `json:"text"`
	Score      float64           `json:"score"`
	Filename   string            `json:"filename,omitempty"`
	ChunkCount int               `json:"chunk_count,omitempty"`
	Related    []RelatedMaterial `json:"related_materials,omitempty"`
}

type RelatedMaterial struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
}

// Response carries the answer plus everything the caller needs to render it:
// the resolved question text, grounding sources, optional audio reference and
// per-stage timing in seconds.
type Response struct {
	Question        string             `json:"question"`
	Answer          string             `json:"answer"`
	AudioPath       string             `json:"audio_path,omitempty"`
	Sources         []Source           `json:"sources"`
	Timing          map[string]float64 `json:"timing"`
	SynthesisFailed bool               `json:"synthesis_failed,omitempty"`
}

// Retriever is the read path into the study-material index.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int, minScore float64) ([]index.Match, error)
}

// InsightProvider enriches sources with material-level graph context.
type InsightProvider interface {
	MaterialInsights(ctx context.Context, ids []string) (map[string]knowledge.Insight, error)
}

type Service struct {
	retriever   Retriever
	memory      memory.Store
	generator   llm.Client
	transcriber audio.Transcriber
	synthesizer audio.Synthesizer
	insights    InsightProvider
	composer    Composer
	topK        int
	minScore    float64
	logger      *zap.Logger
}

// NewService wires the orchestrator. insights may be nil when no graph
// backend is configured; transcriber and synthesizer may be nil when the
// audio bridge is disabled.
func NewService(
	retriever Retriever,
	mem memory.Store,
	generator llm.Client,
	transcriber audio.Transcriber,
	synthesizer audio.Synthesizer,
	insights InsightProvider,
	composer Composer,
	topK int,
	minScore float64,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		retriever:   retriever,
		memory:      mem,
		generator:   generator,
		transcriber: transcriber,
		synthesizer: synthesizer,
		insights:    insights,
		composer:    composer,
		topK:        topK,
		minScore:    minScore,
		logger:      logger,
	}
}

// Ask runs the full question pipeline. The conversation turn is recorded
// only after generation succeeds; synthesis failures degrade the response to
// text-only instead of failing it.
func (s *Service) Ask(ctx context.Context, req Request) (Response, error) {
	started := time.Now()
	timing := make(map[string]float64)

	question, err := s.resolveQuestion(ctx, req, timing)
	if err != nil {
		return Response{}, err
	}

	matches, err := s.retrieve(ctx, question, req.UseRetrieval, timing)
	if err != nil {
		return Response{}, err
	}

	history, err := s.memory.History(ctx)
	if err != nil {
		s.logger.Warn("conversation history unavailable, answering without it", zap.Error(err))
		history = nil
	}

	composeStart := time.Now()
	passages := make([]Passage, len(matches))
	for i, m := range matches {
		passages[i] = Passage{Text: m.Chunk.Text, Score: m.Score}
	}
	messages := s.composer.Compose(passages, history, question)
	timing[StageComposing] = seconds(composeStart)

	generateStart := time.Now()
	answer, err := s.generator.Generate(ctx, messages)
	timing[StageGenerating] = seconds(generateStart)
	if err != nil {
		return Response{}, errs.WrapStage(errs.KindGeneration, StageGenerating, "generate answer", err)
	}
	answer = strings.TrimSpace(answer)

	if err := s.memory.Add(ctx, memory.Turn{
		Question: question,
		Answer:   answer,
		AskedAt:  started.UTC(),
	}); err != nil {
		s.logger.Warn("failed to record conversation turn", zap.Error(err))
	}

	resp := Response{
		Question: question,
		Answer:   answer,
		Sources:  s.buildSources(ctx, matches),
		Timing:   timing,
	}

	if req.ReturnAudio && s.synthesizer != nil {
		synthStart := time.Now()
		path, err := s.synthesizer.Synthesize(ctx, answer)
		timing[StageSynthesizing] = seconds(synthStart)
		if err != nil {
			s.logger.Warn("answer synthesis failed, returning text only", zap.Error(err))
			resp.SynthesisFailed = true
		} else {
			resp.AudioPath = path
		}
	}

	timing["total"] = seconds(started)

	s.logger.Info("question answered",
		zap.Int("sources", len(resp.Sources)),
		zap.Bool("retrieval", req.UseRetrieval),
		zap.Bool("audio", resp.AudioPath != ""),
		zap.Duration("elapsed", time.Since(started)),
	)
	return resp, nil
}

func (s *Service) resolveQuestion(ctx context.Context, req Request, timing map[string]float64) (string, error) {
	if len(req.Audio) > 0 {
		if s.transcriber == nil {
			return "", errs.NewStage(errs.KindConfiguration, StageTranscribing, "no transcriber configured")
		}
		start := time.Now()
		text, err := s.transcriber.Transcribe(ctx, req.Audio, req.AudioFilename)
		timing[StageTranscribing] = seconds(start)
		if err != nil {
			return "", errs.WrapStage(errs.KindTranscription, StageTranscribing, "transcribe question audio", err)
		}
		return strings.TrimSpace(text), nil
	}

	question := strings.TrimSpace(req.Text)
	if question == "" {
		return "", errs.NewStage(errs.KindInvalidRequest, StageReceived, "question is empty: provide text or audio")
	}
	return question, nil
}

func (s *Service) retrieve(ctx context.Context, question string, enabled bool, timing map[string]float64) ([]index.Match, error) {
	if !enabled || s.retriever == nil {
		return nil, nil
	}

	start := time.Now()
	matches, err := s.retriever.Retrieve(ctx, question, s.topK, s.minScore)
	timing[StageRetrieving] = seconds(start)
	if err != nil {
		kind := errs.KindOf(err)
		if kind == "" {
			kind = errs.KindEmbedding
		}
		return nil, errs.WrapStage(kind, StageRetrieving, "retrieve passages", err)
	}
	return matches, nil
}

func (s *Service) buildSources(ctx context.Context, matches []index.Match) []Source {
	sources := make([]Source, len(matches))
	materialIDs := make([]string, 0, len(matches))
	seen := make(map[string]bool)

	for i, m := range matches {
		text := m.Chunk.Text
		if len(text) > snippetLimit {
			text = text[:snippetLimit] + "..."
		}
		sources[i] = Source{
			Text:     text,
			Score:    m.Score,
			Filename: m.Filename,
		}
		id := m.Chunk.DocumentID.String()
		if !seen[id] {
			seen[id] = true
			materialIDs = append(materialIDs, id)
		}
	}

	if s.insights == nil || len(materialIDs) == 0 {
		return sources
	}

	insights, err := s.insights.MaterialInsights(ctx, materialIDs)
	if err != nil {
		s.logger.Warn("material insights unavailable", zap.Error(err))
		return sources
	}

	for i, m := range matches {
		insight, ok := insights[m.Chunk.DocumentID.String()]
		if !ok {
			continue
		}
		sources[i].ChunkCount = insight.ChunkCount
		for _, related := range insight.Related {
			sources[i].Related = append(sources[i].Related, RelatedMaterial{
				ID:       related.ID,
				Filename: related.Filename,
			})
		}
	}
	return sources
}

func seconds(since time.Time) float64 {
	return time.Since(since).Seconds()
}
