package audio

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"github.com/echolearn/go-tutor/errs"
)

type openAITranscriber struct {
	client *openai.Client
	model  string
}

func NewOpenAITranscriber(opts Options) Transcriber {
	cfg := openai.DefaultConfig(opts.OpenAIAPIKey)
	if opts.OpenAIBaseURL != "" {
		cfg.BaseURL = opts.OpenAIBaseURL
	}

	return &openAITranscriber{
		client: openai.NewClientWithConfig(cfg),
		model:  opts.TranscriptionModel,
	}
}

func (t *openAITranscriber) Transcribe(ctx context.Context, data []byte, filename string) (string, error) {
	if len(data) == 0 {
		return "", errs.New(errs.KindTranscription, "audio payload is empty")
	}
	if filename == "" {
		filename = "question.wav"
	}

	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: filename,
		Reader:   bytes.NewReader(data),
	})
	if err != nil {
		return "", errs.Wrap(errs.KindTranscription, "create transcription", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", errs.New(errs.KindTranscription, "no speech recognized in the recording")
	}
	return text, nil
}

type openAISynthesizer struct {
	client    *openai.Client
	model     string
	voice     string
	outputDir string
}

func NewOpenAISynthesizer(opts Options) (Synthesizer, error) {
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, errs.Wrap(errs.KindConfiguration, "create audio output dir", err)
	}

	cfg := openai.DefaultConfig(opts.OpenAIAPIKey)
	if opts.OpenAIBaseURL != "" {
		cfg.BaseURL = opts.OpenAIBaseURL
	}

	return &openAISynthesizer{
		client:    openai.NewClientWithConfig(cfg),
		model:     opts.SpeechModel,
		voice:     opts.SpeechVoice,
		outputDir: opts.OutputDir,
	}, nil
}

func (s *openAISynthesizer) Synthesize(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errs.New(errs.KindSynthesis, "nothing to synthesize")
	}

	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.model),
		Input:          text,
		Voice:          openai.SpeechVoice(s.voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return "", errs.Wrap(errs.KindSynthesis, "create speech", err)
	}
	defer resp.Close()

	path := filepath.Join(s.outputDir, uuid.NewString()+".mp3")
	out, err := os.Create(path)
	if err != nil {
		return "", errs.Wrap(errs.KindSynthesis, "create audio file", err)
	}

	if _, err := io.Copy(out, resp); err != nil {
		out.Close()
		_ = os.Remove(path)
		return "", errs.Wrap(errs.KindSynthesis, "write audio file", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(path)
		return "", errs.Wrap(errs.KindSynthesis, "close audio file", err)
	}

	return path, nil
}
