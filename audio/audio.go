// Package audio bridges spoken input and output: speech-to-text before
// orchestration and speech synthesis after it.
package audio

import (
	"context"

	"github.com/echolearn/go-tutor/config"
	"github.com/echolearn/go-tutor/errs"
)

// Transcriber converts recorded audio into question text. It may fail on
// unsupported formats or silence; such failures abort the request.
type Transcriber interface {
	Transcribe(ctx context.Context, data []byte, filename string) (string, error)
}

// Synthesizer renders answer text to an audio file and returns a reference
// to it. Synthesis failures are non-fatal to the overall answer.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (string, error)
}

type Options struct {
	TranscriptionModel string
	SpeechModel        string
	SpeechVoice        string
	OutputDir          string

	OpenAIAPIKey  string
	OpenAIBaseURL string
}

// NewBridge builds both audio capabilities from the configuration. Only the
// OpenAI provider implements them.
func NewBridge(cfg config.Config) (Transcriber, Synthesizer, error) {
	if cfg.OpenAI.APIKey == "" {
		return nil, nil, errs.New(errs.KindConfiguration, "openai api key is required for the audio bridge")
	}

	opts := Options{
		TranscriptionModel: cfg.Audio.TranscriptionModel,
		SpeechModel:        cfg.Audio.SpeechModel,
		SpeechVoice:        cfg.Audio.SpeechVoice,
		OutputDir:          cfg.Audio.OutputDir,
		OpenAIAPIKey:       cfg.OpenAI.APIKey,
		OpenAIBaseURL:      cfg.OpenAI.BaseURL,
	}

	transcriber := NewOpenAITranscriber(opts)
	synthesizer, err := NewOpenAISynthesizer(opts)
	if err != nil {
		return nil, nil, err
	}
	return transcriber, synthesizer, nil
}
