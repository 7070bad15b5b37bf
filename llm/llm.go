// Package llm provides the answer-generation capability.
package llm

import (
	"context"

	"github.com/echolearn/go-tutor/config"
	"github.com/echolearn/go-tutor/errs"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string
	Content string
}

type Client interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}

type Options struct {
	Provider string
	Model    string

	OllamaHost    string
	OpenAIAPIKey  string
	OpenAIBaseURL string
}

func NewClient(cfg config.Config) (Client, error) {
	opts := Options{
		Provider:      cfg.LLM.Provider,
		Model:         cfg.LLM.Model,
		OllamaHost:    cfg.Ollama.Host,
		OpenAIAPIKey:  cfg.OpenAI.APIKey,
		OpenAIBaseURL: cfg.OpenAI.BaseURL,
	}

	switch opts.Provider {
	case config.ProviderOllama:
		return NewOllamaClient(opts), nil
	case config.ProviderOpenAI:
		if opts.OpenAIAPIKey == "" {
			return nil, errs.New(errs.KindConfiguration, "openai provider selected but api key not set")
		}
		return NewOpenAIClient(opts), nil
	default:
		return nil, errs.Newf(errs.KindConfiguration, "unknown llm provider: %s", opts.Provider)
	}
}
