// Package embeddings provides the text embedding capability used by the
// index and the retriever. The vector dimension is a configuration constant
// shared by both; every implementation enforces it.
package embeddings

import (
	"context"

	"github.com/echolearn/go-tutor/config"
	"github.com/echolearn/go-tutor/errs"
)

type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type Options struct {
	Provider  string
	Model     string
	Dimension int

	OllamaHost    string
	OpenAIAPIKey  string
	OpenAIBaseURL string
}

func NewEmbedder(cfg config.Config) (Embedder, error) {
	opts := Options{
		Provider:      cfg.Embeddings.Provider,
		Model:         cfg.Embeddings.Model,
		Dimension:     cfg.Embeddings.Dimension,
		OllamaHost:    cfg.Ollama.Host,
		OpenAIAPIKey:  cfg.OpenAI.APIKey,
		OpenAIBaseURL: cfg.OpenAI.BaseURL,
	}

	switch opts.Provider {
	case config.ProviderOllama:
		return NewOllamaEmbedder(opts), nil
	case config.ProviderOpenAI:
		if opts.OpenAIAPIKey == "" {
			return nil, errs.New(errs.KindConfiguration, "openai provider selected but api key not set")
		}
		return NewOpenAIEmbedder(opts), nil
	default:
		return nil, errs.Newf(errs.KindConfiguration, "unknown embedding provider: %s", opts.Provider)
	}
}
