// Package config loads and validates the application configuration.
package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/echolearn/go-tutor/errs"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Config mirrors configs/config.yaml. Every value can be overridden with an
// ECHOTUTOR_-prefixed environment variable (dots become underscores).
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Neo4j      Neo4jConfig      `mapstructure:"neo4j"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Ollama     OllamaConfig     `mapstructure:"ollama"`
	Embeddings EmbeddingsConfig `mapstructure:"embeddings"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Audio      AudioConfig      `mapstructure:"audio"`
	Chunking   ChunkingConfig   `mapstructure:"chunking"`
	Retrieval  RetrievalConfig  `mapstructure:"retrieval"`
	Memory     MemoryConfig     `mapstructure:"memory"`
}

type ServerConfig struct {
	Port                string `mapstructure:"port"`
	Mode                string `mapstructure:"mode"`
	IngestTimeoutSecs   int    `mapstructure:"ingest_timeout_seconds"`
	QuestionTimeoutSecs int    `mapstructure:"question_timeout_seconds"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	PostgresDSN string      `mapstructure:"postgres_dsn"`
	Redis       RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Neo4jConfig enables the optional study-material graph when URI is set.
type Neo4jConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

type OllamaConfig struct {
	Host string `mapstructure:"host"`
}

type EmbeddingsConfig struct {
	Provider  string `mapstructure:"provider"`
	Model     string `mapstructure:"model"`
	Dimension int    `mapstructure:"dimension"`
}

type LLMConfig struct {
	Provider       string `mapstructure:"provider"`
	Model          string `mapstructure:"model"`
	MaxPromptChars int    `mapstructure:"max_prompt_chars"`
}

type AudioConfig struct {
	TranscriptionModel string `mapstructure:"transcription_model"`
	SpeechModel        string `mapstructure:"speech_model"`
	SpeechVoice        string `mapstructure:"speech_voice"`
	OutputDir          string `mapstructure:"output_dir"`
}

type ChunkingConfig struct {
	MaxChunkSize int `mapstructure:"max_chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap"`
}

type RetrievalConfig struct {
	TopK     int     `mapstructure:"top_k"`
	MinScore float64 `mapstructure:"min_score"`
}

type MemoryConfig struct {
	Backend  string `mapstructure:"backend"`
	MaxTurns int    `mapstructure:"max_turns"`
}

// Load reads the YAML file at path, applies environment overrides and
// defaults, and validates the result.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("ECHOTUTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, errs.Wrap(errs.KindConfiguration, "read config file", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(errs.KindConfiguration, "unmarshal config", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.ingest_timeout_seconds", 300)
	v.SetDefault("server.question_timeout_seconds", 120)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("database.postgres_dsn", "postgres://localhost:5432/echotutor?sslmode=disable")
	v.SetDefault("ollama.host", "http://localhost:11434")
	v.SetDefault("embeddings.provider", ProviderOpenAI)
	v.SetDefault("embeddings.model", "text-embedding-3-small")
	v.SetDefault("embeddings.dimension", 1536)
	v.SetDefault("llm.provider", ProviderOpenAI)
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.max_prompt_chars", 24000)
	v.SetDefault("audio.transcription_model", "whisper-1")
	v.SetDefault("audio.speech_model", "tts-1")
	v.SetDefault("audio.speech_voice", "alloy")
	v.SetDefault("audio.output_dir", "data/audio")
	v.SetDefault("chunking.max_chunk_size", 1000)
	v.SetDefault("chunking.chunk_overlap", 200)
	v.SetDefault("retrieval.top_k", 5)
	v.SetDefault("retrieval.min_score", 0.3)
	v.SetDefault("memory.backend", "memory")
	v.SetDefault("memory.max_turns", 10)
}

// Validate enforces the startup invariants. Violations are configuration
// errors and abort the process; they are never surfaced per-request.
func (c Config) Validate() error {
	if c.Embeddings.Dimension <= 0 {
		return errs.New(errs.KindConfiguration, "embeddings.dimension must be positive")
	}
	if c.Chunking.MaxChunkSize <= 0 {
		return errs.New(errs.KindConfiguration, "chunking.max_chunk_size must be positive")
	}
	if c.Chunking.ChunkOverlap < 0 || c.Chunking.ChunkOverlap >= c.Chunking.MaxChunkSize {
		return errs.New(errs.KindConfiguration, "chunking.chunk_overlap must be in [0, max_chunk_size)")
	}
	if c.Retrieval.TopK <= 0 {
		return errs.New(errs.KindConfiguration, "retrieval.top_k must be positive")
	}
	if c.Memory.MaxTurns <= 0 {
		return errs.New(errs.KindConfiguration, "memory.max_turns must be positive")
	}
	switch c.Memory.Backend {
	case "memory":
	case "redis":
		if c.Database.Redis.Addr == "" {
			return errs.New(errs.KindConfiguration, "memory.backend is redis but database.redis.addr is empty")
		}
	default:
		return errs.Newf(errs.KindConfiguration, "unknown memory backend: %s", c.Memory.Backend)
	}

	for _, provider := range []string{c.Embeddings.Provider, c.LLM.Provider} {
		switch provider {
		case ProviderOllama:
		case ProviderOpenAI:
			if c.OpenAI.APIKey == "" {
				return errs.New(errs.KindConfiguration, "openai provider selected but openai.api_key not set")
			}
		default:
			return errs.Newf(errs.KindConfiguration, "unknown provider: %s", provider)
		}
	}

	// The audio round trip is OpenAI-only; it needs a key even when the
	// text providers run against Ollama.
	if c.OpenAI.APIKey == "" {
		return errs.New(errs.KindConfiguration, "openai.api_key is required for transcription and speech synthesis")
	}
	return nil
}
