package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v6"
)

type LLMProvider string

const (
	ProviderAnthropic LLMProvider = "anthropic"
	ProviderOpenAI    LLMProvider = "openai"
)

// Config holds process configuration, parsed from the environment.
type Config struct {
	// LLM settings
	LLMProvider     LLMProvider `env:"LLM_PROVIDER" envDefault:"anthropic"`
	AnthropicAPIKey string      `env:"ANTHROPIC_API_KEY"`
	AnthropicModel  string      `env:"ANTHROPIC_MODEL" envDefault:"claude-sonnet-4-20250514"`
	OpenAIAPIKey    string      `env:"OPENAI_API_KEY"`
	OpenAIBaseURL   string      `env:"OPENAI_BASE_URL"`
	OpenAIModel     string      `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`

	// Session lifecycle
	SessionWindow  time.Duration `env:"SESSION_WINDOW" envDefault:"30m"`
	SummarizeAfter time.Duration `env:"SUMMARIZE_AFTER" envDefault:"10m"`
	TickInterval   time.Duration `env:"TICK_INTERVAL" envDefault:"10m"`
	Retention      time.Duration `env:"SESSION_RETENTION" envDefault:"168h"`

	// Search
	SearchTier      string  `env:"SEARCH_TIER" envDefault:"balanced"`
	ScoreThreshold  float64 `env:"SCORE_THRESHOLD" envDefault:"0.5"`
	LongTermTopK    int     `env:"LONG_TERM_TOP_K" envDefault:"5"`
	LocalTurnLimit  int     `env:"LOCAL_TURN_LIMIT" envDefault:"5"`
	UploadChunkSize int     `env:"UPLOAD_CHUNK_SIZE" envDefault:"50"`

	// Embedder (onnx builds)
	ONNXModelPath     string `env:"ONNX_MODEL_PATH"`
	ONNXTokenizerPath string `env:"ONNX_TOKENIZER_PATH"`

	// HTTP demo server
	Port string `env:"PORT" envDefault:"8080"`
}

func New() *Config {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	return cfg
}
