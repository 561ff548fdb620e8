package llm

import (
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/mnemolabs/mnemo/config"
)

// Factory creates generator clients with consistent logic.
type Factory struct {
	AnthropicAPIKey string
	AnthropicModel  string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	OpenAIModel     string
}

func NewFactory(cfg *config.Config) *Factory {
	return &Factory{
		AnthropicAPIKey: cfg.AnthropicAPIKey,
		AnthropicModel:  cfg.AnthropicModel,
		OpenAIAPIKey:    cfg.OpenAIAPIKey,
		OpenAIBaseURL:   cfg.OpenAIBaseURL,
		OpenAIModel:     cfg.OpenAIModel,
	}
}

// CreateClient builds a Generator for the given provider.
// Missing credentials for the selected provider are a hard error here,
// at construction time, not on first call.
func (f *Factory) CreateClient(provider string) (Generator, error) {
	switch strings.ToLower(provider) {
	case string(config.ProviderAnthropic):
		if f.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required for provider %q", provider)
		}
		client := anthropic.NewClient(option.WithAPIKey(f.AnthropicAPIKey))
		return NewAnthropic(&client, f.AnthropicModel), nil
	case string(config.ProviderOpenAI):
		if f.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for provider %q", provider)
		}
		return NewOpenAI(f.OpenAIAPIKey, f.OpenAIBaseURL, f.OpenAIModel), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", provider)
	}
}
