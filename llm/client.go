package llm

import "context"

// Generator is a single-shot text generation client.
// The memory core treats generation as a black box: prompt in, text out.
// No streaming, no tool calls.
//
// Implementations: AnthropicClient, OpenAIClient.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
