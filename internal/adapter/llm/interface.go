// Package llm abstracts the LLM providers behind a single text-in/text-out
// operation. This is the only package that knows provider wire formats.
package llm

import "context"

// Client sends a prompt and returns the model's text response.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Ensure the concrete clients implement Client.
var (
	_ Client = (*OpenAIClient)(nil)
	_ Client = (*AnthropicClient)(nil)
	_ Client = (*MockClient)(nil)
	_ Client = (*retryClient)(nil)
)
