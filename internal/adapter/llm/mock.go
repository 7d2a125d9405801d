package llm

import (
	"context"
	"fmt"
	"strings"
)

// MockClient is an offline Client for demos and tests. It returns a small
// JSON object so the agents' parsers succeed without a provider.
type MockClient struct{}

// NewMockClient creates a new mock LLM client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Complete returns canned JSON echoing the start of the prompt.
func (m *MockClient) Complete(ctx context.Context, prompt string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	first := prompt
	if i := strings.Index(prompt, "\n"); i >= 0 {
		first = prompt[:i]
	}
	return fmt.Sprintf(`{"mock": true, "prompt_head": %q}`, truncate(first, 100)), nil
}

// truncate shortens a string to maxLen bytes.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
