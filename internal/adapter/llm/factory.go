package llm

import (
	"fmt"
	"log/slog"
	"os"
	"time"
)

const (
	// EnvMoonshotMode is the environment variable name for mode selection.
	EnvMoonshotMode = "MOONSHOT_MODE"
	// ModeMock forces the mock client regardless of the configured provider.
	ModeMock = "MOCK"
)

// Provider identifiers. "kimi" and "ollama" reuse the OpenAI wire format
// with their own base URLs.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderKimi      = "kimi"
	ProviderOllama    = "ollama"
	ProviderMock      = "mock"
)

// Default endpoints and models per provider.
var defaultBaseURLs = map[string]string{
	ProviderOpenAI: "https://api.openai.com",
	ProviderKimi:   "https://api.moonshot.cn",
	ProviderOllama: "http://localhost:11434",
}

var defaultModels = map[string]string{
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderAnthropic: "claude-3-5-haiku-20241022",
	ProviderKimi:      "kimi-k2-instruct",
	ProviderOllama:    "llama3.1",
}

// Config selects and configures a provider.
type Config struct {
	Provider      string
	Model         string
	BaseURL       string
	APIKey        string
	Timeout       time.Duration
	MaxAttempts   int
	RetryInterval time.Duration
}

// New builds a Client for the configured provider, wrapped with the retry
// ceiling. Missing credentials are a configuration error surfaced here,
// before any run starts.
func New(cfg Config) (Client, error) {
	if os.Getenv(EnvMoonshotMode) == ModeMock {
		slog.Info("MOONSHOT_MODE=MOCK detected, using mock LLM client")
		cfg.Provider = ProviderMock
	}
	base, err := newBase(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.MaxAttempts > 1 {
		base = WithRetry(base, uint64(cfg.MaxAttempts), cfg.RetryInterval)
	}
	return base, nil
}

func newBase(cfg Config) (Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	model := cfg.Model
	if model == "" {
		model = defaultModels[cfg.Provider]
	}

	switch cfg.Provider {
	case ProviderMock:
		return NewMockClient(), nil

	case ProviderAnthropic:
		return NewAnthropicClient(cfg.APIKey, model)

	case ProviderOpenAI, ProviderKimi:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("provider %s requires an API key", cfg.Provider)
		}
		return NewOpenAIClient(baseURL(cfg), cfg.APIKey, model, timeout), nil

	case ProviderOllama:
		// Local endpoint, no credentials.
		return NewOpenAIClient(baseURL(cfg), "", model, timeout), nil

	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}

func baseURL(cfg Config) string {
	if cfg.BaseURL != "" {
		return cfg.BaseURL
	}
	return defaultBaseURLs[cfg.Provider]
}
