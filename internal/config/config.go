// Package config loads the service configuration: defaults, then an
// optional YAML file, then MOONSHOT_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	HTTP      HTTPConfig      `koanf:"http"`
	LLM       LLMConfig       `koanf:"llm"`
	Export    ExportConfig    `koanf:"export"`
	Store     StoreConfig     `koanf:"store"`
	Auth      AuthConfig      `koanf:"auth"`
	Redis     RedisConfig     `koanf:"redis"`
	Dataset   DatasetConfig   `koanf:"dataset"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Log       LogConfig       `koanf:"log"`
}

type HTTPConfig struct {
	Port int `koanf:"port"`
}

type LLMConfig struct {
	Provider        string `koanf:"provider"` // openai, anthropic, kimi, ollama, mock
	Model           string `koanf:"model"`
	BaseURL         string `koanf:"base_url"`
	APIKey          string `koanf:"api_key"`
	TimeoutMS       int    `koanf:"timeout_ms"`
	MaxAttempts     int    `koanf:"max_attempts"`
	RetryIntervalMS int    `koanf:"retry_interval_ms"`
	MaxConcurrent   int    `koanf:"max_concurrent"`
}

type ExportConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Format    string `koanf:"format"` // xlsx, csv
	Path      string `koanf:"path"`
	QueueSize int    `koanf:"queue_size"`
}

type StoreConfig struct {
	Backend        string `koanf:"backend"` // sqlite, supabase
	SQLiteDSN      string `koanf:"sqlite_dsn"`
	SupabaseURL    string `koanf:"supabase_url"`
	SupabaseKey    string `koanf:"supabase_key"`
	SupabaseTable  string `koanf:"supabase_table"`
	RequestTimeout int    `koanf:"request_timeout_ms"`
}

type AuthConfig struct {
	JWTSecret   string `koanf:"jwt_secret"`
	Issuer      string `koanf:"issuer"`
	ClockSkewMS int    `koanf:"clock_skew_ms"`
}

type RedisConfig struct {
	Addr              string `koanf:"addr"`
	RequestsPerMinute int    `koanf:"requests_per_minute"`
	BurstSize         int    `koanf:"burst_size"`
}

type DatasetConfig struct {
	Dir string `koanf:"dir"`
}

type TelemetryConfig struct {
	OTLPEndpoint string `koanf:"otlp_endpoint"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

// Load reads the configuration. path may be empty.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Defaults
	k.Set("http.port", 8080)
	k.Set("llm.provider", "mock")
	k.Set("llm.timeout_ms", 60000)
	k.Set("llm.max_attempts", 3)
	k.Set("llm.retry_interval_ms", 500)
	k.Set("llm.max_concurrent", 4)
	k.Set("export.enabled", false)
	k.Set("export.format", "xlsx")
	k.Set("export.path", "moonshot_results.xlsx")
	k.Set("export.queue_size", 16)
	k.Set("store.backend", "sqlite")
	k.Set("store.sqlite_dsn", "file:moonshot.db?cache=shared&mode=rwc")
	k.Set("store.supabase_table", "project_runs")
	k.Set("store.request_timeout_ms", 15000)
	k.Set("auth.clock_skew_ms", 30000)
	k.Set("redis.requests_per_minute", 30)
	k.Set("redis.burst_size", 10)
	k.Set("dataset.dir", "datasets")
	k.Set("log.level", "info")
	k.Set("log.format", "text")

	// 1. Load from file
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// 2. Load from ENV (MOONSHOT_LLM_PROVIDER -> llm.provider)
	if err := k.Load(env.Provider("MOONSHOT_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "MOONSHOT_")), "_", ".", 1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// LLMTimeout returns the per-call LLM timeout.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutMS) * time.Millisecond
}

// RetryInterval returns the initial retry backoff delay.
func (c *Config) RetryInterval() time.Duration {
	return time.Duration(c.LLM.RetryIntervalMS) * time.Millisecond
}

// ClockSkew returns the JWT validation leeway.
func (c *Config) ClockSkew() time.Duration {
	return time.Duration(c.Auth.ClockSkewMS) * time.Millisecond
}

// StoreTimeout returns the hosted-store request timeout.
func (c *Config) StoreTimeout() time.Duration {
	return time.Duration(c.Store.RequestTimeout) * time.Millisecond
}
