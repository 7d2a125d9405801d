package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Capybaralifestyle/moonshot-poc/internal/adapter/llm"
	"github.com/Capybaralifestyle/moonshot-poc/internal/agent"
	"github.com/Capybaralifestyle/moonshot-poc/internal/auth"
	"github.com/Capybaralifestyle/moonshot-poc/internal/config"
	"github.com/Capybaralifestyle/moonshot-poc/internal/dataset"
	"github.com/Capybaralifestyle/moonshot-poc/internal/export"
	"github.com/Capybaralifestyle/moonshot-poc/internal/metrics"
	"github.com/Capybaralifestyle/moonshot-poc/internal/orchestrator"
	"github.com/Capybaralifestyle/moonshot-poc/internal/ratelimit"
	"github.com/Capybaralifestyle/moonshot-poc/internal/store"
	"github.com/Capybaralifestyle/moonshot-poc/internal/telemetry"
	handler "github.com/Capybaralifestyle/moonshot-poc/internal/transport/http"
	"github.com/Capybaralifestyle/moonshot-poc/policy"
)

func main() {
	// A missing .env is fine; environment variables still apply.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("MOONSHOT_CONFIG"))
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting moonshot service",
		"port", cfg.HTTP.Port,
		"provider", cfg.LLM.Provider,
		"store", cfg.Store.Backend,
		"export_default", cfg.Export.Enabled)

	metrics.Register(prometheus.DefaultRegisterer)

	ctx := context.Background()
	shutdownTracing, err := telemetry.Init(ctx, "moonshot-poc", cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		logger.Error("failed to initialize tracing", "err", err)
		os.Exit(1)
	}

	// LLM client
	llmClient, err := llm.New(llm.Config{
		Provider:      cfg.LLM.Provider,
		Model:         cfg.LLM.Model,
		BaseURL:       cfg.LLM.BaseURL,
		APIKey:        cfg.LLM.APIKey,
		Timeout:       cfg.LLMTimeout(),
		MaxAttempts:   cfg.LLM.MaxAttempts,
		RetryInterval: cfg.RetryInterval(),
	})
	if err != nil {
		logger.Error("failed to initialize LLM client", "err", err)
		os.Exit(1)
	}

	// Agent registry
	registry := agent.NewRegistry()

	// Export worker. Always running: a request can enable export even
	// when the default is off.
	worker := export.NewWorker(newExporter(cfg.Export), cfg.Export.QueueSize, logger)
	worker.Start()

	// Orchestrator
	orch := orchestrator.New(registry, llmClient, orchestrator.Options{
		ExportWorker:  worker,
		ExportDefault: cfg.Export.Enabled,
		MaxConcurrent: cfg.LLM.MaxConcurrent,
		Logger:        logger,
	})

	// Store
	st, err := newStore(cfg)
	if err != nil {
		logger.Error("failed to initialize store", "err", err)
		os.Exit(1)
	}
	if st != nil {
		defer st.Close()
	}

	// Token verifier
	var verifier *auth.Verifier
	if cfg.Auth.JWTSecret != "" {
		verifier, err = auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.ClockSkew())
		if err != nil {
			logger.Error("failed to initialize token verifier", "err", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("no JWT secret configured, all runs are anonymous")
	}

	// Persistence policy
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		logger.Error("failed to initialize policy engine", "err", err)
		os.Exit(1)
	}

	// Dataset registry
	datasets, err := dataset.NewRegistry(cfg.Dataset.Dir)
	if err != nil {
		logger.Error("failed to initialize dataset registry", "err", err)
		os.Exit(1)
	}

	// Rate limiter
	var limiter ratelimit.Limiter
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		limiter = ratelimit.NewTokenBucketLimiter(rdb)
		defer rdb.Close()
	}

	h := handler.NewHandler(handler.Options{
		Registry:     registry,
		Orchestrator: orch,
		Store:        st,
		Verifier:     verifier,
		Policy:       policyEngine,
		Datasets:     datasets,
		Limiter:      limiter,
		Bucket: ratelimit.Bucket{
			RequestsPerMinute: cfg.Redis.RequestsPerMinute,
			BurstSize:         cfg.Redis.BurstSize,
		},
		Logger: logger,
	})

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	h.RegisterRoutes(e)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Error("server stopped", "err", err)
			os.Exit(1)
		}
	}()
	logger.Info("HTTP server started", "port", cfg.HTTP.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shut down server gracefully", "err", err)
	}
	worker.Close()
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("failed to flush traces", "err", err)
	}
	logger.Info("stopped")
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func newExporter(cfg config.ExportConfig) export.Exporter {
	if cfg.Format == "csv" {
		return export.NewCSVExporter(cfg.Path)
	}
	return export.NewExcelExporter(cfg.Path)
}

func newStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case "supabase":
		return store.NewSupabaseStore(cfg.Store.SupabaseURL, cfg.Store.SupabaseKey, cfg.Store.SupabaseTable, cfg.StoreTimeout())
	case "sqlite":
		return store.NewSQLiteStore(cfg.Store.SQLiteDSN)
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
