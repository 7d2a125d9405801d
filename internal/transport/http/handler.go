// Package handler provides the HTTP surface of the service.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Capybaralifestyle/moonshot-poc/internal/agent"
	"github.com/Capybaralifestyle/moonshot-poc/internal/auth"
	"github.com/Capybaralifestyle/moonshot-poc/internal/dataset"
	"github.com/Capybaralifestyle/moonshot-poc/internal/orchestrator"
	"github.com/Capybaralifestyle/moonshot-poc/internal/ratelimit"
	"github.com/Capybaralifestyle/moonshot-poc/internal/store"
	"github.com/Capybaralifestyle/moonshot-poc/policy"
	"github.com/Capybaralifestyle/moonshot-poc/web"
)

// Handler handles HTTP requests.
type Handler struct {
	registry     *agent.Registry
	orchestrator *orchestrator.Orchestrator
	store        store.Store          // nil disables persistence
	verifier     *auth.Verifier       // nil means no token can verify
	policy       *policy.Engine
	datasets     *dataset.Registry    // nil disables uploads
	limiter      ratelimit.Limiter    // nil disables rate limiting
	bucket       ratelimit.Bucket
	logger       *slog.Logger
}

// Options collects the handler collaborators.
type Options struct {
	Registry     *agent.Registry
	Orchestrator *orchestrator.Orchestrator
	Store        store.Store
	Verifier     *auth.Verifier
	Policy       *policy.Engine
	Datasets     *dataset.Registry
	Limiter      ratelimit.Limiter
	Bucket       ratelimit.Bucket
	Logger       *slog.Logger
}

// NewHandler creates a new handler.
func NewHandler(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		registry:     opts.Registry,
		orchestrator: opts.Orchestrator,
		store:        opts.Store,
		verifier:     opts.Verifier,
		policy:       opts.Policy,
		datasets:     opts.Datasets,
		limiter:      opts.Limiter,
		bucket:       opts.Bucket,
		logger:       logger,
	}
}

// RegisterRoutes registers all routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
	e.GET("/agents", h.ListAgents)

	rl := h.rateLimit()
	e.POST("/run", h.Run, rl)
	e.POST("/projects/run", h.Run, rl)
	e.GET("/projects/latest", h.LatestProject)

	e.POST("/datasets", h.UploadDataset)
	e.GET("/datasets", h.ListDatasets)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	web.Register(e)
}

// Health returns health status.
// GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// ListAgents returns the available agent keys in stable order.
// GET /agents
func (h *Handler) ListAgents(c echo.Context) error {
	return c.JSON(http.StatusOK, h.registry.Keys())
}
