// Package orchestrator fans a project description out to the selected
// agents, joins their results and hands the mapping to the export worker.
package orchestrator

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/Capybaralifestyle/moonshot-poc/internal/adapter/llm"
	"github.com/Capybaralifestyle/moonshot-poc/internal/agent"
	"github.com/Capybaralifestyle/moonshot-poc/internal/domain"
	"github.com/Capybaralifestyle/moonshot-poc/internal/export"
	"github.com/Capybaralifestyle/moonshot-poc/internal/metrics"
)

// Options tunes an Orchestrator.
type Options struct {
	// ExportWorker receives results after the join. Nil disables export.
	ExportWorker *export.Worker
	// ExportDefault applies when a request carries no export override.
	ExportDefault bool
	// MaxConcurrent caps in-flight agent calls. 0 means no cap.
	MaxConcurrent int
	Logger        *slog.Logger
}

// Orchestrator runs agents concurrently over one description.
type Orchestrator struct {
	registry *agent.Registry
	client   llm.Client
	opts     Options
	logger   *slog.Logger
	tracer   trace.Tracer
}

// New creates an orchestrator over an immutable registry and an LLM client.
func New(registry *agent.Registry, client llm.Client, opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		registry: registry,
		client:   client,
		opts:     opts,
		logger:   logger,
		tracer:   otel.Tracer("orchestrator"),
	}
}

// Run executes the selected agents concurrently and returns a result keyed
// by exactly the requested agent set. Unknown agent names are rejected
// before any network call. One agent's failure never affects its siblings.
func (o *Orchestrator) Run(ctx context.Context, req domain.RunRequest) (domain.RunResult, error) {
	if strings.TrimSpace(req.Description) == "" {
		metrics.RunsTotal.WithLabelValues("rejected").Inc()
		return nil, domain.ErrEmptyDescription
	}
	keys := dedupe(req.Agents)
	if len(keys) == 0 {
		keys = o.registry.Keys()
	}
	if len(keys) == 0 {
		metrics.RunsTotal.WithLabelValues("rejected").Inc()
		return nil, domain.ErrNoAgents
	}
	if err := o.registry.Validate(keys); err != nil {
		metrics.RunsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	runID := "run_" + uuid.New().String()[:8]
	start := time.Now()
	ctx, span := o.tracer.Start(ctx, "orchestrator.run",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.Int("run.agents", len(keys)),
		))
	defer span.End()

	o.logger.Info("run started", "run_id", runID, "agents", keys)

	promptCtx := domain.PromptContext{Description: req.Description, DatasetID: req.DatasetID}

	// Each goroutine writes only its own slot; the map is built at the join.
	entries := make([]domain.AgentResult, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	if o.opts.MaxConcurrent > 0 {
		g.SetLimit(o.opts.MaxConcurrent)
	}
	for i, key := range keys {
		g.Go(func() error {
			entries[i] = o.runAgent(gctx, runID, key, promptCtx)
			return nil
		})
	}
	// Agent goroutines never return errors; failures land in their entries.
	_ = g.Wait()

	results := make(domain.RunResult, len(keys))
	for i, key := range keys {
		results[key] = entries[i]
	}

	outcome := "ok"
	if failed := results.Errors(); len(failed) > 0 {
		outcome = "partial"
		o.logger.Warn("run finished with agent errors", "run_id", runID, "failed", failed)
	}
	metrics.RunsTotal.WithLabelValues(outcome).Inc()
	metrics.RunDurationSeconds.Observe(time.Since(start).Seconds())
	o.logger.Info("run finished", "run_id", runID, "outcome", outcome, "elapsed", time.Since(start))

	if o.exportEnabled(req) && o.opts.ExportWorker != nil {
		o.opts.ExportWorker.Enqueue(results)
	}

	return results, nil
}

func (o *Orchestrator) runAgent(ctx context.Context, runID, key string, promptCtx domain.PromptContext) domain.AgentResult {
	spec, _ := o.registry.Get(key)

	ctx, span := o.tracer.Start(ctx, "orchestrator.agent",
		trace.WithAttributes(attribute.String("agent.key", key)))
	defer span.End()

	prompt := spec.BuildPrompt(promptCtx)
	raw, err := o.client.Complete(ctx, prompt)
	if err != nil {
		o.logger.Warn("agent call failed", "run_id", runID, "agent", key, "err", err)
		metrics.AgentResultsTotal.WithLabelValues(key, "error").Inc()
		return domain.ErrorResult(err.Error(), "")
	}

	res := spec.Parse(raw)
	if !res.OK() {
		o.logger.Warn("agent returned unparseable response", "run_id", runID, "agent", key, "err", res.Err)
		metrics.AgentResultsTotal.WithLabelValues(key, "parse_error").Inc()
		return res
	}
	metrics.AgentResultsTotal.WithLabelValues(key, "ok").Inc()
	return res
}

func (o *Orchestrator) exportEnabled(req domain.RunRequest) bool {
	if req.ExportEnabled != nil {
		return *req.ExportEnabled
	}
	return o.opts.ExportDefault
}

func dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	var out []string
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
