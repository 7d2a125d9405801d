// Package metrics defines the Prometheus collectors for the service.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "moonshot"

var (
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of orchestrator runs, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	AgentResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_results_total",
			Help:      "Per-agent results, labeled by agent key and outcome.",
		},
		[]string{"agent", "outcome"},
	)

	LLMRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_retries_total",
			Help:      "Total number of LLM call retries after transient failures.",
		},
	)

	ExportJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_jobs_total",
			Help:      "Export jobs processed by the background worker, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	RunDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "End-to-end orchestrator run latency (seconds).",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)
)

// Register registers all collectors with the given registerer.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		RunsTotal,
		AgentResultsTotal,
		LLMRetriesTotal,
		ExportJobsTotal,
		RunDurationSeconds,
	)
}
