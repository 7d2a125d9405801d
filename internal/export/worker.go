package export

import (
	"log/slog"
	"sync"

	"github.com/Capybaralifestyle/moonshot-poc/internal/domain"
	"github.com/Capybaralifestyle/moonshot-poc/internal/metrics"
)

// Worker decouples export I/O from the request path: results are handed to
// a bounded queue and written by a single background goroutine. Enqueue
// never blocks and exporter errors are logged, not returned.
type Worker struct {
	exporter Exporter
	jobs     chan domain.RunResult
	logger   *slog.Logger

	startOnce sync.Once
	closeOnce sync.Once
	done      chan struct{}
}

// NewWorker creates a worker with the given queue capacity.
func NewWorker(exporter Exporter, queueSize int, logger *slog.Logger) *Worker {
	if queueSize <= 0 {
		queueSize = 16
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		exporter: exporter,
		jobs:     make(chan domain.RunResult, queueSize),
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start launches the background goroutine. Safe to call once.
func (w *Worker) Start() {
	w.startOnce.Do(func() {
		go w.loop()
	})
}

// Enqueue hands a result to the worker. It returns false, logging and
// counting the drop, when the queue is full.
func (w *Worker) Enqueue(results domain.RunResult) bool {
	select {
	case w.jobs <- results:
		return true
	default:
		w.logger.Warn("export queue full, dropping job", "agents", len(results))
		metrics.ExportJobsTotal.WithLabelValues("dropped").Inc()
		return false
	}
}

// Close drains the queue and stops the worker.
func (w *Worker) Close() {
	w.closeOnce.Do(func() {
		close(w.jobs)
		<-w.done
	})
}

func (w *Worker) loop() {
	defer close(w.done)
	for results := range w.jobs {
		if err := w.exporter.Export(results); err != nil {
			w.logger.Error("export failed", "err", err)
			metrics.ExportJobsTotal.WithLabelValues("error").Inc()
			continue
		}
		metrics.ExportJobsTotal.WithLabelValues("ok").Inc()
	}
}
