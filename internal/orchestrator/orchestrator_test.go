package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Capybaralifestyle/moonshot-poc/internal/agent"
	"github.com/Capybaralifestyle/moonshot-poc/internal/domain"
	"github.com/Capybaralifestyle/moonshot-poc/internal/export"
)

// stubClient answers each prompt through fn and counts calls.
type stubClient struct {
	fn    func(prompt string) (string, error)
	calls atomic.Int64
}

func (s *stubClient) Complete(ctx context.Context, prompt string) (string, error) {
	s.calls.Add(1)
	return s.fn(prompt)
}

func okClient() *stubClient {
	return &stubClient{fn: func(string) (string, error) {
		return `{"ok": true}`, nil
	}}
}

func TestRunReturnsExactlyRequestedAgents(t *testing.T) {
	orch := New(agent.NewRegistry(), okClient(), Options{})

	results, err := orch.Run(context.Background(), domain.RunRequest{
		Description: "Global AI FinTech platform",
		Agents:      []string{"architect", "pm"},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d: %v", len(results), results)
	}
	for _, key := range []string{"architect", "pm"} {
		res, ok := results[key]
		if !ok {
			t.Fatalf("missing result for %s", key)
		}
		if !res.OK() {
			t.Fatalf("%s failed: %s", key, res.Err)
		}
	}
}

func TestRunDefaultsToAllAgents(t *testing.T) {
	registry := agent.NewRegistry()
	client := okClient()
	orch := New(registry, client, Options{})

	results, err := orch.Run(context.Background(), domain.RunRequest{Description: "an app"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(results) != len(registry.Keys()) {
		t.Fatalf("expected %d results, got %d", len(registry.Keys()), len(results))
	}
	if got := client.calls.Load(); got != int64(len(registry.Keys())) {
		t.Fatalf("expected one call per agent, got %d", got)
	}
}

func TestRunRejectsEmptyDescription(t *testing.T) {
	client := okClient()
	orch := New(agent.NewRegistry(), client, Options{})

	_, err := orch.Run(context.Background(), domain.RunRequest{Description: "   "})
	if !errors.Is(err, domain.ErrEmptyDescription) {
		t.Fatalf("expected ErrEmptyDescription, got %v", err)
	}
	if client.calls.Load() != 0 {
		t.Fatalf("no agent should run for a rejected request")
	}
}

func TestRunRejectsUnknownAgentBeforeAnyCall(t *testing.T) {
	client := okClient()
	orch := New(agent.NewRegistry(), client, Options{})

	_, err := orch.Run(context.Background(), domain.RunRequest{
		Description: "an app",
		Agents:      []string{"architect", "astrologer"},
	})
	if !errors.Is(err, domain.ErrUnknownAgent) {
		t.Fatalf("expected ErrUnknownAgent, got %v", err)
	}
	if client.calls.Load() != 0 {
		t.Fatalf("no agent should run when validation fails, got %d calls", client.calls.Load())
	}
}

func TestRunDeduplicatesAgents(t *testing.T) {
	client := okClient()
	orch := New(agent.NewRegistry(), client, Options{})

	results, err := orch.Run(context.Background(), domain.RunRequest{
		Description: "an app",
		Agents:      []string{"pm", "pm", " pm ", "architect"},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results after dedupe, got %d", len(results))
	}
	if client.calls.Load() != 2 {
		t.Fatalf("expected 2 calls after dedupe, got %d", client.calls.Load())
	}
}

func TestAgentFailureDoesNotAffectSiblings(t *testing.T) {
	// The pm prompt is the only one mentioning PMP certification.
	client := &stubClient{fn: func(prompt string) (string, error) {
		if strings.Contains(prompt, "PMP") {
			return "", errors.New("upstream timeout")
		}
		return `{"ok": true}`, nil
	}}
	orch := New(agent.NewRegistry(), client, Options{})

	results, err := orch.Run(context.Background(), domain.RunRequest{
		Description: "an app",
		Agents:      []string{"architect", "pm", "cost"},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if results["pm"].OK() {
		t.Fatalf("pm should have failed")
	}
	if !strings.Contains(results["pm"].Err, "upstream timeout") {
		t.Fatalf("pm error should carry the cause: %q", results["pm"].Err)
	}
	if !results["architect"].OK() || !results["cost"].OK() {
		t.Fatalf("siblings should be unaffected: %v", results.Errors())
	}
}

func TestUnparseableResponseBecomesErrorResult(t *testing.T) {
	client := &stubClient{fn: func(string) (string, error) {
		return "I would suggest a microservice architecture.", nil
	}}
	orch := New(agent.NewRegistry(), client, Options{})

	results, err := orch.Run(context.Background(), domain.RunRequest{
		Description: "an app",
		Agents:      []string{"architect"},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	res := results["architect"]
	if res.OK() {
		t.Fatalf("expected a parse failure")
	}
	if res.Raw != "I would suggest a microservice architecture." {
		t.Fatalf("raw text should be preserved: %q", res.Raw)
	}
	if client.calls.Load() != 1 {
		t.Fatalf("a parse failure must not be retried, got %d calls", client.calls.Load())
	}
}

// captureExporter records what the worker hands it.
type captureExporter struct {
	got chan domain.RunResult
}

func (c *captureExporter) Export(results domain.RunResult) error {
	c.got <- results
	return nil
}

func TestRunEnqueuesExportWhenEnabled(t *testing.T) {
	exp := &captureExporter{got: make(chan domain.RunResult, 1)}
	worker := export.NewWorker(exp, 4, nil)
	worker.Start()
	defer worker.Close()

	orch := New(agent.NewRegistry(), okClient(), Options{
		ExportWorker:  worker,
		ExportDefault: false,
	})

	enabled := true
	_, err := orch.Run(context.Background(), domain.RunRequest{
		Description:   "an app",
		Agents:        []string{"pm"},
		ExportEnabled: &enabled,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	select {
	case results := <-exp.got:
		if _, ok := results["pm"]; !ok {
			t.Fatalf("exported results missing pm: %v", results)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("export never reached the exporter")
	}
}

func TestRunSkipsExportWhenDisabled(t *testing.T) {
	exp := &captureExporter{got: make(chan domain.RunResult, 1)}
	worker := export.NewWorker(exp, 4, nil)
	worker.Start()

	orch := New(agent.NewRegistry(), okClient(), Options{
		ExportWorker:  worker,
		ExportDefault: true,
	})

	disabled := false
	_, err := orch.Run(context.Background(), domain.RunRequest{
		Description:   "an app",
		Agents:        []string{"pm"},
		ExportEnabled: &disabled,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	worker.Close()

	select {
	case <-exp.got:
		t.Fatalf("export should not run when the request disables it")
	default:
	}
}

func TestRunHonorsConcurrencyCap(t *testing.T) {
	var inFlight, peak atomic.Int64
	client := &stubClient{fn: func(string) (string, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		return `{"ok": true}`, nil
	}}
	orch := New(agent.NewRegistry(), client, Options{MaxConcurrent: 2})

	_, err := orch.Run(context.Background(), domain.RunRequest{Description: "an app"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if got := peak.Load(); got > 2 {
		t.Fatalf("concurrency cap exceeded: peak %d", got)
	}
}
