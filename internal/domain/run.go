// Package domain contains the core types shared across the orchestrator,
// the export adapters and the persistence layer.
package domain

import (
	"encoding/json"
	"sort"
	"time"
)

// PromptContext is the input handed to an agent's prompt builder.
type PromptContext struct {
	Description string
	DatasetID   string
}

// RunRequest describes one orchestration run.
type RunRequest struct {
	Description   string   `json:"description"`
	Agents        []string `json:"agents,omitempty"`
	ExportEnabled *bool    `json:"export_enabled,omitempty"`
	DatasetID     string   `json:"dataset_id,omitempty"`
	Persist       bool     `json:"persist,omitempty"`
}

// AgentResult is the outcome of a single agent: either a parsed JSON value
// or a terminal error carrying the raw model output.
type AgentResult struct {
	Value json.RawMessage
	Err   string
	Raw   string
}

// OK reports whether the agent produced a parsed value.
func (r AgentResult) OK() bool {
	return r.Err == ""
}

// SuccessResult wraps a parsed JSON payload.
func SuccessResult(value json.RawMessage) AgentResult {
	return AgentResult{Value: value}
}

// ErrorResult records a terminal per-agent failure.
func ErrorResult(msg, raw string) AgentResult {
	return AgentResult{Err: msg, Raw: raw}
}

// MarshalJSON keeps the wire shape compatible with the original API:
// a success serializes as the payload itself, a failure as an object
// with "_error" and "raw" keys.
func (r AgentResult) MarshalJSON() ([]byte, error) {
	if r.OK() {
		if len(r.Value) == 0 {
			return []byte("null"), nil
		}
		return r.Value, nil
	}
	return json.Marshal(map[string]string{"_error": r.Err, "raw": r.Raw})
}

// UnmarshalJSON is the inverse of MarshalJSON. Objects carrying an "_error"
// key decode as error results, everything else as a success payload.
func (r *AgentResult) UnmarshalJSON(data []byte) error {
	var probe struct {
		Err *string `json:"_error"`
		Raw string  `json:"raw"`
	}
	if err := json.Unmarshal(data, &probe); err == nil && probe.Err != nil {
		*r = AgentResult{Err: *probe.Err, Raw: probe.Raw}
		return nil
	}
	*r = AgentResult{Value: append(json.RawMessage(nil), data...)}
	return nil
}

// RunResult maps agent keys to their results. Agents run concurrently, so
// the map carries no arrival order; consumers key by agent name.
type RunResult map[string]AgentResult

// Errors returns the keys of agents that failed, in sorted order.
func (rr RunResult) Errors() []string {
	var keys []string
	for k, v := range rr {
		if !v.OK() {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// PersistedRun is an append-only run record owned by the store.
type PersistedRun struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Description string    `json:"description"`
	Results     RunResult `json:"results"`
	CreatedAt   time.Time `json:"created_at"`
}

// Dataset is the metadata of an uploaded tabular file.
type Dataset struct {
	ID           string    `json:"dataset_id"`
	Name         string    `json:"name"`
	Path         string    `json:"-"`
	DomainColumn string    `json:"domain_column,omitempty"`
	Columns      []string  `json:"columns"`
	Rows         int       `json:"rows"`
	CreatedAt    time.Time `json:"created_at"`
}
