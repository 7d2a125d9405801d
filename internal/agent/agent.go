// Package agent defines the planning agents: named prompt templates with a
// response parser. The registry is immutable and built once at startup.
package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/Capybaralifestyle/moonshot-poc/internal/domain"
)

// Spec is one agent: a prompt builder and a response parser. Specs are
// defined at process start and never mutated.
type Spec struct {
	// Key is the unique registry key ("architect", "pm", ...).
	Key string
	// Name is the display name used in logs and exports.
	Name string
	// BuildPrompt renders the agent's prompt for the given context.
	BuildPrompt func(ctx domain.PromptContext) string
	// Parse turns the raw model output into a result.
	Parse func(raw string) domain.AgentResult
}

// Registry is an immutable name → Spec mapping.
type Registry struct {
	specs map[string]Spec
	keys  []string
}

// NewRegistry builds the default registry with all planning agents.
func NewRegistry() *Registry {
	return newRegistry(defaultSpecs())
}

func newRegistry(specs []Spec) *Registry {
	m := make(map[string]Spec, len(specs))
	keys := make([]string, 0, len(specs))
	for _, s := range specs {
		m[s.Key] = s
		keys = append(keys, s.Key)
	}
	sort.Strings(keys)
	return &Registry{specs: m, keys: keys}
}

// Get returns the spec for key.
func (r *Registry) Get(key string) (Spec, bool) {
	s, ok := r.specs[key]
	return s, ok
}

// Has reports whether key is registered.
func (r *Registry) Has(key string) bool {
	_, ok := r.specs[key]
	return ok
}

// Keys returns all registered keys in stable sorted order.
func (r *Registry) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Validate checks that every key in keys is registered.
func (r *Registry) Validate(keys []string) error {
	for _, k := range keys {
		if !r.Has(k) {
			return fmt.Errorf("%w: %s", domain.ErrUnknownAgent, k)
		}
	}
	return nil
}

// ParseJSON is the default response parser: it expects a JSON object,
// tolerating markdown code fences around it. Anything else becomes a
// terminal error result carrying the raw text.
func ParseJSON(name string) func(raw string) domain.AgentResult {
	return func(raw string) domain.AgentResult {
		trimmed := stripFences(raw)
		if trimmed == "" {
			return domain.ErrorResult(fmt.Sprintf("empty response from %s", name), raw)
		}
		if !json.Valid([]byte(trimmed)) {
			return domain.ErrorResult(fmt.Sprintf("invalid JSON from %s", name), raw)
		}
		var compact bytes.Buffer
		if err := json.Compact(&compact, []byte(trimmed)); err != nil {
			return domain.ErrorResult(fmt.Sprintf("invalid JSON from %s", name), raw)
		}
		return domain.SuccessResult(json.RawMessage(compact.Bytes()))
	}
}

// stripFences removes a surrounding ```json ... ``` fence if present.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 {
		// drop the language tag line ("json", "JSON", or empty)
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
