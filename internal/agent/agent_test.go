package agent

import (
	"errors"
	"strings"
	"testing"

	"github.com/Capybaralifestyle/moonshot-poc/internal/domain"
)

func TestRegistryKeysSorted(t *testing.T) {
	r := NewRegistry()
	keys := r.Keys()
	if len(keys) != 9 {
		t.Fatalf("expected 9 agents, got %d: %v", len(keys), keys)
	}
	for i := 1; i < len(keys); i++ {
		if keys[i-1] >= keys[i] {
			t.Fatalf("keys not sorted: %v", keys)
		}
	}
	for _, want := range []string{"architect", "pm", "cost", "security", "devops", "performance", "data", "ux", "datasci"} {
		if !r.Has(want) {
			t.Fatalf("missing agent %q", want)
		}
	}
}

func TestRegistryValidate(t *testing.T) {
	r := NewRegistry()
	if err := r.Validate([]string{"architect", "pm"}); err != nil {
		t.Fatalf("Validate failed for known agents: %v", err)
	}
	err := r.Validate([]string{"architect", "astrologer"})
	if err == nil {
		t.Fatalf("expected error for unknown agent")
	}
	if !errors.Is(err, domain.ErrUnknownAgent) {
		t.Fatalf("expected ErrUnknownAgent, got %v", err)
	}
	if !strings.Contains(err.Error(), "astrologer") {
		t.Fatalf("error should name the unknown agent: %v", err)
	}
}

func TestPromptsIncludeDescription(t *testing.T) {
	r := NewRegistry()
	ctx := domain.PromptContext{Description: "a distributed telemetry pipeline"}
	for _, key := range r.Keys() {
		spec, ok := r.Get(key)
		if !ok {
			t.Fatalf("Get(%q) failed", key)
		}
		prompt := spec.BuildPrompt(ctx)
		if !strings.Contains(prompt, ctx.Description) {
			t.Fatalf("%s prompt does not contain the description", key)
		}
		if !strings.Contains(strings.ToLower(prompt), "json") {
			t.Fatalf("%s prompt does not ask for JSON", key)
		}
	}
}

func TestDatasciPromptMentionsDataset(t *testing.T) {
	r := NewRegistry()
	spec, _ := r.Get("datasci")

	plain := spec.BuildPrompt(domain.PromptContext{Description: "x"})
	withDataset := spec.BuildPrompt(domain.PromptContext{Description: "x", DatasetID: "ds-42"})
	if strings.Contains(plain, "ds-42") {
		t.Fatalf("dataset id leaked into prompt without a dataset")
	}
	if !strings.Contains(withDataset, "ds-42") {
		t.Fatalf("datasci prompt should reference the attached dataset")
	}
}

func TestParseJSON(t *testing.T) {
	parse := ParseJSON("architect")

	cases := []struct {
		name string
		raw  string
		ok   bool
	}{
		{"plain object", `{"stack": ["go"]}`, true},
		{"fenced", "```json\n{\"stack\": [\"go\"]}\n```", true},
		{"fenced no tag", "```\n{\"a\": 1}\n```", true},
		{"whitespace", "  \n {\"a\": 1} \n", true},
		{"empty", "", false},
		{"prose", "Here is my analysis.", false},
		{"truncated", `{"a": [1, 2`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := parse(tc.raw)
			if res.OK() != tc.ok {
				t.Fatalf("OK() = %v, want %v (err=%q)", res.OK(), tc.ok, res.Err)
			}
			if !tc.ok && res.Raw != tc.raw {
				t.Fatalf("failed result should carry the raw text, got %q", res.Raw)
			}
		})
	}
}

func TestParseJSONErrorNamesAgent(t *testing.T) {
	res := ParseJSON("pm")("not json")
	if res.OK() {
		t.Fatalf("expected failure")
	}
	if !strings.Contains(res.Err, "pm") {
		t.Fatalf("error should name the agent: %q", res.Err)
	}
}
