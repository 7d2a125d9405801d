// Package policy decides what happens to a run's persistence request:
// persist it, run anonymously, or reject the request outright.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Decisions returned by Evaluate.
const (
	DecisionPersist   = "persist"
	DecisionAnonymous = "anonymous"
	DecisionReject    = "reject"
)

// Input is the evaluation context for one request.
type Input struct {
	Authenticated    bool   `json:"authenticated"`
	PersistRequested bool   `json:"persist_requested"`
	UserID           string `json:"user_id,omitempty"`
}

// Engine is the rego policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates an engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.run_policy.decision"),
		rego.Module("run_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}
	return &Engine{query: query}, nil
}

// Evaluate returns the decision for the given input. A policy that yields
// no result falls back to the anonymous decision.
func (e *Engine) Evaluate(ctx context.Context, input Input) (string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return DecisionAnonymous, nil
	}
	if s, ok := results[0].Expressions[0].Value.(string); ok {
		return s, nil
	}
	return DecisionAnonymous, nil
}

// DefaultPolicy encodes the persistence rules: an authenticated caller's
// runs are persisted; an unauthenticated caller runs anonymously unless it
// explicitly asked for persistence, which is rejected.
const DefaultPolicy = `
package run_policy

import rego.v1

default decision := "anonymous"

decision := "persist" if {
	input.authenticated
}

decision := "reject" if {
	input.persist_requested
	not input.authenticated
}
`
