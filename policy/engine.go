// Package policy evaluates the role gate: which roles may use which tools
// and filters. Decisions come from a rego policy evaluated through OPA.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/v1/rego"
)

// Decision values produced by the policy.
const (
	DecisionAllow = "allow"
	DecisionDeny  = "deny"
)

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a policy engine from the given rego policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.access.decision"),
		rego.Module("access.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Input is the policy evaluation input.
type Input struct {
	Role     string         `json:"role"`
	ToolName string         `json:"tool_name,omitempty"`
	Filters  map[string]any `json:"filters,omitempty"`
}

// Evaluate returns the decision for the input: allow or deny.
// An empty result set falls back to allow; the policy defines the default.
func (e *Engine) Evaluate(ctx context.Context, in Input) (string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(in))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return DecisionAllow, nil
	}

	if s, ok := results[0].Expressions[0].Value.(string); ok {
		return s, nil
	}
	return "", fmt.Errorf("policy returned unexpected type %T", results[0].Expressions[0].Value)
}

// DefaultPolicy gates the derived-score explanation tool and score-dependent
// filtering to privileged roles.
const DefaultPolicy = `
package access

default decision := "allow"

privileged := {"analyst", "admin"}

decision := "deny" if {
	input.tool_name == "score_explain"
	not privileged[input.role]
}

decision := "deny" if {
	input.filters.priority_level != ""
	not privileged[input.role]
}
`
