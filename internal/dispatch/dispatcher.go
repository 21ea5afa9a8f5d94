// Package dispatch validates and executes tool invocations. Tool-level
// failures never abort a turn; they come back as error-carrying results.
// Schema violations, unknown tools and policy denials fail fast because they
// indicate an orchestration bug or a forbidden request, not a transient
// tool condition.
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
	"github.com/xeipuuv/gojsonschema"

	"github.com/aquasense/orchestrator/internal/domain"
	"github.com/aquasense/orchestrator/internal/metrics"
	"github.com/aquasense/orchestrator/internal/tools"
	"github.com/aquasense/orchestrator/policy"
)

// Budget tracks per-tool call counts for one turn. Not safe for concurrent
// use; a turn progresses through its rounds sequentially.
type Budget struct {
	counts map[string]int
}

// NewBudget creates an empty per-turn budget.
func NewBudget() *Budget {
	return &Budget{counts: make(map[string]int)}
}

// Count returns how many calls the named tool has consumed this turn.
func (b *Budget) Count(tool string) int { return b.counts[tool] }

func (b *Budget) consume(tool string) { b.counts[tool]++ }

// Dispatcher resolves invocations against the registry and runs them.
type Dispatcher struct {
	registry *tools.Registry
	gate     *policy.Engine
	fanOut   bool
	log      zerolog.Logger
}

// New creates a dispatcher. fanOut allows independent invocations within one
// round to run concurrently; results still join in call-issue order.
func New(registry *tools.Registry, gate *policy.Engine, fanOut bool, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		gate:     gate,
		fanOut:   fanOut,
		log:      log.With().Str("component", "dispatch").Logger(),
	}
}

// Registry exposes the underlying tool registry.
func (d *Dispatcher) Registry() *tools.Registry { return d.registry }

// FanOut reports whether independent invocations in one round run
// concurrently.
func (d *Dispatcher) FanOut() bool { return d.fanOut }

// Allowed returns the registered tool names the role may use, in
// registration order.
func (d *Dispatcher) Allowed(ctx context.Context, role domain.Role) ([]string, error) {
	var out []string
	for _, name := range d.registry.Names() {
		decision, err := d.gate.Evaluate(ctx, policy.Input{Role: string(role), ToolName: name})
		if err != nil {
			return nil, fmt.Errorf("policy evaluation failed: %w", err)
		}
		if decision == policy.DecisionAllow {
			out = append(out, name)
		}
	}
	return out, nil
}

// Dispatch validates and runs one round of invocations. Invocations whose
// tool has exhausted its per-turn budget are dropped as no-op evidence
// contributions. The returned results preserve call-issue order.
func (d *Dispatcher) Dispatch(ctx context.Context, role domain.Role, budget *Budget, invocations []domain.ToolInvocation) ([]domain.ToolResult, error) {
	type task struct {
		tool tools.Tool
		inv  domain.ToolInvocation
	}

	var tasks []task
	for _, inv := range invocations {
		tool := d.registry.Get(inv.Tool)
		if tool == nil {
			return nil, domain.NewValidationError("unknown tool %q", inv.Tool)
		}
		desc := tool.Descriptor()

		if budget.Count(desc.Name) >= desc.MaxCallsPerTurn {
			d.log.Debug().Str("tool", desc.Name).Msg("per-turn call budget exhausted, dropping invocation")
			continue
		}

		if err := validateArgs(desc, inv.Args); err != nil {
			return nil, err
		}

		decision, err := d.gate.Evaluate(ctx, policy.Input{Role: string(role), ToolName: desc.Name})
		if err != nil {
			return nil, fmt.Errorf("policy evaluation failed: %w", err)
		}
		if decision != policy.DecisionAllow {
			metrics.ToolInvocations.WithLabelValues(desc.Name, "rejected").Inc()
			return nil, domain.NewPermissionError("role %s may not use tool %s", role, desc.Name)
		}

		budget.consume(desc.Name)
		tasks = append(tasks, task{tool: tool, inv: inv})
	}

	results := make([]domain.ToolResult, len(tasks))
	if d.fanOut && len(tasks) > 1 {
		var wg conc.WaitGroup
		for i, t := range tasks {
			wg.Go(func() {
				results[i] = d.invoke(ctx, t.tool, t.inv)
			})
		}
		wg.Wait()
	} else {
		for i, t := range tasks {
			results[i] = d.invoke(ctx, t.tool, t.inv)
		}
	}

	return results, nil
}

// invoke runs one tool call, absorbing its failure into the result.
func (d *Dispatcher) invoke(ctx context.Context, tool tools.Tool, inv domain.ToolInvocation) domain.ToolResult {
	desc := tool.Descriptor()
	start := time.Now()

	res, err := tool.Invoke(ctx, inv.Args)
	latency := time.Since(start)

	metrics.ToolLatency.WithLabelValues(desc.Name).Observe(latency.Seconds())

	result := domain.ToolResult{
		Tool:       desc.Name,
		Capability: desc.Capability,
		Latency:    latency,
	}
	if err != nil {
		metrics.ToolInvocations.WithLabelValues(desc.Name, "error").Inc()
		d.log.Warn().Str("tool", desc.Name).Err(err).Dur("latency", latency).Msg("tool call failed")
		result.Error = err.Error()
		return result
	}

	metrics.ToolInvocations.WithLabelValues(desc.Name, "ok").Inc()
	d.log.Debug().Str("tool", desc.Name).Int("sources", len(res.Sources)).Dur("latency", latency).Msg("tool call succeeded")
	result.Payload = res.Payload
	result.Sources = res.Sources
	return result
}

func validateArgs(desc domain.ToolDescriptor, args []byte) error {
	if len(args) == 0 {
		args = []byte("{}")
	}

	schemaLoader := gojsonschema.NewBytesLoader(desc.InputSchema)
	documentLoader := gojsonschema.NewBytesLoader(args)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return domain.NewValidationError("tool %s: arguments are not valid JSON: %v", desc.Name, err)
	}
	if !result.Valid() {
		var msgs []string
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return domain.NewValidationError("tool %s: invalid arguments: %s", desc.Name, strings.Join(msgs, "; "))
	}
	return nil
}
