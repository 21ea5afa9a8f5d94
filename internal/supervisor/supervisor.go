// Package supervisor runs the per-turn orchestration state machine:
// CLASSIFYING -> DISPATCHING -> EVALUATING -> (DISPATCHING | FINALIZING) -> DONE,
// with an error-absorbing transition to FINALIZING(partial) from any state.
// The iteration budget bounds the number of dispatch rounds, so every turn
// terminates.
package supervisor

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aquasense/orchestrator/internal/classifier"
	"github.com/aquasense/orchestrator/internal/dispatch"
	"github.com/aquasense/orchestrator/internal/domain"
	"github.com/aquasense/orchestrator/internal/store"
	"github.com/aquasense/orchestrator/internal/tools"
)

// Supervisor drives one turn at a time. Instances are safe for concurrent
// turns: all per-turn state lives on the stack of RunTurn.
type Supervisor struct {
	dispatcher      *dispatch.Dispatcher
	events          store.EventLog
	iterationBudget int
	log             zerolog.Logger
}

// New creates a supervisor with the given iteration budget (dispatch rounds
// per turn).
func New(dispatcher *dispatch.Dispatcher, events store.EventLog, iterationBudget int, log zerolog.Logger) *Supervisor {
	if iterationBudget <= 0 {
		iterationBudget = 5
	}
	return &Supervisor{
		dispatcher:      dispatcher,
		events:          events,
		iterationBudget: iterationBudget,
		log:             log.With().Str("component", "supervisor").Logger(),
	}
}

// Outcome is the result of a completed turn loop, before assembly.
type Outcome struct {
	TurnID   string
	Evidence *domain.EvidenceSet
	Partial  bool
	Rounds   int
}

// RunTurn executes the loop for one query and returns the gathered evidence.
// Cancellation or deadline expiry stops further dispatching and finalizes
// partially; it never hangs.
func (s *Supervisor) RunTurn(ctx context.Context, turnID string, q domain.Query, tail []domain.ConversationTurn) (*Outcome, error) {
	state := domain.TurnStateClassifying
	evidence := &domain.EvidenceSet{}
	budget := dispatch.NewBudget()

	s.recordEvent(ctx, turnID, domain.EventTypeTurnStarted, map[string]any{
		"query": q.Text,
		"role":  q.Role,
	})

	// CLASSIFYING runs exactly once per turn. The hint is a bias, not a plan.
	hints := classifier.Classify(q, tail)
	allowed, err := s.dispatcher.Allowed(ctx, q.Role)
	if err != nil {
		return nil, err
	}
	allowedSet := make(map[string]bool, len(allowed))
	for _, name := range allowed {
		allowedSet[name] = true
	}

	partial := false
	rounds := 0
	var finalizeReason string

	for {
		if err := ctx.Err(); err != nil {
			s.log.Warn().Str("turn_id", turnID).Str("state", string(state)).Err(err).Msg("turn cancelled, finalizing partial")
			partial = true
			finalizeReason = "cancelled"
			break
		}

		if rounds >= s.iterationBudget {
			// Iteration budget exhausted: best-effort answer, explicitly
			// flagged as incomplete.
			partial = !evidence.Sufficient()
			finalizeReason = string(domain.CodeBudgetExceeded)
			break
		}

		state = domain.TurnStateDispatching
		invocations := s.planRound(q, tail, hints, allowedSet, budget)
		if len(invocations) == 0 {
			partial = !evidence.Sufficient()
			break
		}
		rounds++

		for _, inv := range invocations {
			s.recordEvent(ctx, turnID, domain.EventTypeToolDispatched, map[string]any{
				"tool":  inv.Tool,
				"round": rounds,
			})
		}

		results, err := s.dispatcher.Dispatch(ctx, q.Role, budget, invocations)
		if err != nil {
			return nil, err
		}

		state = domain.TurnStateEvaluating
		evidence.Add(results...)
		for _, r := range results {
			s.recordEvent(ctx, turnID, domain.EventTypeToolResult, map[string]any{
				"tool":       r.Tool,
				"error":      r.Error,
				"sources":    len(r.Sources),
				"latency_ms": r.Latency.Milliseconds(),
			})
		}

		if evidence.Sufficient() {
			break
		}
	}

	finalized := map[string]any{
		"partial": partial,
		"rounds":  rounds,
		"results": len(evidence.Results),
	}
	if finalizeReason != "" {
		finalized["reason"] = finalizeReason
	}
	s.recordEvent(ctx, turnID, domain.EventTypeTurnFinalized, finalized)
	s.log.Info().
		Str("turn_id", turnID).
		Int("rounds", rounds).
		Bool("partial", partial).
		Int("results", len(evidence.Results)).
		Msg("turn finalized")

	return &Outcome{TurnID: turnID, Evidence: evidence, Partial: partial, Rounds: rounds}, nil
}

// planRound selects the invocations for the next dispatch round. Candidates
// are ordered by: fewest calls so far this turn, then hint position, then
// capability rank (structured over semantic over external). Tools at their
// per-turn budget or without usable arguments are excluded.
func (s *Supervisor) planRound(q domain.Query, tail []domain.ConversationTurn, hints []string, allowed map[string]bool, budget *dispatch.Budget) []domain.ToolInvocation {
	hintPos := make(map[string]int, len(hints))
	for i, name := range hints {
		hintPos[name] = i
	}

	type candidate struct {
		name string
		desc domain.ToolDescriptor
		args json.RawMessage
		pos  int
	}

	var candidates []candidate
	for _, desc := range s.dispatcher.Registry().Descriptors() {
		if !allowed[desc.Name] {
			continue
		}
		if budget.Count(desc.Name) >= desc.MaxCallsPerTurn {
			continue
		}
		args, ok := s.buildArgs(desc.Name, q, tail, allowed)
		if !ok {
			continue
		}
		pos, hinted := hintPos[desc.Name]
		if !hinted {
			pos = len(hints)
		}
		candidates = append(candidates, candidate{name: desc.Name, desc: desc, args: args, pos: pos})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		ci, cj := candidates[i], candidates[j]
		if a, b := budget.Count(ci.name), budget.Count(cj.name); a != b {
			return a < b
		}
		if ci.pos != cj.pos {
			return ci.pos < cj.pos
		}
		return ci.desc.Capability.Rank() < cj.desc.Capability.Rank()
	})

	// One invocation per round; fan-out rounds issue the top two distinct
	// tools, each still individually fault-isolated by the dispatcher.
	n := 1
	if s.dispatcher.FanOut() && len(candidates) > 1 {
		n = 2
	}
	if n > len(candidates) {
		n = len(candidates)
	}

	now := time.Now()
	out := make([]domain.ToolInvocation, 0, n)
	for _, c := range candidates[:n] {
		out = append(out, domain.ToolInvocation{Tool: c.name, Args: c.args, IssuedAt: now})
	}
	return out
}

// buildArgs derives a tool's arguments from the query and conversation tail.
// Returns ok=false when the tool cannot be usefully invoked for this query.
func (s *Supervisor) buildArgs(tool string, q domain.Query, tail []domain.ConversationTurn, allowed map[string]bool) (json.RawMessage, bool) {
	switch tool {
	case tools.StructuredSearchName:
		// Roles the policy trusts with score explanations also get the
		// derived priority fields in structured excerpts.
		args := map[string]any{"include_priority": allowed[tools.ScoreExplainName]}
		if q.Filters.Region != "" {
			args["region"] = q.Filters.Region
		}
		if q.Filters.BodyType != "" {
			args["body_type"] = q.Filters.BodyType
		}
		if q.Filters.PriorityLevel != "" {
			args["priority_level"] = q.Filters.PriorityLevel
		}
		if q.Filters.EntityID != 0 {
			args["entity_id"] = q.Filters.EntityID
		}
		if q.Filters.Limit > 0 {
			args["limit"] = q.Filters.Limit
		}
		return mustMarshal(args), true

	case tools.DocumentContentName:
		if id := entityIDFor(q, tail); id != 0 {
			return mustMarshal(map[string]any{"entity_id": id}), true
		}
		return mustMarshal(map[string]any{"text": q.Text}), true

	case tools.ScoreExplainName:
		id := entityIDFor(q, tail)
		if id == 0 {
			return nil, false
		}
		return mustMarshal(map[string]any{"entity_id": id}), true

	case tools.ExternalLookupName:
		return mustMarshal(map[string]any{"text": q.Text}), true
	}
	return nil, false
}

// entityIDFor resolves the entity a query is about: its own filter first,
// then the most recent turn in the conversation that referenced one.
func entityIDFor(q domain.Query, tail []domain.ConversationTurn) int64 {
	if q.Filters.EntityID != 0 {
		return q.Filters.EntityID
	}
	for i := len(tail) - 1; i >= 0; i-- {
		if id := tail[i].Query.Filters.EntityID; id != 0 {
			return id
		}
	}
	return 0
}

func (s *Supervisor) recordEvent(ctx context.Context, turnID string, eventType domain.EventType, payload any) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to marshal event payload")
		return
	}

	ev := &domain.TurnEvent{
		EventID: "evt_" + uuid.New().String()[:8],
		TurnID:  turnID,
		Ts:      time.Now().UnixMilli(),
		Type:    eventType,
		Payload: payloadBytes,
	}
	if err := s.events.CreateEvent(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("type", string(eventType)).Msg("failed to record turn event")
	}
}

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("marshal args: %v", err))
	}
	return b
}
