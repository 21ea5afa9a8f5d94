// Package domain defines the core domain models for the query orchestrator.
package domain

// TurnState represents the state of a query turn inside the supervisor loop.
type TurnState string

const (
	TurnStateClassifying TurnState = "CLASSIFYING"
	TurnStateDispatching TurnState = "DISPATCHING"
	TurnStateEvaluating  TurnState = "EVALUATING"
	TurnStateFinalizing  TurnState = "FINALIZING"
	TurnStateDone        TurnState = "DONE"
)

// Capability classifies what kind of evidence a tool produces.
type Capability string

const (
	CapabilityStructured Capability = "structured"
	CapabilitySemantic   Capability = "semantic"
	CapabilityExternal   Capability = "external"
)

// Rank orders capabilities by preference. Structured results are deterministic
// and cheaper to verify, so they win over semantic, which wins over external.
func (c Capability) Rank() int {
	switch c {
	case CapabilityStructured:
		return 0
	case CapabilitySemantic:
		return 1
	case CapabilityExternal:
		return 2
	}
	return 3
}

// Role identifies the caller's permission level.
type Role string

const (
	RoleGuest   Role = "guest"
	RoleAnalyst Role = "analyst"
	RoleAdmin   Role = "admin"
)

// HealthStatus is the aggregate availability reported by the health monitor.
type HealthStatus string

const (
	HealthOperational HealthStatus = "operational"
	HealthDegraded    HealthStatus = "degraded"
	HealthUnavailable HealthStatus = "unavailable"
)

// EventType represents the type of a turn event.
type EventType string

const (
	EventTypeTurnStarted      EventType = "turn_started"
	EventTypeToolDispatched   EventType = "tool_dispatched"
	EventTypeToolResult       EventType = "tool_result"
	EventTypePolicyDecision   EventType = "policy_decision"
	EventTypeTurnFinalized    EventType = "turn_finalized"
	EventTypeCacheInvalidated EventType = "cache_invalidated"
)
