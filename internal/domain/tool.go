package domain

import (
	"encoding/json"
	"time"
)

// ToolDescriptor declares a registered tool. Registered once at startup and
// immutable thereafter.
type ToolDescriptor struct {
	Name            string          `json:"name"`
	Capability      Capability      `json:"capability"`
	InputSchema     json.RawMessage `json:"input_schema"`
	MaxCallsPerTurn int             `json:"max_calls_per_turn"`
}

// ToolInvocation is one requested tool call within a turn.
type ToolInvocation struct {
	Tool     string          `json:"tool"`
	Args     json.RawMessage `json:"args"`
	IssuedAt time.Time       `json:"issued_at"`
}

// ToolResult is the outcome of one tool call. A result with Error set
// contributes no evidence but is recorded for diagnostics.
type ToolResult struct {
	Tool       string          `json:"tool"`
	Capability Capability      `json:"capability"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Sources    []Source        `json:"sources,omitempty"`
	Error      string          `json:"error,omitempty"`
	Latency    time.Duration   `json:"latency"`
}

// Failed reports whether the call produced an error instead of evidence.
func (r ToolResult) Failed() bool { return r.Error != "" }

// EvidenceSet accumulates tool results for one turn in call-issue order.
// It grows monotonically within a turn and is discarded at turn end except
// for citation extraction.
type EvidenceSet struct {
	Results []ToolResult
}

// Add appends a result, preserving insertion order.
func (e *EvidenceSet) Add(results ...ToolResult) {
	e.Results = append(e.Results, results...)
}

// Sufficient reports whether the gathered evidence can answer the query:
// at least one non-error structured or semantic result carrying sources.
func (e *EvidenceSet) Sufficient() bool {
	for _, r := range e.Results {
		if r.Failed() || len(r.Sources) == 0 {
			continue
		}
		if r.Capability == CapabilityStructured || r.Capability == CapabilitySemantic {
			return true
		}
	}
	return false
}

// CallCount returns how many times the named tool appears in the set,
// including failed calls.
func (e *EvidenceSet) CallCount(tool string) int {
	n := 0
	for _, r := range e.Results {
		if r.Tool == tool {
			n++
		}
	}
	return n
}
