package domain

import "encoding/json"

// TurnEvent is a diagnostic record of something that happened during a turn.
// Events are append-only and kept for replay and debugging.
type TurnEvent struct {
	EventID string          `json:"event_id"`
	TurnID  string          `json:"turn_id"`
	Ts      int64           `json:"ts"` // Unix milliseconds
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}
