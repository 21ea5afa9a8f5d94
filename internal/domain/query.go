package domain

import "time"

// Filters narrows a query to a subset of water-body records. The zero value
// means no filtering.
type Filters struct {
	Region        string `json:"region,omitempty"`
	BodyType      string `json:"body_type,omitempty"`
	PriorityLevel string `json:"priority_level,omitempty"`
	EntityID      int64  `json:"entity_id,omitempty"`
	Limit         int    `json:"limit,omitempty"`
}

// IsZero reports whether no filter criteria are set.
func (f Filters) IsZero() bool {
	return f.Region == "" && f.BodyType == "" && f.PriorityLevel == "" && f.EntityID == 0
}

// Query is a single natural-language question. Immutable once submitted.
type Query struct {
	Text           string  `json:"text"`
	Language       string  `json:"language,omitempty"`
	Role           Role    `json:"role"`
	Filters        Filters `json:"filters,omitempty"`
	ConversationID string  `json:"conversation_id,omitempty"`
}

// Source is a single citation backing an answer.
type Source struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Excerpt string `json:"excerpt,omitempty"`
}

// AnswerEnvelope is the terminal artifact of a turn. Immutable once produced.
type AnswerEnvelope struct {
	Text       string   `json:"text"`
	Sources    []Source `json:"sources"`
	Confidence float64  `json:"confidence"`
	ToolsUsed  []string `json:"tools_used"`
	Partial    bool     `json:"partial"`
}

// ConversationTurn is one completed (query, answer) exchange.
type ConversationTurn struct {
	Query     Query          `json:"query"`
	Envelope  AnswerEnvelope `json:"envelope"`
	CreatedAt time.Time      `json:"created_at"`
}
