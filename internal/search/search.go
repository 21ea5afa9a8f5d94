// Package search provides the free-text lookup collaborators: semantic
// passage retrieval over stored document text and external snippet lookup.
package search

import "context"

// Passage is a ranked slice of document text.
type Passage struct {
	EntityID int64   `json:"entity_id"`
	Section  string  `json:"section"`
	Excerpt  string  `json:"excerpt"`
	Score    float64 `json:"score"`
}

// SemanticSearcher returns ranked passages for free text.
type SemanticSearcher interface {
	Search(ctx context.Context, text string, limit int) ([]Passage, error)
	Ping(ctx context.Context) error
}

// Snippet is a ranked external search result.
type Snippet struct {
	URL     string  `json:"url"`
	Title   string  `json:"title"`
	Excerpt string  `json:"excerpt"`
	Score   float64 `json:"score"`
}

// ExternalSearcher returns ranked external snippets for free text.
type ExternalSearcher interface {
	Lookup(ctx context.Context, text string, limit int) ([]Snippet, error)
	Ping(ctx context.Context) error
}
