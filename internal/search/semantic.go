package search

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/aquasense/orchestrator/internal/store"
)

// KeywordSemanticSearcher ranks stored document sections by token overlap
// with the query. It stands in for a vector backend behind the same
// interface; embedding semantics are out of scope here.
type KeywordSemanticSearcher struct {
	docs store.DocumentStore
}

// NewKeywordSemanticSearcher creates a searcher over the document store.
func NewKeywordSemanticSearcher(docs store.DocumentStore) *KeywordSemanticSearcher {
	return &KeywordSemanticSearcher{docs: docs}
}

// Search returns up to limit passages ranked by overlap score.
func (s *KeywordSemanticSearcher) Search(ctx context.Context, text string, limit int) ([]Passage, error) {
	if limit <= 0 {
		limit = 5
	}

	sections, err := s.docs.AllDocuments(ctx)
	if err != nil {
		return nil, err
	}

	terms := Tokenize(text)
	if len(terms) == 0 {
		return nil, nil
	}

	var out []Passage
	for _, sec := range sections {
		score := overlapScore(terms, Tokenize(sec.Content))
		if score <= 0 {
			continue
		}
		out = append(out, Passage{
			EntityID: sec.EntityID,
			Section:  sec.Section,
			Excerpt:  truncate(sec.Content, 240),
			Score:    score,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Ping reports whether the backing document store is reachable.
func (s *KeywordSemanticSearcher) Ping(ctx context.Context) error {
	_, err := s.docs.AllDocuments(ctx)
	return err
}

var _ SemanticSearcher = (*KeywordSemanticSearcher)(nil)

// Tokenize lowercases and splits text into searchable terms, dropping
// short stop-words.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
	var out []string
	for _, f := range fields {
		if len(f) < 3 {
			continue
		}
		out = append(out, f)
	}
	return out
}

func overlapScore(queryTerms, docTerms []string) float64 {
	if len(queryTerms) == 0 {
		return 0
	}
	docSet := make(map[string]bool, len(docTerms))
	for _, t := range docTerms {
		docSet[t] = true
	}
	matched := 0
	for _, t := range queryTerms {
		if docSet[t] {
			matched++
		}
	}
	return math.Round(float64(matched)/float64(len(queryTerms))*1000) / 1000
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
