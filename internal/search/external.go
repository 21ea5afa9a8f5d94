package search

import (
	"context"
	"sort"
)

// StaticExternalSearcher serves a fixed corpus of external reference
// snippets. A production deployment swaps in a web-search client behind the
// same interface.
type StaticExternalSearcher struct {
	corpus []Snippet
}

// NewStaticExternalSearcher creates a searcher over the built-in corpus.
func NewStaticExternalSearcher() *StaticExternalSearcher {
	return &StaticExternalSearcher{corpus: defaultCorpus}
}

// Lookup returns up to limit snippets ranked by overlap score.
func (s *StaticExternalSearcher) Lookup(ctx context.Context, text string, limit int) ([]Snippet, error) {
	if limit <= 0 {
		limit = 3
	}

	terms := Tokenize(text)
	if len(terms) == 0 {
		return nil, nil
	}

	var out []Snippet
	for _, sn := range s.corpus {
		score := overlapScore(terms, Tokenize(sn.Title+" "+sn.Excerpt))
		if score <= 0 {
			continue
		}
		sn.Score = score
		out = append(out, sn)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Ping always succeeds for the static corpus.
func (s *StaticExternalSearcher) Ping(ctx context.Context) error { return nil }

var _ ExternalSearcher = (*StaticExternalSearcher)(nil)

var defaultCorpus = []Snippet{
	{
		URL:     "https://water-guidance.example.org/nitrate-runoff",
		Title:   "Managing nitrate runoff in agricultural catchments",
		Excerpt: "Riparian buffer strips and controlled fertiliser application reduce nitrate loading in rivers draining farmland.",
	},
	{
		URL:     "https://water-guidance.example.org/reservoir-safety",
		Title:   "Reservoir dam safety inspection standards",
		Excerpt: "Crest settlement monitoring and spillway gate servicing intervals for supply reservoirs.",
	},
	{
		URL:     "https://water-guidance.example.org/wetland-salinity",
		Title:   "Saline intrusion in coastal wetlands",
		Excerpt: "Brackish marsh systems degrade when saline intrusion combines with nutrient loading from upstream sources.",
	},
	{
		URL:     "https://water-guidance.example.org/canal-oxygen",
		Title:   "Dissolved oxygen management in navigable canals",
		Excerpt: "Low summer flow and industrial discharge consents can push dissolved oxygen below ecological targets.",
	},
}
