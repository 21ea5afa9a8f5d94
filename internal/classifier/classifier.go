// Package classifier produces a non-binding tool-ordering hint from the raw
// query text and the conversation tail. It is a pure function: no side
// effects, no external calls, and it never fails: ambiguous input yields
// the conservative default ordering.
package classifier

import (
	"strings"

	"github.com/aquasense/orchestrator/internal/domain"
	"github.com/aquasense/orchestrator/internal/tools"
)

var scoreTerms = []string{"explain", "why", "breakdown", "component", "derived", "formula"}
var scoreSubjects = []string{"score", "priority", "priorit"}
var documentTerms = []string{"report", "inspection", "document", "section", "remediation", "says", "describe", "overview", "text"}
var structuredTerms = []string{"list", "which", "how many", "region", "river", "lake", "reservoir", "canal", "priority", "records", "bodies"}
var externalTerms = []string{"guidance", "standard", "regulation", "best practice", "recommended", "industry"}
var followUpTokens = []string{"it", "that", "this", "them", "those"}

// Classify returns suggested tool names in preference order. The supervisor
// treats the ordering as a bias only.
func Classify(q domain.Query, tail []domain.ConversationTurn) []string {
	text := " " + strings.ToLower(q.Text) + " "

	if WantsScoreExplanation(q) {
		return []string{tools.ScoreExplainName, tools.StructuredSearchName, tools.DocumentContentName}
	}

	// A follow-up about a previously discussed entity usually needs the same
	// lead tool the prior turn used.
	if len(tail) > 0 && hasFollowUpToken(text) {
		last := tail[len(tail)-1]
		if len(last.Envelope.ToolsUsed) > 0 {
			return dedupe(append([]string{last.Envelope.ToolsUsed[0]}, defaultOrder()...))
		}
	}

	switch {
	case containsAny(text, documentTerms):
		return []string{tools.DocumentContentName, tools.StructuredSearchName, tools.ExternalLookupName}
	case !q.Filters.IsZero() || containsAny(text, structuredTerms):
		return []string{tools.StructuredSearchName, tools.DocumentContentName, tools.ExternalLookupName}
	case containsAny(text, externalTerms):
		return []string{tools.ExternalLookupName, tools.StructuredSearchName, tools.DocumentContentName}
	default:
		return defaultOrder()
	}
}

// WantsScoreExplanation reports whether the query explicitly asks for a
// derived-score explanation. Used by the role gate before the loop starts.
func WantsScoreExplanation(q domain.Query) bool {
	text := strings.ToLower(q.Text)
	return containsAny(text, scoreTerms) && containsAny(text, scoreSubjects)
}

// defaultOrder is the conservative fallback: structured before semantic,
// semantic before external.
func defaultOrder() []string {
	return []string{tools.StructuredSearchName, tools.DocumentContentName, tools.ExternalLookupName}
}

// hasFollowUpToken matches pronouns as whole tokens so trailing punctuation
// ("about it?") still counts.
func hasFollowUpToken(text string) bool {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
	for _, f := range fields {
		for _, tok := range followUpTokens {
			if f == tok {
				return true
			}
		}
	}
	return false
}

func containsAny(text string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	var out []string
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
