// Package assembler turns a turn's evidence set into the final answer
// envelope: prose, deduplicated citations, a confidence score and the list
// of contributing tools.
package assembler

import (
	"context"
	"math"

	"github.com/rs/zerolog"

	"github.com/aquasense/orchestrator/internal/answer"
	"github.com/aquasense/orchestrator/internal/domain"
)

// PartialConfidenceCeiling caps confidence whenever a turn finalizes
// partially.
const PartialConfidenceCeiling = 0.6

// InsufficientAnswer is returned when a turn gathered no usable evidence.
// Fabricating prose from nothing is never acceptable.
const InsufficientAnswer = "Insufficient information: no evidence could be gathered to answer this question."

// Per-result confidence weights. Direct structured lookups are weighted
// higher than semantic matches, which outweigh external snippets.
var capabilityWeight = map[domain.Capability]float64{
	domain.CapabilityStructured: 0.25,
	domain.CapabilitySemantic:   0.15,
	domain.CapabilityExternal:   0.05,
}

// Assembler builds answer envelopes, calling the answer-generation service
// for the prose.
type Assembler struct {
	generator answer.Generator
	log       zerolog.Logger
}

// New creates an assembler.
func New(generator answer.Generator, log zerolog.Logger) *Assembler {
	return &Assembler{
		generator: generator,
		log:       log.With().Str("component", "assembler").Logger(),
	}
}

// Assemble produces the envelope for a finished turn. With no usable
// evidence it returns the explicit insufficient-information answer without
// calling the generation service. An unreachable generation service is a
// DependencyUnavailableError; by then all tool work is already done, so the
// caller surfaces it without retrying the loop.
func (a *Assembler) Assemble(ctx context.Context, q domain.Query, ev *domain.EvidenceSet, partial bool) (domain.AnswerEnvelope, error) {
	sources, toolsUsed := extractCitations(ev)

	if len(sources) == 0 {
		return domain.AnswerEnvelope{
			Text:       InsufficientAnswer,
			Sources:    []domain.Source{},
			Confidence: 0,
			ToolsUsed:  []string{},
			Partial:    true,
		}, nil
	}

	excerpts := make([]string, 0, len(sources))
	for _, s := range sources {
		excerpts = append(excerpts, s.Excerpt)
	}

	text, err := a.generator.Generate(ctx, q.Text, excerpts)
	if err != nil {
		a.log.Error().Err(err).Msg("answer generation failed")
		return domain.AnswerEnvelope{}, domain.NewDependencyUnavailableError("answer generation service", err)
	}

	return domain.AnswerEnvelope{
		Text:       text,
		Sources:    sources,
		Confidence: Confidence(ev, partial),
		ToolsUsed:  toolsUsed,
		Partial:    partial,
	}, nil
}

// Confidence combines the count and kind of non-error evidence, capped to
// [0,1] and to the partial ceiling when the turn finalized partially.
func Confidence(ev *domain.EvidenceSet, partial bool) float64 {
	score := 0.0
	for _, r := range ev.Results {
		if r.Failed() || len(r.Sources) == 0 {
			continue
		}
		score += capabilityWeight[r.Capability]
	}
	score = math.Min(score, 1)
	if partial {
		score = math.Min(score, PartialConfidenceCeiling)
	}
	return math.Round(score*1000) / 1000
}

// extractCitations deduplicates sources by identity (kind + id), preserving
// first-seen order, and lists the tools that contributed at least one
// citation in the order first used.
func extractCitations(ev *domain.EvidenceSet) ([]domain.Source, []string) {
	seen := make(map[string]bool)
	toolSeen := make(map[string]bool)

	var sources []domain.Source
	var toolsUsed []string

	for _, r := range ev.Results {
		if r.Failed() {
			continue
		}
		contributed := false
		for _, s := range r.Sources {
			key := s.Kind + "|" + s.ID
			if seen[key] {
				continue
			}
			seen[key] = true
			sources = append(sources, s)
			contributed = true
		}
		if contributed && !toolSeen[r.Tool] {
			toolSeen[r.Tool] = true
			toolsUsed = append(toolsUsed, r.Tool)
		}
	}
	return sources, toolsUsed
}
