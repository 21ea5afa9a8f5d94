package assembler

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/aquasense/orchestrator/internal/answer"
	"github.com/aquasense/orchestrator/internal/domain"
)

func structuredResult(tool string, sources ...domain.Source) domain.ToolResult {
	return domain.ToolResult{Tool: tool, Capability: domain.CapabilityStructured, Sources: sources}
}

func TestAssembleInsufficientEvidence(t *testing.T) {
	gen := answer.NewMockGenerator()
	a := New(gen, zerolog.Nop())

	ev := &domain.EvidenceSet{}
	ev.Add(domain.ToolResult{Tool: "structured_search", Capability: domain.CapabilityStructured, Error: "boom"})

	env, err := a.Assemble(context.Background(), domain.Query{Text: "q"}, ev, true)
	assert.NoError(t, err)
	assert.Equal(t, InsufficientAnswer, env.Text)
	assert.Equal(t, 0.0, env.Confidence)
	assert.True(t, env.Partial)
	assert.Empty(t, env.Sources)
	assert.Empty(t, env.ToolsUsed)
}

func TestAssembleGeneratorUnavailable(t *testing.T) {
	gen := &answer.MockGenerator{Down: true}
	a := New(gen, zerolog.Nop())

	ev := &domain.EvidenceSet{}
	ev.Add(structuredResult("structured_search", domain.Source{ID: "water_body:1", Kind: "record"}))

	_, err := a.Assemble(context.Background(), domain.Query{Text: "q"}, ev, false)
	assert.Error(t, err)
	assert.Equal(t, domain.CodeDependencyUnavailable, domain.CodeOf(err))
}

func TestAssembleHappyPath(t *testing.T) {
	gen := answer.NewMockGenerator()
	a := New(gen, zerolog.Nop())

	ev := &domain.EvidenceSet{}
	ev.Add(structuredResult("structured_search",
		domain.Source{ID: "water_body:1", Kind: "record", Excerpt: "Alder Creek"}))

	env, err := a.Assemble(context.Background(), domain.Query{Text: "status of alder creek"}, ev, false)
	assert.NoError(t, err)
	assert.NotEmpty(t, env.Text)
	assert.False(t, env.Partial)
	assert.Len(t, env.Sources, 1)
	assert.Equal(t, []string{"structured_search"}, env.ToolsUsed)
	assert.InDelta(t, 0.25, env.Confidence, 1e-9)
}

func TestConfidenceWeightsByCapability(t *testing.T) {
	ev := &domain.EvidenceSet{}
	ev.Add(
		domain.ToolResult{Tool: "structured_search", Capability: domain.CapabilityStructured, Sources: []domain.Source{{ID: "a", Kind: "record"}}},
		domain.ToolResult{Tool: "document_content", Capability: domain.CapabilitySemantic, Sources: []domain.Source{{ID: "b", Kind: "document"}}},
		domain.ToolResult{Tool: "external_lookup", Capability: domain.CapabilityExternal, Sources: []domain.Source{{ID: "c", Kind: "external"}}},
	)
	assert.InDelta(t, 0.45, Confidence(ev, false), 1e-9)
}

func TestConfidenceIgnoresErrorsAndEmptyResults(t *testing.T) {
	ev := &domain.EvidenceSet{}
	ev.Add(
		domain.ToolResult{Tool: "structured_search", Capability: domain.CapabilityStructured, Error: "boom"},
		domain.ToolResult{Tool: "document_content", Capability: domain.CapabilitySemantic},
	)
	assert.Equal(t, 0.0, Confidence(ev, false))
}

func TestConfidencePartialCeiling(t *testing.T) {
	ev := &domain.EvidenceSet{}
	for i := 0; i < 4; i++ {
		ev.Add(domain.ToolResult{Tool: "structured_search", Capability: domain.CapabilityStructured, Sources: []domain.Source{{ID: "x", Kind: "record"}}})
	}

	assert.InDelta(t, 1.0, Confidence(ev, false), 1e-9)
	assert.InDelta(t, PartialConfidenceCeiling, Confidence(ev, true), 1e-9)
}

func TestConfidenceNeverExceedsOne(t *testing.T) {
	ev := &domain.EvidenceSet{}
	for i := 0; i < 10; i++ {
		ev.Add(domain.ToolResult{Tool: "structured_search", Capability: domain.CapabilityStructured, Sources: []domain.Source{{ID: "x", Kind: "record"}}})
	}
	assert.LessOrEqual(t, Confidence(ev, false), 1.0)
}

func TestCitationsDeduplicated(t *testing.T) {
	gen := answer.NewMockGenerator()
	a := New(gen, zerolog.Nop())

	shared := domain.Source{ID: "water_body:1", Kind: "record", Excerpt: "first"}
	ev := &domain.EvidenceSet{}
	ev.Add(
		structuredResult("structured_search", shared, domain.Source{ID: "water_body:2", Kind: "record"}),
		structuredResult("score_explain", domain.Source{ID: "water_body:1", Kind: "record", Excerpt: "second"}),
	)

	env, err := a.Assemble(context.Background(), domain.Query{Text: "q"}, ev, false)
	assert.NoError(t, err)
	assert.Len(t, env.Sources, 2)
	// First occurrence wins.
	assert.Equal(t, "first", env.Sources[0].Excerpt)
	// score_explain contributed nothing new, so it is not listed.
	assert.Equal(t, []string{"structured_search"}, env.ToolsUsed)
}

func TestToolsUsedFirstUseOrder(t *testing.T) {
	gen := answer.NewMockGenerator()
	a := New(gen, zerolog.Nop())

	ev := &domain.EvidenceSet{}
	ev.Add(
		domain.ToolResult{Tool: "document_content", Capability: domain.CapabilitySemantic, Sources: []domain.Source{{ID: "document:1/overview", Kind: "document"}}},
		structuredResult("structured_search", domain.Source{ID: "water_body:1", Kind: "record"}),
		domain.ToolResult{Tool: "document_content", Capability: domain.CapabilitySemantic, Sources: []domain.Source{{ID: "document:1/inspection", Kind: "document"}}},
	)

	env, err := a.Assemble(context.Background(), domain.Query{Text: "q"}, ev, false)
	assert.NoError(t, err)
	assert.Equal(t, []string{"document_content", "structured_search"}, env.ToolsUsed)
}
