package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(context.Background(), DefaultPolicy)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return e
}

func TestGuestDeniedScoreExplain(t *testing.T) {
	e := newTestEngine(t)

	decision, err := e.Evaluate(context.Background(), Input{Role: "guest", ToolName: "score_explain"})
	assert.NoError(t, err)
	assert.Equal(t, DecisionDeny, decision)
}

func TestPrivilegedRolesAllowedScoreExplain(t *testing.T) {
	e := newTestEngine(t)

	for _, role := range []string{"analyst", "admin"} {
		decision, err := e.Evaluate(context.Background(), Input{Role: role, ToolName: "score_explain"})
		assert.NoError(t, err)
		assert.Equal(t, DecisionAllow, decision, "role %s", role)
	}
}

func TestGuestAllowedOtherTools(t *testing.T) {
	e := newTestEngine(t)

	for _, tool := range []string{"structured_search", "document_content", "external_lookup"} {
		decision, err := e.Evaluate(context.Background(), Input{Role: "guest", ToolName: tool})
		assert.NoError(t, err)
		assert.Equal(t, DecisionAllow, decision, "tool %s", tool)
	}
}

func TestGuestDeniedPriorityFilter(t *testing.T) {
	e := newTestEngine(t)

	decision, err := e.Evaluate(context.Background(), Input{
		Role:    "guest",
		Filters: map[string]any{"priority_level": "high"},
	})
	assert.NoError(t, err)
	assert.Equal(t, DecisionDeny, decision)
}

func TestAnalystAllowedPriorityFilter(t *testing.T) {
	e := newTestEngine(t)

	decision, err := e.Evaluate(context.Background(), Input{
		Role:    "analyst",
		Filters: map[string]any{"priority_level": "high"},
	})
	assert.NoError(t, err)
	assert.Equal(t, DecisionAllow, decision)
}
