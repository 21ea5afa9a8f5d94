package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/aquasense/orchestrator/internal/domain"
	"github.com/aquasense/orchestrator/internal/scoring"
	"github.com/aquasense/orchestrator/internal/store"
)

// ScoreExplainName is the registry name of the derived-score explain tool.
// It is gated to privileged roles by policy.
const ScoreExplainName = "score_explain"

const scoreExplainSchema = `{
  "type": "object",
  "properties": {
    "entity_id": {
      "type": "integer",
      "minimum": 1,
      "description": "Water body id whose priority score to explain"
    }
  },
  "required": ["entity_id"],
  "additionalProperties": false
}`

// ScoreExplainTool explains a record's derived priority score from its
// stored attributes.
type ScoreExplainTool struct {
	records store.StructuredStore
}

// NewScoreExplainTool creates the tool over the structured store.
func NewScoreExplainTool(records store.StructuredStore) *ScoreExplainTool {
	return &ScoreExplainTool{records: records}
}

func (t *ScoreExplainTool) Descriptor() domain.ToolDescriptor {
	return domain.ToolDescriptor{
		Name:            ScoreExplainName,
		Capability:      domain.CapabilityStructured,
		InputSchema:     json.RawMessage(scoreExplainSchema),
		MaxCallsPerTurn: 3,
	}
}

type scoreExplainArgs struct {
	EntityID int64 `json:"entity_id"`
}

func (t *ScoreExplainTool) Invoke(ctx context.Context, args json.RawMessage) (Result, error) {
	var a scoreExplainArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return Result{}, fmt.Errorf("malformed arguments: %w", err)
	}

	wb, err := t.records.GetWaterBody(ctx, a.EntityID)
	if err != nil {
		return Result{}, fmt.Errorf("record lookup failed: %w", err)
	}
	if wb == nil {
		return Result{}, fmt.Errorf("water body %d not found", a.EntityID)
	}

	ex := scoring.Explain(*wb)

	payload, err := json.Marshal(struct {
		EntityID int64  `json:"entity_id"`
		Name     string `json:"name"`
		scoring.Explanation
	}{EntityID: wb.ID, Name: wb.Name, Explanation: ex})
	if err != nil {
		return Result{}, err
	}

	parts := make([]string, 0, len(ex.Components))
	for name, v := range ex.Components {
		parts = append(parts, fmt.Sprintf("%s %.3f", name, v))
	}
	sort.Strings(parts)

	source := domain.Source{
		ID:   fmt.Sprintf("water_body:%d", wb.ID),
		Kind: "derived_score",
		Excerpt: fmt.Sprintf("%s priority %.3f (%s): %s",
			wb.Name, ex.Score, ex.Level, strings.Join(parts, ", ")),
	}

	return Result{Payload: payload, Sources: []domain.Source{source}}, nil
}

// Ping checks the backing store.
func (t *ScoreExplainTool) Ping(ctx context.Context) error {
	_, err := t.records.FindWaterBodies(ctx, domain.Filters{}, 1)
	return err
}

var _ Tool = (*ScoreExplainTool)(nil)
