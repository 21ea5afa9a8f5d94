package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aquasense/orchestrator/internal/domain"
	"github.com/aquasense/orchestrator/internal/store"
)

// StructuredSearchName is the registry name of the structured search tool.
const StructuredSearchName = "structured_search"

const structuredSearchSchema = `{
  "type": "object",
  "properties": {
    "region": {
      "type": "string",
      "description": "Filter by administrative region"
    },
    "body_type": {
      "type": "string",
      "enum": ["river", "lake", "reservoir", "canal"],
      "description": "Filter by water body type"
    },
    "priority_level": {
      "type": "string",
      "enum": ["low", "medium", "high"],
      "description": "Filter by derived priority level"
    },
    "entity_id": {
      "type": "integer",
      "minimum": 1,
      "description": "Look up one record by id"
    },
    "limit": {
      "type": "integer",
      "minimum": 1,
      "maximum": 10,
      "description": "Maximum number of records to return"
    },
    "include_priority": {
      "type": "boolean",
      "description": "Include derived priority fields in the returned excerpts"
    }
  },
  "additionalProperties": false
}`

// StructuredSearchTool filters water-body records by typed criteria.
type StructuredSearchTool struct {
	records   store.StructuredStore
	resultCap int
}

// NewStructuredSearchTool creates the tool over the structured store.
func NewStructuredSearchTool(records store.StructuredStore, resultCap int) *StructuredSearchTool {
	if resultCap <= 0 {
		resultCap = 10
	}
	return &StructuredSearchTool{records: records, resultCap: resultCap}
}

func (t *StructuredSearchTool) Descriptor() domain.ToolDescriptor {
	return domain.ToolDescriptor{
		Name:            StructuredSearchName,
		Capability:      domain.CapabilityStructured,
		InputSchema:     json.RawMessage(structuredSearchSchema),
		MaxCallsPerTurn: 3,
	}
}

type structuredSearchArgs struct {
	Region          string `json:"region"`
	BodyType        string `json:"body_type"`
	PriorityLevel   string `json:"priority_level"`
	EntityID        int64  `json:"entity_id"`
	Limit           int    `json:"limit"`
	IncludePriority bool   `json:"include_priority"`
}

func (t *StructuredSearchTool) Invoke(ctx context.Context, args json.RawMessage) (Result, error) {
	var a structuredSearchArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return Result{}, fmt.Errorf("malformed arguments: %w", err)
		}
	}

	limit := a.Limit
	if limit <= 0 || limit > t.resultCap {
		limit = t.resultCap
	}

	records, err := t.records.FindWaterBodies(ctx, domain.Filters{
		Region:        a.Region,
		BodyType:      a.BodyType,
		PriorityLevel: a.PriorityLevel,
		EntityID:      a.EntityID,
	}, limit)
	if err != nil {
		return Result{}, fmt.Errorf("structured lookup failed: %w", err)
	}
	if a.EntityID != 0 && len(records) == 0 {
		return Result{}, fmt.Errorf("water body %d not found", a.EntityID)
	}

	payload, err := json.Marshal(records)
	if err != nil {
		return Result{}, err
	}

	// Derived priority fields are privileged; callers opt in per role.
	sources := make([]domain.Source, 0, len(records))
	for _, wb := range records {
		excerpt := fmt.Sprintf("%s (%s, %s)", wb.Name, wb.BodyType, wb.Region)
		if a.IncludePriority {
			excerpt = fmt.Sprintf("%s priority %s (%.2f)", excerpt, wb.PriorityLevel, wb.PriorityScore)
		}
		sources = append(sources, domain.Source{
			ID:      fmt.Sprintf("water_body:%d", wb.ID),
			Kind:    "record",
			Excerpt: excerpt,
		})
	}

	return Result{Payload: payload, Sources: sources}, nil
}

// Ping checks the backing store with an unfiltered single-row lookup.
func (t *StructuredSearchTool) Ping(ctx context.Context) error {
	_, err := t.records.FindWaterBodies(ctx, domain.Filters{}, 1)
	return err
}

var _ Tool = (*StructuredSearchTool)(nil)
