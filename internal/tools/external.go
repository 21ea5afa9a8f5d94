package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aquasense/orchestrator/internal/domain"
	"github.com/aquasense/orchestrator/internal/search"
)

// ExternalLookupName is the registry name of the external lookup tool.
const ExternalLookupName = "external_lookup"

const externalLookupSchema = `{
  "type": "object",
  "properties": {
    "text": {
      "type": "string",
      "minLength": 1,
      "description": "Free text to look up in external reference material"
    },
    "limit": {
      "type": "integer",
      "minimum": 1,
      "maximum": 10,
      "description": "Maximum number of snippets to return"
    }
  },
  "required": ["text"],
  "additionalProperties": false
}`

// ExternalLookupTool returns ranked external snippets for free text.
type ExternalLookupTool struct {
	external search.ExternalSearcher
}

// NewExternalLookupTool creates the tool over the external searcher.
func NewExternalLookupTool(external search.ExternalSearcher) *ExternalLookupTool {
	return &ExternalLookupTool{external: external}
}

func (t *ExternalLookupTool) Descriptor() domain.ToolDescriptor {
	return domain.ToolDescriptor{
		Name:            ExternalLookupName,
		Capability:      domain.CapabilityExternal,
		InputSchema:     json.RawMessage(externalLookupSchema),
		MaxCallsPerTurn: 2,
	}
}

type externalLookupArgs struct {
	Text  string `json:"text"`
	Limit int    `json:"limit"`
}

func (t *ExternalLookupTool) Invoke(ctx context.Context, args json.RawMessage) (Result, error) {
	var a externalLookupArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return Result{}, fmt.Errorf("malformed arguments: %w", err)
	}

	snippets, err := t.external.Lookup(ctx, a.Text, a.Limit)
	if err != nil {
		return Result{}, fmt.Errorf("external lookup failed: %w", err)
	}

	payload, err := json.Marshal(snippets)
	if err != nil {
		return Result{}, err
	}

	sources := make([]domain.Source, 0, len(snippets))
	for _, sn := range snippets {
		sources = append(sources, domain.Source{
			ID:      sn.URL,
			Kind:    "external",
			Excerpt: fmt.Sprintf("%s: %s", sn.Title, sn.Excerpt),
		})
	}
	return Result{Payload: payload, Sources: sources}, nil
}

// Ping checks the external searcher.
func (t *ExternalLookupTool) Ping(ctx context.Context) error {
	return t.external.Ping(ctx)
}

var _ Tool = (*ExternalLookupTool)(nil)
