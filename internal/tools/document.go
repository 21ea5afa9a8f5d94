package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aquasense/orchestrator/internal/domain"
	"github.com/aquasense/orchestrator/internal/search"
	"github.com/aquasense/orchestrator/internal/store"
)

// DocumentContentName is the registry name of the document content tool.
const DocumentContentName = "document_content"

const documentContentSchema = `{
  "type": "object",
  "properties": {
    "entity_id": {
      "type": "integer",
      "minimum": 1,
      "description": "Water body id whose document text to fetch"
    },
    "section": {
      "type": "string",
      "description": "Optional section name, e.g. overview or inspection"
    },
    "text": {
      "type": "string",
      "description": "Free text to retrieve ranked passages for, instead of an id lookup"
    },
    "limit": {
      "type": "integer",
      "minimum": 1,
      "maximum": 10,
      "description": "Maximum number of passages for a free-text lookup"
    }
  },
  "additionalProperties": false
}`

// DocumentContentTool fetches document text by entity id, or ranked passages
// for free text through the semantic searcher.
type DocumentContentTool struct {
	docs     store.DocumentStore
	semantic search.SemanticSearcher
}

// NewDocumentContentTool creates the tool over the document store and
// semantic searcher.
func NewDocumentContentTool(docs store.DocumentStore, semantic search.SemanticSearcher) *DocumentContentTool {
	return &DocumentContentTool{docs: docs, semantic: semantic}
}

func (t *DocumentContentTool) Descriptor() domain.ToolDescriptor {
	return domain.ToolDescriptor{
		Name:            DocumentContentName,
		Capability:      domain.CapabilitySemantic,
		InputSchema:     json.RawMessage(documentContentSchema),
		MaxCallsPerTurn: 3,
	}
}

type documentContentArgs struct {
	EntityID int64  `json:"entity_id"`
	Section  string `json:"section"`
	Text     string `json:"text"`
	Limit    int    `json:"limit"`
}

func (t *DocumentContentTool) Invoke(ctx context.Context, args json.RawMessage) (Result, error) {
	var a documentContentArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return Result{}, fmt.Errorf("malformed arguments: %w", err)
		}
	}

	switch {
	case a.EntityID != 0:
		return t.byEntity(ctx, a)
	case a.Text != "":
		return t.byText(ctx, a)
	default:
		return Result{}, fmt.Errorf("either entity_id or text is required")
	}
}

func (t *DocumentContentTool) byEntity(ctx context.Context, a documentContentArgs) (Result, error) {
	var sections []domain.DocumentSection

	if a.Section != "" {
		doc, err := t.docs.GetDocument(ctx, a.EntityID, a.Section)
		if err != nil {
			return Result{}, fmt.Errorf("document lookup failed: %w", err)
		}
		if doc == nil {
			return Result{}, fmt.Errorf("document section %q for entity %d not found", a.Section, a.EntityID)
		}
		sections = []domain.DocumentSection{*doc}
	} else {
		var err error
		sections, err = t.docs.ListDocuments(ctx, a.EntityID)
		if err != nil {
			return Result{}, fmt.Errorf("document lookup failed: %w", err)
		}
		if len(sections) == 0 {
			return Result{}, fmt.Errorf("no documents for entity %d", a.EntityID)
		}
	}

	payload, err := json.Marshal(sections)
	if err != nil {
		return Result{}, err
	}

	sources := make([]domain.Source, 0, len(sections))
	for _, sec := range sections {
		sources = append(sources, domain.Source{
			ID:      fmt.Sprintf("document:%d/%s", sec.EntityID, sec.Section),
			Kind:    "document",
			Excerpt: excerpt(sec.Content),
		})
	}
	return Result{Payload: payload, Sources: sources}, nil
}

func (t *DocumentContentTool) byText(ctx context.Context, a documentContentArgs) (Result, error) {
	passages, err := t.semantic.Search(ctx, a.Text, a.Limit)
	if err != nil {
		return Result{}, fmt.Errorf("semantic lookup failed: %w", err)
	}

	payload, err := json.Marshal(passages)
	if err != nil {
		return Result{}, err
	}

	sources := make([]domain.Source, 0, len(passages))
	for _, p := range passages {
		sources = append(sources, domain.Source{
			ID:      fmt.Sprintf("document:%d/%s", p.EntityID, p.Section),
			Kind:    "document",
			Excerpt: p.Excerpt,
		})
	}
	return Result{Payload: payload, Sources: sources}, nil
}

// Ping checks the semantic searcher, which also exercises the document store.
func (t *DocumentContentTool) Ping(ctx context.Context) error {
	return t.semantic.Ping(ctx)
}

func excerpt(s string) string {
	if len(s) <= 240 {
		return s
	}
	return s[:240] + "..."
}

var _ Tool = (*DocumentContentTool)(nil)
