// Package tools declares the closed set of retrieval tools and the registry
// that dispatch resolves them through. Adding a tool means adding a variant
// and a registry entry; dispatch never inspects concrete types.
package tools

import (
	"context"
	"encoding/json"

	"github.com/aquasense/orchestrator/internal/domain"
)

// Result is a tool's evidence contribution: a JSON payload for diagnostics
// and the citations extracted from it.
type Result struct {
	Payload json.RawMessage
	Sources []domain.Source
}

// Tool is the uniform interface every retrieval tool implements.
type Tool interface {
	Descriptor() domain.ToolDescriptor
	Invoke(ctx context.Context, args json.RawMessage) (Result, error)
	Ping(ctx context.Context) error
}
