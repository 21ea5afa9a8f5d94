// Package store persists water-body records, their associated document text,
// and the diagnostic turn event log.
package store

import (
	"context"

	"github.com/aquasense/orchestrator/internal/domain"
)

// StructuredStore is the synchronous lookup/filter surface over domain
// records. Results are bounded by the caller-supplied cap.
type StructuredStore interface {
	FindWaterBodies(ctx context.Context, f domain.Filters, cap int) ([]domain.WaterBody, error)
	GetWaterBody(ctx context.Context, id int64) (*domain.WaterBody, error)
	UpdatePriority(ctx context.Context, id int64, score float64, level string) error
}

// DocumentStore looks up document text by entity id and optional section.
type DocumentStore interface {
	GetDocument(ctx context.Context, entityID int64, section string) (*domain.DocumentSection, error)
	ListDocuments(ctx context.Context, entityID int64) ([]domain.DocumentSection, error)
	AllDocuments(ctx context.Context) ([]domain.DocumentSection, error)
}

// EventLog records diagnostic turn events.
type EventLog interface {
	CreateEvent(ctx context.Context, ev *domain.TurnEvent) error
	GetEvents(ctx context.Context, turnID string, limit int) ([]domain.TurnEvent, error)
}

// Store is the full persistence surface backed by one database.
type Store interface {
	StructuredStore
	DocumentStore
	EventLog
	Ping(ctx context.Context) error
	Close() error
}
