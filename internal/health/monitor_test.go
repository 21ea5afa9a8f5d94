package health

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/aquasense/orchestrator/internal/answer"
	"github.com/aquasense/orchestrator/internal/domain"
	"github.com/aquasense/orchestrator/internal/search"
	"github.com/aquasense/orchestrator/internal/tools"
	"github.com/aquasense/orchestrator/tests/helpers"
)

func newTestRegistry(t *testing.T) *tools.Registry {
	t.Helper()

	db := helpers.NewTestSQLiteStore(t)
	registry := tools.NewRegistry()
	registry.MustRegister(tools.NewStructuredSearchTool(db, 10))
	registry.MustRegister(tools.NewExternalLookupTool(search.NewStaticExternalSearcher()))
	return registry
}

func TestInitialSnapshotUnavailable(t *testing.T) {
	m := NewMonitor(answer.NewMockGenerator(), newTestRegistry(t), time.Minute, zerolog.Nop())
	assert.Equal(t, domain.HealthUnavailable, m.Snapshot().Status)
}

func TestProbeOperational(t *testing.T) {
	m := NewMonitor(answer.NewMockGenerator(), newTestRegistry(t), time.Minute, zerolog.Nop())

	snap := m.Probe(context.Background())
	assert.Equal(t, domain.HealthOperational, snap.Status)
	assert.True(t, snap.Dependencies["answer_service"].Healthy)
	assert.True(t, snap.Dependencies["tool:"+tools.StructuredSearchName].Healthy)
	assert.Contains(t, snap.ToolsAvailable, tools.StructuredSearchName)
	assert.Contains(t, snap.ToolsAvailable, tools.ExternalLookupName)

	// The stored snapshot reflects the probe.
	assert.Equal(t, domain.HealthOperational, m.Snapshot().Status)
}

func TestProbeUnavailableWhenGeneratorDown(t *testing.T) {
	gen := &answer.MockGenerator{Down: true}
	m := NewMonitor(gen, newTestRegistry(t), time.Minute, zerolog.Nop())

	snap := m.Probe(context.Background())
	assert.Equal(t, domain.HealthUnavailable, snap.Status)
	assert.False(t, snap.Dependencies["answer_service"].Healthy)
	assert.NotEmpty(t, snap.Dependencies["answer_service"].Error)
}

func TestProbeRecovery(t *testing.T) {
	gen := &answer.MockGenerator{Down: true}
	m := NewMonitor(gen, newTestRegistry(t), time.Minute, zerolog.Nop())

	assert.Equal(t, domain.HealthUnavailable, m.Probe(context.Background()).Status)

	gen.Down = false
	assert.Equal(t, domain.HealthOperational, m.Probe(context.Background()).Status)
}

func TestAggregate(t *testing.T) {
	assert.Equal(t, domain.HealthOperational, aggregate(true, true))
	assert.Equal(t, domain.HealthDegraded, aggregate(true, false))
	assert.Equal(t, domain.HealthUnavailable, aggregate(false, true))
	assert.Equal(t, domain.HealthUnavailable, aggregate(false, false))
}
