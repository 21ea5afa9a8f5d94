// Package health periodically probes the orchestrator's dependencies and
// aggregates their availability into a single status. The monitor is
// read-only: it never influences the supervisor loop, but callers can
// consult its last snapshot to avoid submitting a doomed turn.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aquasense/orchestrator/internal/answer"
	"github.com/aquasense/orchestrator/internal/domain"
	"github.com/aquasense/orchestrator/internal/tools"
)

// DependencyStatus is the probe result for one dependency.
type DependencyStatus struct {
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Snapshot is the monitor's last-known aggregate state.
type Snapshot struct {
	Status         domain.HealthStatus         `json:"status"`
	Dependencies   map[string]DependencyStatus `json:"dependencies"`
	ToolsAvailable []string                    `json:"tools_available"`
	CheckedAt      time.Time                   `json:"checked_at"`
}

// Monitor probes the answer-generation service and every registered tool
// backend on a fixed interval, keeping the latest snapshot in a shared cell.
type Monitor struct {
	generator    answer.Generator
	registry     *tools.Registry
	interval     time.Duration
	probeTimeout time.Duration
	log          zerolog.Logger

	mu       sync.RWMutex
	snapshot Snapshot
}

// NewMonitor creates a monitor. Until the first probe completes the
// snapshot reports unavailable.
func NewMonitor(generator answer.Generator, registry *tools.Registry, interval time.Duration, log zerolog.Logger) *Monitor {
	return &Monitor{
		generator:    generator,
		registry:     registry,
		interval:     interval,
		probeTimeout: 5 * time.Second,
		log:          log.With().Str("component", "health").Logger(),
		snapshot: Snapshot{
			Status:       domain.HealthUnavailable,
			Dependencies: map[string]DependencyStatus{},
		},
	}
}

// Run probes immediately, then on every tick until the context is done.
func (m *Monitor) Run(ctx context.Context) {
	m.Probe(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Probe(ctx)
		}
	}
}

// Probe runs one probe cycle and stores the resulting snapshot.
func (m *Monitor) Probe(ctx context.Context) Snapshot {
	probeCtx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	defer cancel()

	now := time.Now()
	deps := make(map[string]DependencyStatus)

	modelErr := m.generator.Ping(probeCtx)
	deps["answer_service"] = statusFor(modelErr, now)

	var available []string
	for _, name := range m.registry.Names() {
		err := m.registry.Get(name).Ping(probeCtx)
		deps["tool:"+name] = statusFor(err, now)
		if err == nil {
			available = append(available, name)
		}
	}

	status := aggregate(modelErr == nil, len(available) > 0)
	snap := Snapshot{
		Status:         status,
		Dependencies:   deps,
		ToolsAvailable: available,
		CheckedAt:      now,
	}

	m.mu.Lock()
	prev := m.snapshot.Status
	m.snapshot = snap
	m.mu.Unlock()

	if prev != status {
		m.log.Info().Str("from", string(prev)).Str("to", string(status)).Msg("health status changed")
	}
	return snap
}

// Snapshot returns the last-known state.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

func aggregate(modelUp, anyToolUp bool) domain.HealthStatus {
	switch {
	case modelUp && anyToolUp:
		return domain.HealthOperational
	case modelUp:
		return domain.HealthDegraded
	default:
		return domain.HealthUnavailable
	}
}

func statusFor(err error, now time.Time) DependencyStatus {
	st := DependencyStatus{Healthy: err == nil, CheckedAt: now}
	if err != nil {
		st.Error = err.Error()
	}
	return st
}
