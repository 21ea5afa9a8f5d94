// Package metrics exposes Prometheus instrumentation for the orchestrator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ToolInvocations counts tool calls by tool name and outcome (ok, error, rejected).
	ToolInvocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "aquasense",
		Name:      "tool_invocations_total",
		Help:      "Tool invocations by tool and outcome.",
	}, []string{"tool", "outcome"})

	// ToolLatency observes per-call tool latency.
	ToolLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "aquasense",
		Name:      "tool_latency_seconds",
		Help:      "Tool call latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"tool"})

	// CacheHits counts answer-cache hits.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "aquasense",
		Name:      "cache_hits_total",
		Help:      "Answer cache hits.",
	})

	// CacheMisses counts answer-cache misses.
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "aquasense",
		Name:      "cache_misses_total",
		Help:      "Answer cache misses.",
	})

	// TurnDuration observes end-to-end turn latency.
	TurnDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "aquasense",
		Name:      "turn_duration_seconds",
		Help:      "End-to-end query turn latency.",
		Buckets:   prometheus.DefBuckets,
	})

	// TurnsTotal counts turns by outcome (ok, partial, error).
	TurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "aquasense",
		Name:      "turns_total",
		Help:      "Completed turns by outcome.",
	}, []string{"outcome"})
)
