// Package scoring derives the remediation-priority score for a water body
// from its stored attributes. The derivation is a pure function so the same
// attributes always explain to the same score.
package scoring

import (
	"math"

	"github.com/aquasense/orchestrator/internal/domain"
)

// Component weights. Poor quality drives priority up, so the quality index
// enters inverted.
const (
	weightQuality    = 0.40
	weightEcological = 0.35
	weightUsage      = 0.25
)

// Priority classification thresholds.
const (
	highThreshold   = 0.70
	mediumThreshold = 0.40
)

// Explanation is the score, its component breakdown, and the classification
// label derived from a record's attributes.
type Explanation struct {
	Score      float64            `json:"score"`
	Level      string             `json:"level"`
	Components map[string]float64 `json:"components"`
}

// Explain computes the priority score for a water body.
func Explain(wb domain.WaterBody) Explanation {
	components := map[string]float64{
		"quality_deficit":  round3(weightQuality * (1 - clamp01(wb.QualityIndex))),
		"ecological_value": round3(weightEcological * clamp01(wb.EcologicalValue)),
		"usage_pressure":   round3(weightUsage * clamp01(wb.UsagePressure)),
	}

	score := 0.0
	for _, c := range components {
		score += c
	}
	score = round3(clamp01(score))

	return Explanation{
		Score:      score,
		Level:      Classify(score),
		Components: components,
	}
}

// Classify maps a score to its priority level label.
func Classify(score float64) string {
	switch {
	case score >= highThreshold:
		return "high"
	case score >= mediumThreshold:
		return "medium"
	default:
		return "low"
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
