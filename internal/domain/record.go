package domain

import "time"

// WaterBody is one monitored water-infrastructure record.
type WaterBody struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Region          string    `json:"region"`
	BodyType        string    `json:"body_type"` // river, lake, reservoir, canal
	QualityIndex    float64   `json:"quality_index"`    // 0..1, higher is cleaner
	EcologicalValue float64   `json:"ecological_value"` // 0..1
	UsagePressure   float64   `json:"usage_pressure"`   // 0..1
	PriorityScore   float64   `json:"priority_score"`
	PriorityLevel   string    `json:"priority_level"` // low, medium, high
	UpdatedAt       time.Time `json:"updated_at"`
}

// DocumentSection is a named slice of an entity's associated document text.
type DocumentSection struct {
	EntityID int64  `json:"entity_id"`
	Section  string `json:"section"`
	Content  string `json:"content"`
}
