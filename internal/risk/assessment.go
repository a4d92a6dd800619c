package risk

import (
	"time"

	"github.com/sentinelroad/roadrisk/internal/domain"
)

// Level buckets a composite score into an operator-facing category.
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// LevelFor maps a 0-100 composite score to its level. Boundaries are
// inclusive on the lower side: 30 is medium, 29.99 is low.
func LevelFor(score float64) Level {
	switch {
	case score >= 80:
		return LevelCritical
	case score >= 60:
		return LevelHigh
	case score >= 30:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Color returns the map rendering color for the level.
func (l Level) Color() string {
	switch l {
	case LevelCritical:
		return "#8B0000"
	case LevelHigh:
		return "#FF0000"
	case LevelMedium:
		return "#FFA500"
	default:
		return "#90EE90"
	}
}

// Component is one scored sub-signal with its contribution to the
// composite. Details carry the raw measurements behind the score so an
// assessment is auditable after the fact.
type Component struct {
	Score        float64        `json:"score"`
	Weight       float64        `json:"weight"`
	Contribution float64        `json:"contribution"`
	Details      map[string]any `json:"details,omitempty"`
}

// Assessment is the full scored picture of one location at one moment.
type Assessment struct {
	Location   domain.Geo           `json:"location"`
	Score      float64              `json:"score"`
	Level      Level                `json:"level"`
	Color      string               `json:"color"`
	Components map[string]Component `json:"components"`
	Timestamp  time.Time            `json:"timestamp"`
}
