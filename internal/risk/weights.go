package risk

import (
	"fmt"

	"github.com/sentinelroad/roadrisk/internal/incident"
)

// Weights are the operator-tuned relative influences of each sub-score.
// They need not sum to 1; the composite is Σ weight·subscore scaled to 0-100.
type Weights struct {
	Traffic        float64
	Weather        float64
	Infrastructure float64
	POI            float64
	Incidents      float64
	Speeding       float64
}

// DefaultWeights returns the hand-tuned production weights.
func DefaultWeights() Weights {
	return Weights{
		Traffic:        0.25,
		Weather:        0.25,
		Infrastructure: 0.15,
		POI:            0.15,
		Incidents:      0.20,
		Speeding:       0.0,
	}
}

// Validate rejects malformed weight tables at startup. Negative weights are
// always a configuration mistake; a zero weight just disables a component.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"traffic":        w.Traffic,
		"weather":        w.Weather,
		"infrastructure": w.Infrastructure,
		"poi":            w.POI,
		"incidents":      w.Incidents,
		"speeding":       w.Speeding,
	} {
		if v < 0 {
			return fmt.Errorf("risk weight %s must not be negative, got %v", name, v)
		}
	}
	return nil
}

// DefaultCategoryWeights ranks incident categories by how strongly a nearby
// incident of that category raises risk. Hand-tuned heuristic kept as
// configuration data; categories absent from the table contribute nothing.
func DefaultCategoryWeights() map[incident.Category]float64 {
	return map[incident.Category]float64{
		incident.CategoryClosures:       1.0,
		incident.CategoryAccidents:      0.8,
		incident.CategoryWeatherHazards: 0.7,
		incident.CategoryVehicleHazards: 0.6,
		incident.CategoryRoadWorks:      0.5,
		incident.CategoryTrafficJams:    0.4,
	}
}

// DefaultSeverityMultipliers scales an incident's contribution by its
// reported 0-4 magnitude. Magnitudes outside the table use
// defaultSeverityMultiplier.
func DefaultSeverityMultipliers() map[int]float64 {
	return map[int]float64{
		0: 0.2, // none
		1: 0.4, // minor
		2: 0.6, // moderate
		3: 0.9, // major
		4: 0.5, // undefined
	}
}

const defaultSeverityMultiplier = 0.5
