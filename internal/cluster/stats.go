package cluster

import (
	"github.com/sentinelroad/roadrisk/internal/domain"
	"github.com/sentinelroad/roadrisk/internal/incident"
)

// Distribution summarizes a set of incidents across category, provenance
// and priority.
type Distribution struct {
	Total         int                         `json:"total"`
	ByCategory    map[incident.Category]int   `json:"by_category"`
	ByProvenance  map[incident.Provenance]int `json:"by_provenance"`
	ByPriority    map[domain.Priority]int     `json:"by_priority"`
	CitizenCount  int                         `json:"citizen_count"`
	NewsCount     int                         `json:"news_count"`
	OfficialCount int                         `json:"official_count"`
}

// Distribute computes distribution statistics over incidents.
func Distribute(incidents []incident.Incident) Distribution {
	d := Distribution{
		ByCategory:   map[incident.Category]int{},
		ByProvenance: map[incident.Provenance]int{},
		ByPriority:   map[domain.Priority]int{},
	}
	for _, inc := range incidents {
		d.Total++
		d.ByCategory[inc.Category]++
		d.ByProvenance[inc.Provenance]++
		d.ByPriority[inc.Priority]++

		switch inc.Provenance {
		case incident.ProvenanceCitizen:
			d.CitizenCount++
		case incident.ProvenanceNews:
			d.NewsCount++
		case incident.ProvenanceOfficial:
			d.OfficialCount++
		}
	}
	return d
}

// HeatmapPoint is one weighted coordinate for map rendering.
type HeatmapPoint struct {
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Weight float64 `json:"weight"`
}

// heatmapWeights scales a point's rendering intensity by priority.
var heatmapWeights = map[domain.Priority]float64{
	domain.PriorityLow:      2,
	domain.PriorityMedium:   3,
	domain.PriorityHigh:     4,
	domain.PriorityCritical: 5,
}

// Heatmap converts located incidents into weighted heatmap points.
// Incidents without coordinates are skipped.
func Heatmap(incidents []incident.Incident) []HeatmapPoint {
	points := make([]HeatmapPoint, 0, len(incidents))
	for _, inc := range incidents {
		if !inc.HasLocation {
			continue
		}
		weight, ok := heatmapWeights[inc.Priority]
		if !ok {
			weight = heatmapWeights[domain.PriorityMedium]
		}
		points = append(points, HeatmapPoint{
			Lat:    inc.Location.Lat,
			Lon:    inc.Location.Lon,
			Weight: weight,
		})
	}
	return points
}
