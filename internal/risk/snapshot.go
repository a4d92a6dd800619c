package risk

import (
	"github.com/sentinelroad/roadrisk/internal/domain"
	"github.com/sentinelroad/roadrisk/internal/incident"
)

// TrafficSnapshot is the observed flow at an assessment point. Speeds are
// in km/h.
type TrafficSnapshot struct {
	CurrentSpeed  float64 `json:"currentSpeed"`
	FreeFlowSpeed float64 `json:"freeFlowSpeed"`
}

// WeatherSnapshot is the prevailing weather condition at an assessment
// point. Visibility is in metres; zero means not reported.
type WeatherSnapshot struct {
	Condition  string  `json:"condition"`
	Visibility float64 `json:"visibility"`
}

// InfrastructureSnapshot holds mapped road infrastructure near an
// assessment point. Unlit roads are carried as their way geometries so the
// scorer can test proximity against every vertex.
type InfrastructureSnapshot struct {
	Signals    []domain.Geo   `json:"signals"`
	Junctions  []domain.Geo   `json:"junctions"`
	UnlitRoads [][]domain.Geo `json:"unlitRoads"`
	Crossings  []domain.Geo   `json:"crossings"`
}

// POISnapshot holds counts of risk-relevant points of interest within the
// survey radius of an assessment point.
type POISnapshot struct {
	Schools   int `json:"schools"`
	Hospitals int `json:"hospitals"`
	Bars      int `json:"bars"`
	BusStops  int `json:"busStops"`
}

// SpeedSnapshot compares observed speed to the posted limit, both in km/h.
type SpeedSnapshot struct {
	CurrentSpeed float64 `json:"currentSpeed"`
	SpeedLimit   float64 `json:"speedLimit"`
}

// Observations bundles everything known about an assessment point. Any nil
// field means that signal could not be fetched; the matching sub-score is
// zero with an explanatory detail rather than an error.
type Observations struct {
	Traffic        *TrafficSnapshot
	Weather        *WeatherSnapshot
	Infrastructure *InfrastructureSnapshot
	POI            *POISnapshot
	Incidents      []NearbyIncident
	Speed          *SpeedSnapshot
}

// NearbyIncident is a prior incident considered during scoring.
type NearbyIncident struct {
	Category incident.Category `json:"category"`
	Severity int               `json:"severity"`
	Location domain.Geo        `json:"location"`
}
