// Package cluster groups nearby incidents into recurring high-risk zones
// using density-based spatial clustering.
package cluster

import (
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/sentinelroad/roadrisk/internal/domain"
	"github.com/sentinelroad/roadrisk/internal/incident"
	"github.com/sentinelroad/roadrisk/internal/risk"
)

const (
	// degreesPerKm converts a kilometre radius to the degree space the
	// clustering runs in. One degree is roughly 111 km.
	degreesPerKm = 1.0 / 111.0

	defaultEpsKm      = 0.5
	defaultMinSamples = 2
)

// Cluster is a derived aggregate over incidents sharing spatial proximity.
// Clusters are recomputed fully on each analysis run.
type Cluster struct {
	ID         string                      `json:"id"`
	Center     domain.Geo                  `json:"center"`
	Count      int                         `json:"incident_count"`
	Categories map[incident.Category]int   `json:"categories"`
	Sources    map[incident.Provenance]int `json:"sources"`
	Priorities map[domain.Priority]int     `json:"priorities"`
	RiskLevel  risk.Level                  `json:"risk_level"`
	Members    []incident.Incident         `json:"incidents"`
}

// Analyzer runs density clustering over categorized incidents.
type Analyzer struct {
	epsKm      float64
	minSamples int
	logger     *slog.Logger
}

// NewAnalyzer builds an analyzer. Non-positive parameters fall back to the
// defaults of a 500m radius and two-incident minimum.
func NewAnalyzer(epsKm float64, minSamples int, logger *slog.Logger) *Analyzer {
	if epsKm <= 0 {
		epsKm = defaultEpsKm
	}
	if minSamples <= 0 {
		minSamples = defaultMinSamples
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{epsKm: epsKm, minSamples: minSamples, logger: logger}
}

// Clusters groups located incidents into high-risk zones, sorted by
// descending member count. Incidents without coordinates and points not
// dense enough to join any cluster are excluded.
func (a *Analyzer) Clusters(incidents []incident.Incident) []Cluster {
	located := make([]incident.Incident, 0, len(incidents))
	points := make([]domain.Geo, 0, len(incidents))
	for _, inc := range incidents {
		if !inc.HasLocation {
			continue
		}
		located = append(located, inc)
		points = append(points, inc.Location)
	}
	if len(points) < a.minSamples {
		return nil
	}

	labels := dbscan(points, a.epsKm*degreesPerKm, a.minSamples)

	byLabel := map[int][]int{}
	for i, label := range labels {
		if label == noiseLabel {
			continue
		}
		byLabel[label] = append(byLabel[label], i)
	}

	clusters := make([]Cluster, 0, len(byLabel))
	for _, indices := range byLabel {
		clusters = append(clusters, a.build(located, points, indices))
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].Count > clusters[j].Count
	})

	a.logger.Info("cluster analysis complete",
		slog.Int("incidents", len(located)),
		slog.Int("clusters", len(clusters)),
	)
	return clusters
}

func (a *Analyzer) build(located []incident.Incident, points []domain.Geo, indices []int) Cluster {
	c := Cluster{
		ID:         uuid.NewString(),
		Categories: map[incident.Category]int{},
		Sources:    map[incident.Provenance]int{},
		Priorities: map[domain.Priority]int{},
	}

	var sumLat, sumLon float64
	for _, i := range indices {
		inc := located[i]
		sumLat += points[i].Lat
		sumLon += points[i].Lon
		c.Categories[inc.Category]++
		c.Sources[inc.Provenance]++
		c.Priorities[inc.Priority]++
		c.Members = append(c.Members, inc)
	}

	n := float64(len(indices))
	c.Center = domain.Geo{Lat: sumLat / n, Lon: sumLon / n}
	c.Count = len(indices)
	c.RiskLevel = clusterRisk(c.Members)
	return c
}

// clusterRisk grades a cluster from its size and the number of urgent
// members.
func clusterRisk(members []incident.Incident) risk.Level {
	count := len(members)
	urgent := 0
	for _, inc := range members {
		if inc.Priority == domain.PriorityHigh || inc.Priority == domain.PriorityCritical {
			urgent++
		}
	}

	switch {
	case count >= 5 || urgent >= 3:
		return risk.LevelCritical
	case count >= 3 || urgent >= 2:
		return risk.LevelHigh
	case count >= 2:
		return risk.LevelMedium
	default:
		return risk.LevelLow
	}
}
