package risk

import (
	"log/slog"
	"math"

	"github.com/sentinelroad/roadrisk/internal/domain"
	"github.com/sentinelroad/roadrisk/internal/incident"
	"github.com/sentinelroad/roadrisk/internal/observability"
)

const (
	// featureRadiusDeg is the survey radius for infrastructure features,
	// roughly 500m expressed in degrees.
	featureRadiusDeg = 0.005
	// unlitThresholdDeg is how close a point must be to an unlit way
	// vertex to count as on that road, roughly 100m in degrees.
	unlitThresholdDeg = 0.001
	// defaultIncidentRadiusKm bounds which prior incidents influence a
	// location's score.
	defaultIncidentRadiusKm = 1.0

	dayStartHour   = 6
	nightStartHour = 19
)

// Scorer computes composite risk assessments from observed sub-signals.
type Scorer struct {
	weights             Weights
	categoryWeights     map[incident.Category]float64
	severityMultipliers map[int]float64
	incidentRadiusKm    float64
	metrics             *observability.Metrics
	logger              *slog.Logger
}

// ScorerOption adjusts scorer construction.
type ScorerOption func(*Scorer)

// WithCategoryWeights overrides the per-category incident weights.
func WithCategoryWeights(cw map[incident.Category]float64) ScorerOption {
	return func(s *Scorer) { s.categoryWeights = cw }
}

// WithSeverityMultipliers overrides the severity scaling table.
func WithSeverityMultipliers(sm map[int]float64) ScorerOption {
	return func(s *Scorer) { s.severityMultipliers = sm }
}

// WithIncidentRadius sets the incident search radius in kilometers.
func WithIncidentRadius(km float64) ScorerOption {
	return func(s *Scorer) { s.incidentRadiusKm = km }
}

// NewScorer validates the weight table and builds a scorer. Metrics may be
// nil when scoring outside the daemon (the assess CLI).
func NewScorer(weights Weights, metrics *observability.Metrics, logger *slog.Logger, opts ...ScorerOption) (*Scorer, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scorer{
		weights:             weights,
		categoryWeights:     DefaultCategoryWeights(),
		severityMultipliers: DefaultSeverityMultipliers(),
		incidentRadiusKm:    defaultIncidentRadiusKm,
		metrics:             metrics,
		logger:              logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Score assembles the composite assessment for one location. Sub-signals
// that are missing score zero with an explanatory detail; scoring never
// fails outright.
func (s *Scorer) Score(loc domain.Geo, obs Observations) Assessment {
	traffic, trafficDetails := s.trafficAnomaly(obs.Traffic)
	weather, weatherDetails := s.weatherRisk(obs.Weather)
	infra, infraDetails := s.infrastructureRisk(loc, obs.Infrastructure)
	poi, poiDetails := s.poiRisk(obs.POI)
	incidents, incidentDetails := s.incidentRisk(loc, obs.Incidents)
	speeding, speedingDetails := s.speedingRisk(obs.Speed)

	composite := s.weights.Traffic*traffic +
		s.weights.Weather*weather +
		s.weights.Infrastructure*infra +
		s.weights.POI*poi +
		s.weights.Incidents*incidents +
		s.weights.Speeding*speeding

	score := clamp(composite*100, 0, 100)
	level := LevelFor(score)

	if s.metrics != nil {
		s.metrics.AssessmentsComputed.Inc()
		s.metrics.RiskScore.Observe(score)
	}
	s.logger.Debug("risk assessment computed",
		slog.Float64("lat", loc.Lat),
		slog.Float64("lon", loc.Lon),
		slog.Float64("score", score),
		slog.String("level", string(level)),
	)

	return Assessment{
		Location: loc,
		Score:    round2(score),
		Level:    level,
		Color:    level.Color(),
		Components: map[string]Component{
			"traffic":        component(traffic, s.weights.Traffic, trafficDetails),
			"weather":        component(weather, s.weights.Weather, weatherDetails),
			"infrastructure": component(infra, s.weights.Infrastructure, infraDetails),
			"poi":            component(poi, s.weights.POI, poiDetails),
			"incidents":      component(incidents, s.weights.Incidents, incidentDetails),
			"speeding":       component(speeding, s.weights.Speeding, speedingDetails),
		},
		Timestamp: clock.Now().UTC(),
	}
}

func component(score, weight float64, details map[string]any) Component {
	return Component{
		Score:        round3(score),
		Weight:       weight,
		Contribution: round2(score * weight * 100),
		Details:      details,
	}
}

// trafficAnomaly scores how far below free flow the observed speed is.
// Stopped or crawling traffic is floored at 0.7 regardless of the ratio.
func (s *Scorer) trafficAnomaly(t *TrafficSnapshot) (float64, map[string]any) {
	if t == nil {
		return 0, map[string]any{"error": "no traffic data"}
	}
	if t.FreeFlowSpeed == 0 {
		return 0, map[string]any{
			"current_speed":   t.CurrentSpeed,
			"free_flow_speed": t.FreeFlowSpeed,
		}
	}

	anomaly := clamp((t.FreeFlowSpeed-t.CurrentSpeed)/t.FreeFlowSpeed, 0, 1)
	if t.CurrentSpeed < 10 {
		anomaly = math.Max(anomaly, 0.7)
	}

	return anomaly, map[string]any{
		"current_speed":   t.CurrentSpeed,
		"free_flow_speed": t.FreeFlowSpeed,
		"speed_ratio":     t.CurrentSpeed / t.FreeFlowSpeed,
		"anomaly_score":   anomaly,
	}
}

var weatherConditionRisk = map[string]float64{
	"thunderstorm": 0.9,
	"drizzle":      0.5,
	"rain":         0.7,
	"snow":         0.8,
	"mist":         0.6,
	"fog":          0.8,
	"haze":         0.5,
	"dust":         0.6,
	"smoke":        0.7,
	"clear":        0.0,
	"clouds":       0.2,
}

const defaultConditionRisk = 0.2

// weatherRisk scores the prevailing conditions. Poor visibility raises the
// floor, and the night hours add a flat penalty capped at 1.0.
func (s *Scorer) weatherRisk(w *WeatherSnapshot) (float64, map[string]any) {
	if w == nil {
		return 0, map[string]any{"error": "no weather data"}
	}

	condition := domain.NormalizeKeyword(w.Condition)
	risk, ok := weatherConditionRisk[condition]
	if !ok {
		risk = defaultConditionRisk
	}

	details := map[string]any{"condition": condition}

	visibility := w.Visibility
	if visibility == 0 {
		// Stations that omit visibility report it as unrestricted.
		visibility = 10000
	}
	switch {
	case visibility < 1000:
		risk = math.Max(risk, 0.8)
		details["visibility_risk"] = "high"
	case visibility < 5000:
		risk = math.Max(risk, 0.5)
		details["visibility_risk"] = "medium"
	default:
		details["visibility_risk"] = "low"
	}
	details["visibility_m"] = visibility

	hour := clock.Now().Hour()
	if hour >= nightStartHour || hour < dayStartHour {
		risk = math.Min(1.0, risk+0.3)
		details["time_risk"] = "night"
	} else {
		details["time_risk"] = "day"
	}
	details["hour"] = hour
	details["weather_risk_score"] = risk

	return risk, details
}

// infrastructureRisk sums flat penalties for risky road features near the
// location. Distances use a euclidean degree approximation, which is
// adequate at the sub-kilometre scales involved.
func (s *Scorer) infrastructureRisk(loc domain.Geo, f *InfrastructureSnapshot) (float64, map[string]any) {
	if f == nil {
		return 0, map[string]any{"error": "no infrastructure data"}
	}

	risk := 0.0
	var penalties []map[string]any

	signals := countNearby(loc, f.Signals, featureRadiusDeg)
	if signals == 0 {
		risk += 0.3
		penalties = append(penalties, map[string]any{"type": "no_traffic_signal", "penalty": 0.3})
	}

	junctions := countNearby(loc, f.Junctions, featureRadiusDeg)
	if junctions > 2 {
		risk += 0.4
		penalties = append(penalties, map[string]any{"type": "complex_junction", "penalty": 0.4})
	}

	unlit := onUnlitRoad(loc, f.UnlitRoads)
	if unlit {
		risk += 0.5
		penalties = append(penalties, map[string]any{"type": "unlit_road", "penalty": 0.5})
	}

	crossings := countNearby(loc, f.Crossings, featureRadiusDeg)
	if crossings > 3 {
		risk += 0.2
		penalties = append(penalties, map[string]any{"type": "multiple_crossings", "penalty": 0.2})
	}

	risk = math.Min(1.0, risk)

	return risk, map[string]any{
		"nearby_signals":            signals,
		"nearby_junctions":          junctions,
		"unlit_road":                unlit,
		"nearby_crossings":          crossings,
		"penalties":                 penalties,
		"infrastructure_risk_score": risk,
	}
}

func countNearby(loc domain.Geo, points []domain.Geo, radiusDeg float64) int {
	n := 0
	for _, p := range points {
		if degreeDistance(loc, p) <= radiusDeg {
			n++
		}
	}
	return n
}

func onUnlitRoad(loc domain.Geo, roads [][]domain.Geo) bool {
	for _, geometry := range roads {
		for _, p := range geometry {
			if degreeDistance(loc, p) < unlitThresholdDeg {
				return true
			}
		}
	}
	return false
}

func degreeDistance(a, b domain.Geo) float64 {
	dlat := b.Lat - a.Lat
	dlon := b.Lon - a.Lon
	return math.Sqrt(dlat*dlat + dlon*dlon)
}

// poiRisk scores the surroundings by point-of-interest mix. Schools, bars
// and bus stops raise risk with diminishing caps; hospitals lower it.
func (s *Scorer) poiRisk(p *POISnapshot) (float64, map[string]any) {
	if p == nil {
		return 0, map[string]any{"error": "no poi data"}
	}

	risk := 0.0
	var factors []map[string]any

	if p.Schools > 0 {
		added := math.Min(0.4, float64(p.Schools)*0.15)
		risk += added
		factors = append(factors, map[string]any{"type": "schools", "count": p.Schools, "risk_added": round3(added)})
	}
	if p.Bars > 0 {
		added := math.Min(0.5, float64(p.Bars)*0.2)
		risk += added
		factors = append(factors, map[string]any{"type": "bars", "count": p.Bars, "risk_added": round3(added)})
	}
	if p.BusStops > 0 {
		added := math.Min(0.3, float64(p.BusStops)*0.1)
		risk += added
		factors = append(factors, map[string]any{"type": "bus_stops", "count": p.BusStops, "risk_added": round3(added)})
	}
	if p.Hospitals > 0 {
		reduced := math.Min(0.2, float64(p.Hospitals)*0.1)
		risk -= reduced
		factors = append(factors, map[string]any{"type": "hospitals", "count": p.Hospitals, "risk_added": round3(-reduced)})
	}

	risk = clamp(risk, 0, 1)

	return risk, map[string]any{
		"factors":        factors,
		"poi_risk_score": risk,
	}
}

// incidentRisk accumulates weighted contributions from prior incidents
// within the search radius. Categories absent from the weight table, such
// as protests and uncategorized reports, do not contribute.
func (s *Scorer) incidentRisk(loc domain.Geo, incidents []NearbyIncident) (float64, map[string]any) {
	if len(incidents) == 0 {
		return 0, map[string]any{"incident_count": 0, "factors": []map[string]any{}}
	}

	risk := 0.0
	count := 0
	nearby := map[string]int{}
	var factors []map[string]any

	for _, inc := range incidents {
		weight, ok := s.categoryWeights[inc.Category]
		if !ok {
			continue
		}
		distKm := domain.HaversineKm(loc, inc.Location)
		if distKm > s.incidentRadiusKm {
			continue
		}

		multiplier, ok := s.severityMultipliers[inc.Severity]
		if !ok {
			multiplier = defaultSeverityMultiplier
		}
		added := weight * multiplier
		risk += added
		count++
		nearby[string(inc.Category)]++
		factors = append(factors, map[string]any{
			"type":        string(inc.Category),
			"distance_km": round2(distKm),
			"severity":    inc.Severity,
			"risk_added":  round3(added),
		})
	}

	risk = clamp(risk, 0, 1)

	return risk, map[string]any{
		"incident_count":      count,
		"nearby_incidents":    nearby,
		"factors":             factors,
		"incident_risk_score": risk,
	}
}

// speedingRisk scores how far the observed speed exceeds the posted limit.
func (s *Scorer) speedingRisk(sp *SpeedSnapshot) (float64, map[string]any) {
	if sp == nil {
		return 0, map[string]any{"error": "no speed data"}
	}
	if sp.SpeedLimit <= 0 {
		return 0, map[string]any{"error": "no posted limit"}
	}

	over := (sp.CurrentSpeed - sp.SpeedLimit) / sp.SpeedLimit
	var risk float64
	switch {
	case over <= 0:
		risk = 0
	case over > 0.5:
		risk = 0.9
	case over > 0.3:
		risk = 0.7
	case over > 0.1:
		risk = 0.4
	default:
		risk = 0.2
	}

	return risk, map[string]any{
		"current_speed":  sp.CurrentSpeed,
		"speed_limit":    sp.SpeedLimit,
		"over_limit_pct": round2(over * 100),
		"speeding_score": risk,
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
