package risk

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinelroad/roadrisk/internal/domain"
	"github.com/sentinelroad/roadrisk/internal/incident"
	"github.com/sentinelroad/roadrisk/internal/observability"
)

var testLoc = domain.Geo{Lat: 18.5204, Lon: 73.8567}

func newTestScorer(t *testing.T, w Weights, opts ...ScorerOption) *Scorer {
	t.Helper()
	s, err := NewScorer(w, observability.NewMetricsForTesting(), nil, opts...)
	require.NoError(t, err)
	return s
}

func freezeAt(t *testing.T, at time.Time) {
	t.Helper()
	SetClock(clockwork.NewFakeClockAt(at))
	t.Cleanup(func() { SetClock(nil) })
}

func TestNewScorer_RejectsNegativeWeights(t *testing.T) {
	_, err := NewScorer(Weights{Traffic: -0.1}, nil, nil)
	assert.ErrorContains(t, err, "traffic")
}

func TestTrafficAnomaly(t *testing.T) {
	s := newTestScorer(t, DefaultWeights())

	t.Run("stopped traffic clamps to 1", func(t *testing.T) {
		score, details := s.trafficAnomaly(&TrafficSnapshot{CurrentSpeed: 0, FreeFlowSpeed: 60})
		assert.Equal(t, 1.0, score)
		assert.Equal(t, 0.0, details["speed_ratio"])
	})

	t.Run("partial congestion", func(t *testing.T) {
		score, _ := s.trafficAnomaly(&TrafficSnapshot{CurrentSpeed: 20, FreeFlowSpeed: 60})
		assert.InDelta(t, 0.667, score, 0.001)
	})

	t.Run("crawling traffic floored at 0.7", func(t *testing.T) {
		score, _ := s.trafficAnomaly(&TrafficSnapshot{CurrentSpeed: 8, FreeFlowSpeed: 10})
		assert.Equal(t, 0.7, score)
	})

	t.Run("fast free flow not floored", func(t *testing.T) {
		score, _ := s.trafficAnomaly(&TrafficSnapshot{CurrentSpeed: 55, FreeFlowSpeed: 60})
		assert.InDelta(t, 0.083, score, 0.001)
	})

	t.Run("zero free flow scores zero", func(t *testing.T) {
		score, details := s.trafficAnomaly(&TrafficSnapshot{CurrentSpeed: 30, FreeFlowSpeed: 0})
		assert.Equal(t, 0.0, score)
		assert.NotContains(t, details, "anomaly_score")
	})

	t.Run("missing snapshot", func(t *testing.T) {
		score, details := s.trafficAnomaly(nil)
		assert.Equal(t, 0.0, score)
		assert.Contains(t, details, "error")
	})
}

func TestWeatherRisk(t *testing.T) {
	s := newTestScorer(t, DefaultWeights())
	freezeAt(t, time.Date(2026, time.March, 10, 14, 0, 0, 0, time.UTC))

	t.Run("rain with moderate visibility keeps rain baseline", func(t *testing.T) {
		score, details := s.weatherRisk(&WeatherSnapshot{Condition: "Rain", Visibility: 3000})
		assert.InDelta(t, 0.7, score, 1e-9)
		assert.Equal(t, "medium", details["visibility_risk"])
	})

	t.Run("clear with very low visibility raises floor", func(t *testing.T) {
		score, details := s.weatherRisk(&WeatherSnapshot{Condition: "Clear", Visibility: 800})
		assert.InDelta(t, 0.8, score, 1e-9)
		assert.Equal(t, "high", details["visibility_risk"])
	})

	t.Run("unknown condition defaults", func(t *testing.T) {
		score, _ := s.weatherRisk(&WeatherSnapshot{Condition: "Tornado", Visibility: 10000})
		assert.InDelta(t, 0.2, score, 1e-9)
	})

	t.Run("unreported visibility treated as unrestricted", func(t *testing.T) {
		_, details := s.weatherRisk(&WeatherSnapshot{Condition: "Clouds"})
		assert.Equal(t, "low", details["visibility_risk"])
	})

	t.Run("missing snapshot", func(t *testing.T) {
		score, details := s.weatherRisk(nil)
		assert.Equal(t, 0.0, score)
		assert.Contains(t, details, "error")
	})
}

func TestWeatherRisk_NightPenalty(t *testing.T) {
	s := newTestScorer(t, DefaultWeights())

	t.Run("late evening adds penalty", func(t *testing.T) {
		freezeAt(t, time.Date(2026, time.March, 10, 22, 0, 0, 0, time.UTC))
		score, details := s.weatherRisk(&WeatherSnapshot{Condition: "Clear", Visibility: 10000})
		assert.InDelta(t, 0.3, score, 1e-9)
		assert.Equal(t, "night", details["time_risk"])
	})

	t.Run("penalty caps at 1", func(t *testing.T) {
		freezeAt(t, time.Date(2026, time.March, 10, 2, 0, 0, 0, time.UTC))
		score, _ := s.weatherRisk(&WeatherSnapshot{Condition: "Thunderstorm", Visibility: 10000})
		assert.Equal(t, 1.0, score)
	})

	t.Run("daytime boundary at six", func(t *testing.T) {
		freezeAt(t, time.Date(2026, time.March, 10, 6, 0, 0, 0, time.UTC))
		_, details := s.weatherRisk(&WeatherSnapshot{Condition: "Clear", Visibility: 10000})
		assert.Equal(t, "day", details["time_risk"])
	})
}

func TestInfrastructureRisk(t *testing.T) {
	s := newTestScorer(t, DefaultWeights())

	near := func(dLat, dLon float64) domain.Geo {
		return domain.Geo{Lat: testLoc.Lat + dLat, Lon: testLoc.Lon + dLon}
	}

	t.Run("no signals and complex junction", func(t *testing.T) {
		score, details := s.infrastructureRisk(testLoc, &InfrastructureSnapshot{
			Junctions: []domain.Geo{near(0.001, 0), near(0.002, 0.001), near(0, 0.003)},
		})
		assert.InDelta(t, 0.7, score, 1e-9)
		assert.Equal(t, 0, details["nearby_signals"])
		assert.Equal(t, 3, details["nearby_junctions"])
	})

	t.Run("nearby signal removes no-signal penalty", func(t *testing.T) {
		score, _ := s.infrastructureRisk(testLoc, &InfrastructureSnapshot{
			Signals: []domain.Geo{near(0.001, 0.001)},
		})
		assert.Equal(t, 0.0, score)
	})

	t.Run("distant features ignored", func(t *testing.T) {
		score, _ := s.infrastructureRisk(testLoc, &InfrastructureSnapshot{
			Signals: []domain.Geo{near(0.1, 0.1)},
		})
		assert.InDelta(t, 0.3, score, 1e-9)
	})

	t.Run("unlit road vertex nearby", func(t *testing.T) {
		score, details := s.infrastructureRisk(testLoc, &InfrastructureSnapshot{
			Signals:    []domain.Geo{near(0.001, 0)},
			UnlitRoads: [][]domain.Geo{{near(0.01, 0), near(0.0005, 0)}},
		})
		assert.InDelta(t, 0.5, score, 1e-9)
		assert.Equal(t, true, details["unlit_road"])
	})

	t.Run("all penalties clamp to 1", func(t *testing.T) {
		score, _ := s.infrastructureRisk(testLoc, &InfrastructureSnapshot{
			Junctions:  []domain.Geo{near(0, 0), near(0.001, 0), near(0.002, 0)},
			UnlitRoads: [][]domain.Geo{{near(0.0005, 0)}},
			Crossings:  []domain.Geo{near(0, 0), near(0.001, 0), near(0.002, 0), near(0.003, 0)},
		})
		assert.Equal(t, 1.0, score)
	})

	t.Run("missing snapshot", func(t *testing.T) {
		score, details := s.infrastructureRisk(testLoc, nil)
		assert.Equal(t, 0.0, score)
		assert.Contains(t, details, "error")
	})
}

func TestPOIRisk(t *testing.T) {
	s := newTestScorer(t, DefaultWeights())

	t.Run("schools capped", func(t *testing.T) {
		score, _ := s.poiRisk(&POISnapshot{Schools: 5})
		assert.InDelta(t, 0.4, score, 1e-9)
	})

	t.Run("mixed surroundings", func(t *testing.T) {
		score, _ := s.poiRisk(&POISnapshot{Schools: 2, Bars: 1, BusStops: 2})
		// 0.3 + 0.2 + 0.2
		assert.InDelta(t, 0.7, score, 1e-9)
	})

	t.Run("hospitals reduce risk", func(t *testing.T) {
		score, _ := s.poiRisk(&POISnapshot{Bars: 1, Hospitals: 1})
		assert.InDelta(t, 0.1, score, 1e-9)
	})

	t.Run("hospitals alone floor at zero", func(t *testing.T) {
		score, _ := s.poiRisk(&POISnapshot{Hospitals: 3})
		assert.Equal(t, 0.0, score)
	})

	t.Run("missing snapshot", func(t *testing.T) {
		score, details := s.poiRisk(nil)
		assert.Equal(t, 0.0, score)
		assert.Contains(t, details, "error")
	})
}

func TestIncidentRisk(t *testing.T) {
	s := newTestScorer(t, DefaultWeights())

	t.Run("weighted by category and severity", func(t *testing.T) {
		score, details := s.incidentRisk(testLoc, []NearbyIncident{
			{Category: incident.CategoryAccidents, Severity: 3, Location: testLoc},
		})
		assert.InDelta(t, 0.72, score, 1e-9)
		assert.Equal(t, 1, details["incident_count"])
	})

	t.Run("closure outranks road works", func(t *testing.T) {
		closure, _ := s.incidentRisk(testLoc, []NearbyIncident{
			{Category: incident.CategoryClosures, Severity: 2, Location: testLoc},
		})
		works, _ := s.incidentRisk(testLoc, []NearbyIncident{
			{Category: incident.CategoryRoadWorks, Severity: 2, Location: testLoc},
		})
		assert.Greater(t, closure, works)
	})

	t.Run("unknown severity uses default multiplier", func(t *testing.T) {
		score, _ := s.incidentRisk(testLoc, []NearbyIncident{
			{Category: incident.CategoryClosures, Severity: 5, Location: testLoc},
		})
		assert.InDelta(t, 0.5, score, 1e-9)
	})

	t.Run("unweighted categories ignored", func(t *testing.T) {
		score, details := s.incidentRisk(testLoc, []NearbyIncident{
			{Category: incident.CategoryOther, Severity: 3, Location: testLoc},
			{Category: incident.CategoryProtests, Severity: 3, Location: testLoc},
		})
		assert.Equal(t, 0.0, score)
		assert.Equal(t, 0, details["incident_count"])
	})

	t.Run("distant incidents ignored", func(t *testing.T) {
		far := domain.Geo{Lat: testLoc.Lat + 0.1, Lon: testLoc.Lon}
		score, _ := s.incidentRisk(testLoc, []NearbyIncident{
			{Category: incident.CategoryAccidents, Severity: 3, Location: far},
		})
		assert.Equal(t, 0.0, score)
	})

	t.Run("accumulation clamps to 1", func(t *testing.T) {
		incidents := make([]NearbyIncident, 5)
		for i := range incidents {
			incidents[i] = NearbyIncident{Category: incident.CategoryClosures, Severity: 3, Location: testLoc}
		}
		score, _ := s.incidentRisk(testLoc, incidents)
		assert.Equal(t, 1.0, score)
	})

	t.Run("no incidents", func(t *testing.T) {
		score, details := s.incidentRisk(testLoc, nil)
		assert.Equal(t, 0.0, score)
		assert.Equal(t, 0, details["incident_count"])
	})
}

func TestSpeedingRisk(t *testing.T) {
	s := newTestScorer(t, DefaultWeights())

	cases := []struct {
		name    string
		current float64
		limit   float64
		want    float64
	}{
		{"at limit", 50, 50, 0},
		{"under limit", 40, 50, 0},
		{"slightly over", 54, 50, 0.2},
		{"over ten percent", 57, 50, 0.4},
		{"over thirty percent", 67, 50, 0.7},
		{"over half again", 80, 50, 0.9},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			score, _ := s.speedingRisk(&SpeedSnapshot{CurrentSpeed: tc.current, SpeedLimit: tc.limit})
			assert.InDelta(t, tc.want, score, 1e-9)
		})
	}

	t.Run("no posted limit", func(t *testing.T) {
		score, details := s.speedingRisk(&SpeedSnapshot{CurrentSpeed: 60})
		assert.Equal(t, 0.0, score)
		assert.Contains(t, details, "error")
	})
}

func TestScore_Composite(t *testing.T) {
	freezeAt(t, time.Date(2026, time.March, 10, 14, 0, 0, 0, time.UTC))

	t.Run("weighted sum of traffic and infrastructure", func(t *testing.T) {
		s := newTestScorer(t, Weights{Traffic: 0.25, Infrastructure: 0.15})
		a := s.Score(testLoc, Observations{
			Traffic: &TrafficSnapshot{CurrentSpeed: 20, FreeFlowSpeed: 60},
			Infrastructure: &InfrastructureSnapshot{
				Junctions: []domain.Geo{
					{Lat: 18.5205, Lon: 73.8568},
					{Lat: 18.5206, Lon: 73.8569},
					{Lat: 18.5207, Lon: 73.8570},
				},
			},
		})
		// 0.25*(2/3) + 0.15*0.7 scaled to 100
		assert.InDelta(t, 27.17, a.Score, 0.01)
		assert.Equal(t, LevelLow, a.Level)
		assert.Equal(t, "#90EE90", a.Color)
	})

	t.Run("missing signals all score zero", func(t *testing.T) {
		s := newTestScorer(t, DefaultWeights())
		a := s.Score(testLoc, Observations{})
		assert.Equal(t, 0.0, a.Score)
		assert.Equal(t, LevelLow, a.Level)
		for name, c := range a.Components {
			assert.Zero(t, c.Score, name)
		}
	})

	t.Run("breakdown carries contributions", func(t *testing.T) {
		s := newTestScorer(t, DefaultWeights())
		a := s.Score(testLoc, Observations{
			Traffic: &TrafficSnapshot{CurrentSpeed: 0, FreeFlowSpeed: 60},
		})
		c := a.Components["traffic"]
		assert.Equal(t, 1.0, c.Score)
		assert.Equal(t, 0.25, c.Weight)
		assert.Equal(t, 25.0, c.Contribution)
	})

	t.Run("timestamp follows the injected clock", func(t *testing.T) {
		s := newTestScorer(t, DefaultWeights())
		a := s.Score(testLoc, Observations{})
		assert.Equal(t, time.Date(2026, time.March, 10, 14, 0, 0, 0, time.UTC), a.Timestamp)
	})
}

func TestLevelFor_Boundaries(t *testing.T) {
	cases := []struct {
		score float64
		want  Level
	}{
		{0, LevelLow},
		{29.99, LevelLow},
		{30, LevelMedium},
		{59.99, LevelMedium},
		{60, LevelHigh},
		{79.99, LevelHigh},
		{80, LevelCritical},
		{100, LevelCritical},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, LevelFor(tc.score), "score %v", tc.score)
	}
}
