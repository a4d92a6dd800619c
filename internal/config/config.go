// Package config loads service settings from environment variables,
// applying defaults and validating at startup so misconfiguration fails
// fast instead of surfacing mid-run.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sentinelroad/roadrisk/internal/domain"
	"github.com/sentinelroad/roadrisk/internal/risk"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration
	BatchSize        int

	// Regional scope. Geocoded coordinates outside the bounds are
	// rejected, and the suffix anchors free-text phrases to the region.
	RegionBounds domain.Bounds
	RegionSuffix string
	GeocodeURL   string
	GeocodeAgent string
	GeocodeWait  time.Duration
	GeocodeCache int

	// LLM extraction configuration. Enabled when a key is set.
	LLMAPIKey  string
	LLMBaseURL string
	LLMModel   string
	LLMEnabled bool

	// Record store configuration. Enabled when a URL is set.
	StoreURL     string
	StoreAPIKey  string
	StoreTable   string
	StoreEnabled bool

	// Risk signal providers. Each is optional; a missing key disables
	// that signal.
	TrafficAPIKey  string
	WeatherAPIKey  string
	OverpassURL    string
	IncidentRadius float64

	RiskWeights risk.Weights

	ClusterEpsKm      float64
	ClusterMinSamples int
	AnalyticsSchedule string
	AnalyticsLimit    int
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	geocodeWait, err := parseDuration("GEOCODE_MIN_INTERVAL", "1s")
	if err != nil {
		return nil, err
	}
	batchSize, err := parseBoundedInt("BATCH_SIZE", 50, 1, 1000)
	if err != nil {
		return nil, err
	}
	geocodeCache, err := parseBoundedInt("GEOCODE_CACHE_SIZE", 1000, 1, 1_000_000)
	if err != nil {
		return nil, err
	}
	clusterMinSamples, err := parseBoundedInt("CLUSTER_MIN_SAMPLES", 2, 1, 100)
	if err != nil {
		return nil, err
	}
	analyticsLimit, err := parseBoundedInt("ANALYTICS_FETCH_LIMIT", 200, 1, 10_000)
	if err != nil {
		return nil, err
	}

	bounds, err := parseBounds()
	if err != nil {
		return nil, err
	}
	weights, err := parseWeights()
	if err != nil {
		return nil, err
	}
	incidentRadius, err := parseFloat("INCIDENT_RADIUS_KM", 1.0)
	if err != nil {
		return nil, err
	}
	clusterEps, err := parseFloat("CLUSTER_EPS_KM", 0.5)
	if err != nil {
		return nil, err
	}

	llmKey := os.Getenv("LLM_API_KEY")
	storeURL := os.Getenv("STORE_URL")

	cfg := &Config{
		KafkaBrokers:     splitList(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic: envOrDefault("KAFKA_SOURCE_TOPIC", "raw-road-articles"),
		KafkaSinkTopic:   envOrDefault("KAFKA_SINK_TOPIC", "canonical-incidents"),
		KafkaGroupID:     envOrDefault("KAFKA_GROUP_ID", "roadrisk-ingest"),
		HTTPAddr:         envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
		LogFormat:        envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:  shutdownTimeout,
		BatchSize:        batchSize,

		RegionBounds: bounds,
		RegionSuffix: envOrDefault("REGION_SUFFIX", ", Pune, Maharashtra, India"),
		GeocodeURL:   os.Getenv("GEOCODE_URL"),
		GeocodeAgent: envOrDefault("GEOCODE_USER_AGENT", "roadrisk/1.0"),
		GeocodeWait:  geocodeWait,
		GeocodeCache: geocodeCache,

		LLMAPIKey:  llmKey,
		LLMBaseURL: envOrDefault("LLM_BASE_URL", "https://api.groq.com/openai/v1"),
		LLMModel:   envOrDefault("LLM_MODEL", "llama-3.3-70b-versatile"),
		LLMEnabled: llmKey != "",

		StoreURL:     storeURL,
		StoreAPIKey:  os.Getenv("STORE_API_KEY"),
		StoreTable:   envOrDefault("STORE_TABLE", "road_incidents"),
		StoreEnabled: storeURL != "",

		TrafficAPIKey:  os.Getenv("TOMTOM_API_KEY"),
		WeatherAPIKey:  os.Getenv("OPENWEATHER_API_KEY"),
		OverpassURL:    os.Getenv("OVERPASS_URL"),
		IncidentRadius: incidentRadius,

		RiskWeights: weights,

		ClusterEpsKm:      clusterEps,
		ClusterMinSamples: clusterMinSamples,
		AnalyticsSchedule: envOrDefault("ANALYTICS_SCHEDULE", "@every 10m"),
		AnalyticsLimit:    analyticsLimit,
	}

	if v := os.Getenv("LLM_ENABLED"); v != "" {
		cfg.LLMEnabled = v == "true"
	}
	if v := os.Getenv("STORE_ENABLED"); v != "" {
		cfg.StoreEnabled = v == "true"
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if cfg.LLMEnabled && cfg.LLMAPIKey == "" {
		return nil, errors.New("LLM_ENABLED is true but LLM_API_KEY is not set")
	}
	if cfg.StoreEnabled && cfg.StoreURL == "" {
		return nil, errors.New("STORE_ENABLED is true but STORE_URL is not set")
	}
	if cfg.StoreEnabled && cfg.StoreAPIKey == "" {
		return nil, errors.New("STORE_URL is set but STORE_API_KEY is not")
	}

	return cfg, nil
}

func parseBounds() (domain.Bounds, error) {
	minLat, err := parseFloat("REGION_MIN_LAT", 18.3)
	if err != nil {
		return domain.Bounds{}, err
	}
	minLon, err := parseFloat("REGION_MIN_LON", 73.6)
	if err != nil {
		return domain.Bounds{}, err
	}
	maxLat, err := parseFloat("REGION_MAX_LAT", 18.7)
	if err != nil {
		return domain.Bounds{}, err
	}
	maxLon, err := parseFloat("REGION_MAX_LON", 74.1)
	if err != nil {
		return domain.Bounds{}, err
	}

	b := domain.Bounds{MinLat: minLat, MinLon: minLon, MaxLat: maxLat, MaxLon: maxLon}
	if b.MinLat >= b.MaxLat || b.MinLon >= b.MaxLon {
		return domain.Bounds{}, errors.New("region bounds are inverted or empty")
	}
	return b, nil
}

func parseWeights() (risk.Weights, error) {
	defaults := risk.DefaultWeights()
	traffic, err := parseFloat("RISK_WEIGHT_TRAFFIC", defaults.Traffic)
	if err != nil {
		return risk.Weights{}, err
	}
	weather, err := parseFloat("RISK_WEIGHT_WEATHER", defaults.Weather)
	if err != nil {
		return risk.Weights{}, err
	}
	infra, err := parseFloat("RISK_WEIGHT_INFRASTRUCTURE", defaults.Infrastructure)
	if err != nil {
		return risk.Weights{}, err
	}
	poi, err := parseFloat("RISK_WEIGHT_POI", defaults.POI)
	if err != nil {
		return risk.Weights{}, err
	}
	incidents, err := parseFloat("RISK_WEIGHT_INCIDENTS", defaults.Incidents)
	if err != nil {
		return risk.Weights{}, err
	}
	speeding, err := parseFloat("RISK_WEIGHT_SPEEDING", defaults.Speeding)
	if err != nil {
		return risk.Weights{}, err
	}

	w := risk.Weights{
		Traffic:        traffic,
		Weather:        weather,
		Infrastructure: infra,
		POI:            poi,
		Incidents:      incidents,
		Speeding:       speeding,
	}
	if err := w.Validate(); err != nil {
		return risk.Weights{}, err
	}
	return w, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseDuration(key, fallback string) (time.Duration, error) {
	s := envOrDefault(key, fallback)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func parseBoundedInt(key string, fallback, minVal, maxVal int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < minVal || n > maxVal {
		return 0, fmt.Errorf("invalid %s: %q (must be %d-%d)", key, s, minVal, maxVal)
	}
	return n, nil
}

func parseFloat(key string, fallback float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return f, nil
}
