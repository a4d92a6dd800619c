package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinelroad/roadrisk/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "raw-road-articles", cfg.KafkaSourceTopic)
	assert.Equal(t, "canonical-incidents", cfg.KafkaSinkTopic)
	assert.Equal(t, "roadrisk-ingest", cfg.KafkaGroupID)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 50, cfg.BatchSize)

	assert.Equal(t, domain.Bounds{MinLat: 18.3, MinLon: 73.6, MaxLat: 18.7, MaxLon: 74.1}, cfg.RegionBounds)
	assert.Equal(t, ", Pune, Maharashtra, India", cfg.RegionSuffix)
	assert.Equal(t, time.Second, cfg.GeocodeWait)
	assert.Equal(t, 1000, cfg.GeocodeCache)

	assert.False(t, cfg.LLMEnabled)
	assert.Equal(t, "llama-3.3-70b-versatile", cfg.LLMModel)
	assert.False(t, cfg.StoreEnabled)
	assert.Equal(t, "road_incidents", cfg.StoreTable)

	assert.Equal(t, 1.0, cfg.IncidentRadius)
	assert.Equal(t, 0.25, cfg.RiskWeights.Traffic)
	assert.Equal(t, 0.20, cfg.RiskWeights.Incidents)
	assert.Equal(t, 0.5, cfg.ClusterEpsKm)
	assert.Equal(t, 2, cfg.ClusterMinSamples)
	assert.Equal(t, "@every 10m", cfg.AnalyticsSchedule)
	assert.Equal(t, 200, cfg.AnalyticsLimit)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("KAFKA_SOURCE_TOPIC", "custom-articles")
	t.Setenv("REGION_MIN_LAT", "12.8")
	t.Setenv("REGION_MIN_LON", "77.4")
	t.Setenv("REGION_MAX_LAT", "13.2")
	t.Setenv("REGION_MAX_LON", "77.8")
	t.Setenv("REGION_SUFFIX", ", Bengaluru, Karnataka, India")
	t.Setenv("RISK_WEIGHT_SPEEDING", "0.1")
	t.Setenv("LLM_API_KEY", "gsk-test")
	t.Setenv("STORE_URL", "https://project.supabase.co")
	t.Setenv("STORE_API_KEY", "service-role-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-articles", cfg.KafkaSourceTopic)
	assert.Equal(t, 12.8, cfg.RegionBounds.MinLat)
	assert.Equal(t, ", Bengaluru, Karnataka, India", cfg.RegionSuffix)
	assert.Equal(t, 0.1, cfg.RiskWeights.Speeding)
	assert.True(t, cfg.LLMEnabled)
	assert.True(t, cfg.StoreEnabled)
}

func TestLoad_KeyImpliesEnabled(t *testing.T) {
	t.Setenv("LLM_API_KEY", "gsk-test")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.LLMEnabled)
}

func TestLoad_ExplicitlyDisabled(t *testing.T) {
	t.Setenv("LLM_API_KEY", "gsk-test")
	t.Setenv("LLM_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.LLMEnabled)
}

func TestLoad_Validation(t *testing.T) {
	cases := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"bad shutdown timeout", "SHUTDOWN_TIMEOUT", "not-a-duration", "SHUTDOWN_TIMEOUT"},
		{"negative shutdown timeout", "SHUTDOWN_TIMEOUT", "-1s", "SHUTDOWN_TIMEOUT"},
		{"zero batch size", "BATCH_SIZE", "0", "BATCH_SIZE"},
		{"oversized batch", "BATCH_SIZE", "9999", "BATCH_SIZE"},
		{"bad weight", "RISK_WEIGHT_TRAFFIC", "abc", "RISK_WEIGHT_TRAFFIC"},
		{"negative weight", "RISK_WEIGHT_WEATHER", "-0.5", "negative"},
		{"bad geocode interval", "GEOCODE_MIN_INTERVAL", "fast", "GEOCODE_MIN_INTERVAL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoad_InvertedBounds(t *testing.T) {
	t.Setenv("REGION_MIN_LAT", "19.0")
	t.Setenv("REGION_MAX_LAT", "18.0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bounds")
}

func TestLoad_LLMEnabledWithoutKey(t *testing.T) {
	t.Setenv("LLM_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LLM_API_KEY")
}

func TestLoad_StoreWithoutKey(t *testing.T) {
	t.Setenv("STORE_URL", "https://project.supabase.co")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORE_API_KEY")
}
