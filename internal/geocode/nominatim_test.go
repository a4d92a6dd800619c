package geocode

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinelroad/roadrisk/internal/domain"
	"github.com/sentinelroad/roadrisk/internal/observability"
)

var testBounds = domain.Bounds{MinLat: 18.3, MaxLat: 18.7, MinLon: 73.6, MaxLon: 74.1}

func testClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		userAgent:  "roadrisk-test/1.0",
		suffix:     ", Pune, Maharashtra, India",
		bounds:     testBounds,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		metrics:    observability.NewMetricsForTesting(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestClient_Geocode_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Katraj Chowk, Pune, Maharashtra, India", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, "roadrisk-test/1.0", r.Header.Get("User-Agent"))

		results := []searchResult{{Lat: "18.4575", Lon: "73.8661", DisplayName: "Katraj, Pune"}}
		require.NoError(t, json.NewEncoder(w).Encode(results))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	point, err := c.Geocode(context.Background(), "Katraj Chowk")
	require.NoError(t, err)
	require.NotNil(t, point)
	assert.Equal(t, 18.4575, point.Lat)
	assert.Equal(t, 73.8661, point.Lon)
}

func TestClient_Geocode_OutsideBoundsRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// Provider disambiguated to Mumbai; globally valid, regionally wrong.
		results := []searchResult{{Lat: "19.0760", Lon: "72.8777", DisplayName: "Mumbai"}}
		require.NoError(t, json.NewEncoder(w).Encode(results))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	point, err := c.Geocode(context.Background(), "Station Road")
	require.NoError(t, err)
	assert.Nil(t, point)
}

func TestClient_Geocode_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode([]searchResult{}))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	point, err := c.Geocode(context.Background(), "Nonexistent Lane")
	require.NoError(t, err)
	assert.Nil(t, point)
}

func TestClient_Geocode_SkipsWithoutRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("provider must not be called")
	}))
	defer srv.Close()

	c := testClient(srv.URL)

	for _, phrase := range []string{"", "   ", "https://news.example/story", "www.example.com"} {
		point, err := c.Geocode(context.Background(), phrase)
		require.NoError(t, err, "phrase %q", phrase)
		assert.Nil(t, point, "phrase %q", phrase)
	}
}

func TestClient_Geocode_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.Geocode(context.Background(), "Katraj Chowk")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestCached_Geocode(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		results := []searchResult{{Lat: "18.4575", Lon: "73.8661"}}
		require.NoError(t, json.NewEncoder(w).Encode(results))
	}))
	defer srv.Close()

	cached := NewCached(testClient(srv.URL), 10, observability.NewMetricsForTesting())

	for i := 0; i < 3; i++ {
		point, err := cached.Geocode(context.Background(), "Katraj Chowk")
		require.NoError(t, err)
		require.NotNil(t, point)
	}
	// Case-insensitive key.
	_, err := cached.Geocode(context.Background(), "katraj chowk")
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
}

func TestCached_DoesNotCacheMisses(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		require.NoError(t, json.NewEncoder(w).Encode([]searchResult{}))
	}))
	defer srv.Close()

	cached := NewCached(testClient(srv.URL), 10, observability.NewMetricsForTesting())

	for i := 0; i < 2; i++ {
		point, err := cached.Geocode(context.Background(), "Unknown Spot")
		require.NoError(t, err)
		assert.Nil(t, point)
	}
	assert.Equal(t, 2, calls)
}

func TestThrottled_EnforcesMinimumInterval(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		results := []searchResult{{Lat: "18.4575", Lon: "73.8661"}}
		require.NoError(t, json.NewEncoder(w).Encode(results))
	}))
	defer srv.Close()

	throttled := NewThrottled(testClient(srv.URL), 50*time.Millisecond)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := throttled.Geocode(context.Background(), "Katraj Chowk")
		require.NoError(t, err)
	}
	// First call is immediate, the next two wait out the interval.
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestLRUCacheEviction(t *testing.T) {
	cache := newLRUCache(2)
	cache.put("a", domain.Geo{Lat: 1})
	cache.put("b", domain.Geo{Lat: 2})
	cache.put("c", domain.Geo{Lat: 3}) // evicts "a"

	_, ok := cache.get("a")
	assert.False(t, ok)

	v, ok := cache.get("b")
	require.True(t, ok)
	assert.Equal(t, 2.0, v.Lat)
}
