package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sentinelroad/roadrisk/internal/domain"
	"github.com/sentinelroad/roadrisk/internal/observability"
)

const defaultBaseURL = "https://nominatim.openstreetmap.org/search"

// Client implements Geocoder against a Nominatim-compatible search endpoint.
//
// Every query gets the configured region suffix appended (e.g.
// ", Pune, Maharashtra, India") to disambiguate short phrases, and only the
// top result is accepted. Results outside the bounding box are treated as
// provider disambiguation errors and rejected, not returned as
// low-confidence matches.
type Client struct {
	baseURL    string
	userAgent  string
	suffix     string
	bounds     domain.Bounds
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a geocoding client scoped to the given region. An empty
// baseURL selects the public Nominatim endpoint.
func NewClient(baseURL, userAgent, suffix string, bounds domain.Bounds, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		userAgent:  userAgent,
		suffix:     suffix,
		bounds:     bounds,
		httpClient: &http.Client{Timeout: timeout},
		metrics:    metrics,
		logger:     logger,
	}
}

// Geocode resolves phrase to a coordinate inside the region, or nil on miss.
// No retry is performed here; throughput control belongs to the Throttled
// decorator.
func (c *Client) Geocode(ctx context.Context, phrase string) (*domain.Geo, error) {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" || looksLikeURL(phrase) {
		c.metrics.GeocodeRequests.WithLabelValues("miss").Inc()
		return nil, nil
	}

	params := url.Values{
		"q":      {phrase + c.suffix},
		"format": {"json"},
		"limit":  {"1"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create geocode request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("geocode provider error: status %d: %s", resp.StatusCode, body)
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("decode geocode response: %w", err)
	}
	if len(results) == 0 {
		c.metrics.GeocodeRequests.WithLabelValues("miss").Inc()
		return nil, nil
	}

	top := results[0]
	lat, errLat := strconv.ParseFloat(top.Lat, 64)
	lon, errLon := strconv.ParseFloat(top.Lon, 64)
	if errLat != nil || errLon != nil {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("geocode result has malformed coordinates: %q, %q", top.Lat, top.Lon)
	}

	point := domain.Geo{Lat: lat, Lon: lon}
	if !c.bounds.Contains(point) {
		c.metrics.GeocodeRequests.WithLabelValues("out_of_bounds").Inc()
		c.logger.Debug("geocode result outside region, rejecting",
			"phrase", phrase, "lat", lat, "lon", lon, "display_name", top.DisplayName)
		return nil, nil
	}

	c.metrics.GeocodeRequests.WithLabelValues("success").Inc()
	return &point, nil
}

func looksLikeURL(s string) bool {
	return strings.Contains(s, "://") || strings.HasPrefix(s, "www.")
}

// Nominatim search response entry. Coordinates arrive as strings.
type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}
