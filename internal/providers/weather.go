package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sentinelroad/roadrisk/internal/domain"
	"github.com/sentinelroad/roadrisk/internal/risk"
)

const defaultWeatherBaseURL = "https://api.openweathermap.org/data/2.5"

// WeatherClient fetches current conditions from an OpenWeatherMap-style
// API.
type WeatherClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewWeatherClient builds a weather client. Pass an empty baseURL for the
// production endpoint.
func NewWeatherClient(baseURL, apiKey string, logger *slog.Logger) *WeatherClient {
	if baseURL == "" {
		baseURL = defaultWeatherBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WeatherClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// Current fetches the prevailing condition and visibility at a point.
func (c *WeatherClient) Current(ctx context.Context, loc domain.Geo) (*risk.WeatherSnapshot, error) {
	query := url.Values{
		"lat":   {fmt.Sprintf("%f", loc.Lat)},
		"lon":   {fmt.Sprintf("%f", loc.Lon)},
		"appid": {c.apiKey},
		"units": {"metric"},
	}
	endpoint := c.baseURL + "/weather?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather: unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		Weather []struct {
			Main string `json:"main"`
		} `json:"weather"`
		Visibility float64 `json:"visibility"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("weather: %w", err)
	}

	snapshot := &risk.WeatherSnapshot{Visibility: payload.Visibility}
	if len(payload.Weather) > 0 {
		snapshot.Condition = payload.Weather[0].Main
	}
	return snapshot, nil
}
