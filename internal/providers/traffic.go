// Package providers holds clients for the external signal sources behind
// risk scoring: traffic flow and incidents, weather, and OpenStreetMap
// road features. All clients degrade to an error the caller can treat as a
// missing signal; none of them abort a scoring run.
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sentinelroad/roadrisk/internal/domain"
	"github.com/sentinelroad/roadrisk/internal/incident"
	"github.com/sentinelroad/roadrisk/internal/risk"
)

const defaultTrafficBaseURL = "https://api.tomtom.com"

// incidentFields is the projection requested from the incident details
// endpoint.
const incidentFields = "{incidents{type,geometry{type,coordinates},properties{iconCategory,magnitudeOfDelay,events{description,code,iconCategory}}}}"

// TrafficClient talks to a TomTom-compatible traffic API for flow
// segments, incident details and posted speed limits.
type TrafficClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewTrafficClient builds a traffic client. Pass an empty baseURL for the
// production endpoint.
func NewTrafficClient(baseURL, apiKey string, logger *slog.Logger) *TrafficClient {
	if baseURL == "" {
		baseURL = defaultTrafficBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TrafficClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// Flow fetches the current and free-flow speed at a point.
func (c *TrafficClient) Flow(ctx context.Context, loc domain.Geo) (*risk.TrafficSnapshot, error) {
	query := url.Values{
		"key":   {c.apiKey},
		"point": {fmt.Sprintf("%f,%f", loc.Lat, loc.Lon)},
	}
	endpoint := c.baseURL + "/traffic/services/4/flowSegmentData/absolute/15/json?" + query.Encode()

	var payload struct {
		FlowSegmentData struct {
			CurrentSpeed  float64 `json:"currentSpeed"`
			FreeFlowSpeed float64 `json:"freeFlowSpeed"`
		} `json:"flowSegmentData"`
	}
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, fmt.Errorf("traffic flow: %w", err)
	}

	return &risk.TrafficSnapshot{
		CurrentSpeed:  payload.FlowSegmentData.CurrentSpeed,
		FreeFlowSpeed: payload.FlowSegmentData.FreeFlowSpeed,
	}, nil
}

// IncidentsNear fetches and categorizes live incidents within radiusKm of
// a point. Incidents the provider reports without coordinates are dropped.
func (c *TrafficClient) IncidentsNear(ctx context.Context, loc domain.Geo, radiusKm float64) ([]risk.NearbyIncident, error) {
	latDelta := radiusKm / 111.0
	lonDelta := radiusKm / (111.0 * math.Abs(math.Cos(loc.Lat*math.Pi/180)))

	query := url.Values{
		"key": {c.apiKey},
		"bbox": {fmt.Sprintf("%f,%f,%f,%f",
			loc.Lon-lonDelta, loc.Lat-latDelta, loc.Lon+lonDelta, loc.Lat+latDelta)},
		"fields": {incidentFields},
	}
	endpoint := c.baseURL + "/traffic/services/5/incidentDetails?" + query.Encode()

	var payload struct {
		Incidents []struct {
			Geometry struct {
				Type        string          `json:"type"`
				Coordinates json.RawMessage `json:"coordinates"`
			} `json:"geometry"`
			Properties struct {
				IconCategory     int `json:"iconCategory"`
				MagnitudeOfDelay int `json:"magnitudeOfDelay"`
				Events           []struct {
					Description string `json:"description"`
				} `json:"events"`
			} `json:"properties"`
		} `json:"incidents"`
	}
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, fmt.Errorf("traffic incidents: %w", err)
	}

	out := make([]risk.NearbyIncident, 0, len(payload.Incidents))
	for _, item := range payload.Incidents {
		point, ok := decodeGeometryPoint(item.Geometry.Coordinates)
		if !ok {
			continue
		}
		out = append(out, risk.NearbyIncident{
			Category: categoryForIcon(item.Properties.IconCategory),
			Severity: item.Properties.MagnitudeOfDelay,
			Location: point,
		})
	}
	return out, nil
}

// SpeedLimit resolves the posted limit at a point via reverse geocoding.
// Returns nil when the provider knows no limit for the road.
func (c *TrafficClient) SpeedLimit(ctx context.Context, loc domain.Geo) (*float64, error) {
	query := url.Values{
		"key":              {c.apiKey},
		"returnSpeedLimit": {"true"},
	}
	endpoint := fmt.Sprintf("%s/search/2/reverseGeocode/%f,%f.json?%s",
		c.baseURL, loc.Lat, loc.Lon, query.Encode())

	var payload struct {
		Addresses []struct {
			Address struct {
				SpeedLimit string `json:"speedLimit"`
			} `json:"address"`
		} `json:"addresses"`
	}
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, fmt.Errorf("speed limit: %w", err)
	}
	if len(payload.Addresses) == 0 {
		return nil, nil
	}

	// The limit arrives as "50 km/h" or a bare number.
	raw := strings.Fields(payload.Addresses[0].Address.SpeedLimit)
	if len(raw) == 0 {
		return nil, nil
	}
	limit, err := strconv.ParseFloat(raw[0], 64)
	if err != nil {
		c.logger.Warn("unparseable speed limit", "value", payload.Addresses[0].Address.SpeedLimit)
		return nil, nil
	}
	return &limit, nil
}

func (c *TrafficClient) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// categoryForIcon maps the provider's icon category codes onto the shared
// taxonomy: 1 accident, 9 road works, 7/8 lane or road closed, 2/4/5/10/11
// weather (fog, rain, ice, wind, flooding), 6 jam, 3/14 dangerous
// conditions or broken-down vehicle.
func categoryForIcon(icon int) incident.Category {
	switch icon {
	case 1:
		return incident.CategoryAccidents
	case 9:
		return incident.CategoryRoadWorks
	case 7, 8:
		return incident.CategoryClosures
	case 2, 4, 5, 10, 11:
		return incident.CategoryWeatherHazards
	case 6:
		return incident.CategoryTrafficJams
	case 3, 14:
		return incident.CategoryVehicleHazards
	default:
		return incident.CategoryOther
	}
}

// decodeGeometryPoint extracts a representative point from a GeoJSON-style
// coordinates value, which is either [lon,lat] or a line of such pairs.
func decodeGeometryPoint(raw json.RawMessage) (domain.Geo, bool) {
	var point []float64
	if err := json.Unmarshal(raw, &point); err == nil && len(point) >= 2 {
		return domain.Geo{Lat: point[1], Lon: point[0]}, true
	}
	var line [][]float64
	if err := json.Unmarshal(raw, &line); err == nil && len(line) > 0 && len(line[0]) >= 2 {
		return domain.Geo{Lat: line[0][1], Lon: line[0][0]}, true
	}
	return domain.Geo{}, false
}
