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

	"golang.org/x/time/rate"

	"github.com/sentinelroad/roadrisk/internal/domain"
	"github.com/sentinelroad/roadrisk/internal/risk"
)

const defaultOverpassBaseURL = "https://overpass-api.de/api/interpreter"

// OverpassClient queries the OpenStreetMap Overpass API for road
// infrastructure and points of interest. Requests are rate limited to one
// per second per the Overpass usage policy.
type OverpassClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewOverpassClient builds a client. Pass an empty baseURL for the public
// endpoint.
func NewOverpassClient(baseURL string, logger *slog.Logger) *OverpassClient {
	if baseURL == "" {
		baseURL = defaultOverpassBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OverpassClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 35 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
		logger:     logger,
	}
}

type overpassElement struct {
	ID       int64             `json:"id"`
	Lat      float64           `json:"lat"`
	Lon      float64           `json:"lon"`
	Tags     map[string]string `json:"tags"`
	Geometry []struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"geometry"`
}

// RoadFeatures fetches traffic signals, junctions, unlit roads and
// pedestrian crossings inside the bounding box.
func (c *OverpassClient) RoadFeatures(ctx context.Context, b domain.Bounds) (*risk.InfrastructureSnapshot, error) {
	bbox := fmt.Sprintf("%f,%f,%f,%f", b.MinLat, b.MinLon, b.MaxLat, b.MaxLon)
	query := fmt.Sprintf(`[out:json][timeout:30];
(
  node["highway"="traffic_signals"](%s);
  node["junction"](%s);
  way["highway"]["lit"="no"](%s);
  node["highway"="crossing"](%s);
);
out geom;`, bbox, bbox, bbox, bbox)

	elements, err := c.run(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("road features: %w", err)
	}

	snapshot := &risk.InfrastructureSnapshot{}
	for _, el := range elements {
		switch {
		case el.Tags["highway"] == "traffic_signals":
			snapshot.Signals = append(snapshot.Signals, domain.Geo{Lat: el.Lat, Lon: el.Lon})
		case el.Tags["junction"] != "":
			snapshot.Junctions = append(snapshot.Junctions, domain.Geo{Lat: el.Lat, Lon: el.Lon})
		case el.Tags["lit"] == "no":
			geometry := make([]domain.Geo, 0, len(el.Geometry))
			for _, p := range el.Geometry {
				geometry = append(geometry, domain.Geo{Lat: p.Lat, Lon: p.Lon})
			}
			snapshot.UnlitRoads = append(snapshot.UnlitRoads, geometry)
		case el.Tags["highway"] == "crossing":
			snapshot.Crossings = append(snapshot.Crossings, domain.Geo{Lat: el.Lat, Lon: el.Lon})
		}
	}
	return snapshot, nil
}

// NearbyPOIs counts risk-relevant points of interest within radiusM of a
// point.
func (c *OverpassClient) NearbyPOIs(ctx context.Context, loc domain.Geo, radiusM int) (*risk.POISnapshot, error) {
	around := fmt.Sprintf("(around:%d,%f,%f)", radiusM, loc.Lat, loc.Lon)
	query := fmt.Sprintf(`[out:json][timeout:30];
(
  node["amenity"~"school|college|university"]%s;
  node["amenity"~"hospital|clinic|doctors"]%s;
  node["amenity"~"bar|pub|nightclub"]%s;
  node["shop"="alcohol"]%s;
  node["highway"="bus_stop"]%s;
  node["public_transport"~"station|stop_position"]%s;
);
out;`, around, around, around, around, around, around)

	elements, err := c.run(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("nearby pois: %w", err)
	}

	snapshot := &risk.POISnapshot{}
	for _, el := range elements {
		amenity := el.Tags["amenity"]
		switch {
		case amenity == "school" || amenity == "college" || amenity == "university":
			snapshot.Schools++
		case amenity == "hospital" || amenity == "clinic" || amenity == "doctors":
			snapshot.Hospitals++
		case amenity == "bar" || amenity == "pub" || amenity == "nightclub" || el.Tags["shop"] == "alcohol":
			snapshot.Bars++
		case el.Tags["highway"] == "bus_stop" || el.Tags["public_transport"] == "station" || el.Tags["public_transport"] == "stop_position":
			snapshot.BusStops++
		}
	}
	return snapshot, nil
}

func (c *OverpassClient) run(ctx context.Context, query string) ([]overpassElement, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	form := url.Values{"data": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		Elements []overpassElement `json:"elements"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	return payload.Elements, nil
}
