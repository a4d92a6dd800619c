package providers

import (
	"context"
	"log/slog"
	"math"
	"sync"

	"github.com/sentinelroad/roadrisk/internal/domain"
	"github.com/sentinelroad/roadrisk/internal/risk"
)

// poiRadiusM is the point-of-interest survey radius around a scored
// location.
const poiRadiusM = 500

// Collector gathers every risk sub-signal for a location. Each provider
// failure is logged and leaves its snapshot nil, so scoring proceeds on
// whatever signals are available.
type Collector struct {
	traffic  *TrafficClient
	weather  *WeatherClient
	overpass *OverpassClient
	radiusKm float64
	logger   *slog.Logger
}

// NewCollector wires the provider clients. Any client may be nil to
// disable its signals.
func NewCollector(traffic *TrafficClient, weather *WeatherClient, overpass *OverpassClient,
	incidentRadiusKm float64, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		traffic:  traffic,
		weather:  weather,
		overpass: overpass,
		radiusKm: incidentRadiusKm,
		logger:   logger,
	}
}

// Collect fetches all sub-signals concurrently. The Overpass client
// serializes its own two calls through its rate limiter.
func (c *Collector) Collect(ctx context.Context, loc domain.Geo) risk.Observations {
	var (
		wg        sync.WaitGroup
		traffic   *risk.TrafficSnapshot
		weather   *risk.WeatherSnapshot
		infra     *risk.InfrastructureSnapshot
		poi       *risk.POISnapshot
		incidents []risk.NearbyIncident
		limit     *float64
	)

	if c.traffic != nil {
		wg.Add(3)
		go func() {
			defer wg.Done()
			flow, err := c.traffic.Flow(ctx, loc)
			if err != nil {
				c.logger.Warn("traffic flow unavailable", "error", err)
				return
			}
			traffic = flow
		}()
		go func() {
			defer wg.Done()
			near, err := c.traffic.IncidentsNear(ctx, loc, c.radiusKm)
			if err != nil {
				c.logger.Warn("live incidents unavailable", "error", err)
				return
			}
			incidents = near
		}()
		go func() {
			defer wg.Done()
			posted, err := c.traffic.SpeedLimit(ctx, loc)
			if err != nil {
				c.logger.Warn("speed limit unavailable", "error", err)
				return
			}
			limit = posted
		}()
	}

	if c.weather != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			current, err := c.weather.Current(ctx, loc)
			if err != nil {
				c.logger.Warn("weather unavailable", "error", err)
				return
			}
			weather = current
		}()
	}

	if c.overpass != nil {
		wg.Add(2)
		go func() {
			defer wg.Done()
			features, err := c.overpass.RoadFeatures(ctx, boundsAround(loc, c.radiusKm))
			if err != nil {
				c.logger.Warn("road features unavailable", "error", err)
				return
			}
			infra = features
		}()
		go func() {
			defer wg.Done()
			pois, err := c.overpass.NearbyPOIs(ctx, loc, poiRadiusM)
			if err != nil {
				c.logger.Warn("pois unavailable", "error", err)
				return
			}
			poi = pois
		}()
	}

	wg.Wait()

	obs := risk.Observations{
		Traffic:        traffic,
		Weather:        weather,
		Infrastructure: infra,
		POI:            poi,
		Incidents:      incidents,
	}
	if traffic != nil && limit != nil {
		obs.Speed = &risk.SpeedSnapshot{
			CurrentSpeed: traffic.CurrentSpeed,
			SpeedLimit:   *limit,
		}
	}
	return obs
}

// boundsAround builds a bounding box of radiusKm around a point.
func boundsAround(loc domain.Geo, radiusKm float64) domain.Bounds {
	latDelta := radiusKm / 111.0
	lonDelta := radiusKm / (111.0 * math.Abs(math.Cos(loc.Lat*math.Pi/180)))
	return domain.Bounds{
		MinLat: loc.Lat - latDelta,
		MinLon: loc.Lon - lonDelta,
		MaxLat: loc.Lat + latDelta,
		MaxLon: loc.Lon + lonDelta,
	}
}
