// Command assess scores a single location and prints the assessment as JSON.
// Signals are collected live from the configured providers; provider API keys
// come from the environment (or a .env file). A provider with no key is
// skipped and its component reports no data.
//
// Usage:
//
//	go run ./cmd/assess -lat 18.5204 -lon 73.8567
//	go run ./cmd/assess -lat 18.5204 -lon 73.8567 -obs fixtures/observations.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/sentinelroad/roadrisk/internal/config"
	"github.com/sentinelroad/roadrisk/internal/domain"
	"github.com/sentinelroad/roadrisk/internal/observability"
	"github.com/sentinelroad/roadrisk/internal/providers"
	"github.com/sentinelroad/roadrisk/internal/risk"
)

func main() {
	lat := flag.Float64("lat", 0, "latitude of the location to assess")
	lon := flag.Float64("lon", 0, "longitude of the location to assess")
	obsPath := flag.String("obs", "", "path to an observations JSON file (skips live collection)")
	timeout := flag.Duration("timeout", 60*time.Second, "overall collection timeout")
	flag.Parse()

	if *lat == 0 && *lon == 0 {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*lat, *lon, *obsPath, *timeout); code != 0 {
		os.Exit(code)
	}
}

func run(lat, lon float64, obsPath string, timeout time.Duration) int {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load config: %v\n", err)
		return 1
	}
	logger := observability.NewLogger("warn", "text")

	scorer, err := risk.NewScorer(cfg.RiskWeights, nil, logger,
		risk.WithIncidentRadius(cfg.IncidentRadius))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	loc := domain.Geo{Lat: lat, Lon: lon}

	var obs risk.Observations
	if obsPath != "" {
		obs, err = loadObservations(obsPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load observations: %v\n", err)
			return 1
		}
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		obs = buildCollector(cfg, logger).Collect(ctx, loc)
	}

	assessment := scorer.Score(loc, obs)

	out, err := json.MarshalIndent(assessment, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: encode assessment: %v\n", err)
		return 1
	}
	fmt.Println(string(out))
	return 0
}

func buildCollector(cfg *config.Config, logger *slog.Logger) *providers.Collector {
	var traffic *providers.TrafficClient
	if cfg.TrafficAPIKey != "" {
		traffic = providers.NewTrafficClient("", cfg.TrafficAPIKey, logger)
	}
	var weather *providers.WeatherClient
	if cfg.WeatherAPIKey != "" {
		weather = providers.NewWeatherClient("", cfg.WeatherAPIKey, logger)
	}
	overpass := providers.NewOverpassClient(cfg.OverpassURL, logger)
	return providers.NewCollector(traffic, weather, overpass, cfg.IncidentRadius, logger)
}

func loadObservations(path string) (risk.Observations, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return risk.Observations{}, err
	}
	var obs risk.Observations
	if err := json.Unmarshal(data, &obs); err != nil {
		return risk.Observations{}, err
	}
	return obs, nil
}
