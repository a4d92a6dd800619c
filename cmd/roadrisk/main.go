package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	openai "github.com/sashabaranov/go-openai"

	httpadapter "github.com/sentinelroad/roadrisk/internal/adapter/http"
	kafkaadapter "github.com/sentinelroad/roadrisk/internal/adapter/kafka"
	"github.com/sentinelroad/roadrisk/internal/cluster"
	"github.com/sentinelroad/roadrisk/internal/config"
	"github.com/sentinelroad/roadrisk/internal/domain"
	"github.com/sentinelroad/roadrisk/internal/extract"
	"github.com/sentinelroad/roadrisk/internal/geocode"
	"github.com/sentinelroad/roadrisk/internal/incident"
	"github.com/sentinelroad/roadrisk/internal/observability"
	"github.com/sentinelroad/roadrisk/internal/pipeline"
	"github.com/sentinelroad/roadrisk/internal/providers"
	"github.com/sentinelroad/roadrisk/internal/risk"
	"github.com/sentinelroad/roadrisk/internal/store"
)

// assessedCenters caps how many cluster centers get a fresh provider sweep
// per analytics run, keeping external API usage bounded.
const assessedCenters = 3

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	// LLM extraction is feature-flagged via LLM_ENABLED / LLM_API_KEY.
	var llm extract.ChatCompleter
	if cfg.LLMEnabled {
		clientCfg := openai.DefaultConfig(cfg.LLMAPIKey)
		clientCfg.BaseURL = cfg.LLMBaseURL
		llm = openai.NewClientWithConfig(clientCfg)
		logger.Info("llm extraction enabled", "model", cfg.LLMModel)
	} else {
		logger.Info("llm extraction disabled, pattern stage only")
	}
	extractor := extract.New(llm, cfg.LLMModel, "Pune", logger)

	geocoder := buildGeocoder(cfg, metrics, logger)

	reader := kafkaadapter.NewReader(cfg.KafkaBrokers, cfg.KafkaSourceTopic, cfg.KafkaGroupID, logger)
	writer := kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaSinkTopic, logger)

	sinks := multiSink{writer}
	var records *store.Client
	if cfg.StoreEnabled {
		records = store.NewClient(cfg.StoreURL, cfg.StoreAPIKey, cfg.StoreTable, logger)
		sinks = append(sinks, records)
		logger.Info("record store enabled", "table", cfg.StoreTable)
	} else {
		logger.Info("record store disabled, kafka sink only")
	}

	p := pipeline.New(reader, extractor, geocoder, sinks, cfg.RegionBounds, logger, metrics, cfg.BatchSize)

	scorer, err := risk.NewScorer(cfg.RiskWeights, metrics, logger, risk.WithIncidentRadius(cfg.IncidentRadius))
	if err != nil {
		logger.Error("invalid risk weights", "error", err)
		os.Exit(1)
	}

	analytics := &analyticsState{}
	scheduler := startAnalytics(cfg, records, scorer, analytics, logger)

	var summaryProvider httpadapter.SummaryProvider
	if scheduler != nil {
		summaryProvider = analytics
	}
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, summaryProvider, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if scheduler != nil {
		<-scheduler.Stop().Done()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}

// buildGeocoder assembles the geocoding chain: region-bounded provider,
// shared rate limit, LRU cache on resolved hits.
func buildGeocoder(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) geocode.Geocoder {
	client := geocode.NewClient(cfg.GeocodeURL, cfg.GeocodeAgent, cfg.RegionSuffix,
		cfg.RegionBounds, 10*time.Second, metrics, logger)
	throttled := geocode.NewThrottled(client, cfg.GeocodeWait)
	return geocode.NewCached(throttled, cfg.GeocodeCache, metrics)
}

// startAnalytics schedules periodic cluster analysis over stored records.
// Returns nil when the record store is disabled.
func startAnalytics(cfg *config.Config, records *store.Client, scorer *risk.Scorer,
	state *analyticsState, logger *slog.Logger) *cron.Cron {
	if records == nil {
		logger.Info("analytics disabled, no record store configured")
		return nil
	}

	var traffic *providers.TrafficClient
	if cfg.TrafficAPIKey != "" {
		traffic = providers.NewTrafficClient("", cfg.TrafficAPIKey, logger)
	}
	var weather *providers.WeatherClient
	if cfg.WeatherAPIKey != "" {
		weather = providers.NewWeatherClient("", cfg.WeatherAPIKey, logger)
	}
	overpass := providers.NewOverpassClient(cfg.OverpassURL, logger)
	collector := providers.NewCollector(traffic, weather, overpass, cfg.IncidentRadius, logger)

	analyzer := cluster.NewAnalyzer(cfg.ClusterEpsKm, cfg.ClusterMinSamples, logger)

	run := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		runAnalytics(ctx, cfg.AnalyticsLimit, records, analyzer, collector, scorer, state, logger)
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.AnalyticsSchedule, run); err != nil {
		logger.Error("invalid analytics schedule", "schedule", cfg.AnalyticsSchedule, "error", err)
		os.Exit(1)
	}
	scheduler.Start()
	logger.Info("analytics scheduled", "schedule", cfg.AnalyticsSchedule)

	// Prime the summary instead of waiting a full interval.
	go run()
	return scheduler
}

// runAnalytics recomputes clusters, distribution and heatmap from stored
// records, then scores the densest cluster centers with fresh signals.
func runAnalytics(ctx context.Context, limit int, records *store.Client, analyzer *cluster.Analyzer,
	collector *providers.Collector, scorer *risk.Scorer, state *analyticsState, logger *slog.Logger) {
	recent, err := records.FetchRecent(ctx, limit)
	if err != nil {
		logger.Error("analytics fetch failed", "error", err)
		return
	}

	incidents := incident.CategorizeAll(recent)
	clusters := analyzer.Clusters(incidents)

	assessments := make([]risk.Assessment, 0, assessedCenters)
	for i, c := range clusters {
		if i == assessedCenters {
			break
		}
		obs := collector.Collect(ctx, c.Center)
		assessments = append(assessments, scorer.Score(c.Center, obs))
	}

	state.update(summary{
		GeneratedAt:  time.Now().UTC(),
		Distribution: cluster.Distribute(incidents),
		Clusters:     clusters,
		Heatmap:      cluster.Heatmap(incidents),
		Assessments:  assessments,
	})
	logger.Info("analytics updated",
		"records", len(recent), "clusters", len(clusters), "assessed", len(assessments))
}

type summary struct {
	GeneratedAt  time.Time              `json:"generated_at"`
	Distribution cluster.Distribution   `json:"distribution"`
	Clusters     []cluster.Cluster      `json:"clusters"`
	Heatmap      []cluster.HeatmapPoint `json:"heatmap"`
	Assessments  []risk.Assessment      `json:"assessments"`
}

// analyticsState holds the latest summary for the HTTP API.
type analyticsState struct {
	mu     sync.RWMutex
	latest *summary
}

func (s *analyticsState) update(latest summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = &latest
}

func (s *analyticsState) Summary() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return nil
	}
	return s.latest
}

// multiSink fans a batch out to every configured sink. All sinks are
// attempted even when one fails.
type multiSink []pipeline.Sink

func (m multiSink) Store(ctx context.Context, records []domain.IncidentRecord) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Store(ctx, records); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
