package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// ingestion pipeline and its adapters.
type Metrics struct {
	ArticlesFetched   prometheus.Counter
	RecordsValidated  prometheus.Counter
	RecordsStored     prometheus.Counter
	DuplicatesRemoved prometheus.Counter
	ProcessingErrors  prometheus.Counter
	PipelineRunning   prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Geocoding metrics.
	GeocodeRequests *prometheus.CounterVec // labels: outcome={success,miss,out_of_bounds,error}
	GeocodeCache    *prometheus.CounterVec // labels: result={hit,miss}

	// LLM metrics.
	LLMCalls *prometheus.CounterVec // labels: kind={extract,guidance}, outcome={success,fallback}

	// Risk scoring metrics.
	AssessmentsComputed prometheus.Counter
	RiskScore           prometheus.Histogram
}

// NewMetrics creates and registers all metrics with the default registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ArticlesFetched,
		m.RecordsValidated,
		m.RecordsStored,
		m.DuplicatesRemoved,
		m.ProcessingErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.LLMCalls,
		m.AssessmentsComputed,
		m.RiskScore,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ArticlesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "roadrisk",
			Name:      "articles_fetched_total",
			Help:      "Total raw articles handed to the ingestion pipeline.",
		}),
		RecordsValidated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "roadrisk",
			Name:      "records_validated_total",
			Help:      "Total records that passed field validation.",
		}),
		RecordsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "roadrisk",
			Name:      "records_stored_total",
			Help:      "Total canonical records committed to the sink.",
		}),
		DuplicatesRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "roadrisk",
			Name:      "duplicates_removed_total",
			Help:      "Total records dropped by the deduplicator.",
		}),
		ProcessingErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "roadrisk",
			Name:      "processing_errors_total",
			Help:      "Total articles dropped due to processing failures.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "roadrisk",
			Name:      "pipeline_running",
			Help:      "1 when the ingestion pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "roadrisk",
			Name:      "batch_size",
			Help:      "Number of articles per ingestion batch.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "roadrisk",
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete ingestion batch.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roadrisk",
			Name:      "geocode_requests_total",
			Help:      "Geocoding requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roadrisk",
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
		LLMCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roadrisk",
			Name:      "llm_calls_total",
			Help:      "LLM calls by kind and outcome.",
		}, []string{"kind", "outcome"}),
		AssessmentsComputed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "roadrisk",
			Name:      "assessments_computed_total",
			Help:      "Total composite risk assessments produced.",
		}),
		RiskScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "roadrisk",
			Name:      "risk_score",
			Help:      "Distribution of composite risk scores (0-100).",
			Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}),
	}
}
