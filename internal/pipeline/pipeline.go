// Package pipeline orchestrates ingestion: extraction, geocoding, guidance
// generation, validation, deduplication and storage of raw road incident
// reports.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sentinelroad/roadrisk/internal/dedupe"
	"github.com/sentinelroad/roadrisk/internal/domain"
	"github.com/sentinelroad/roadrisk/internal/extract"
	"github.com/sentinelroad/roadrisk/internal/geocode"
	"github.com/sentinelroad/roadrisk/internal/observability"
)

// ArticleSource reads up to batchSize raw articles from the feed.
type ArticleSource interface {
	FetchBatch(ctx context.Context, batchSize int) ([]domain.RawArticle, error)
}

// Sink writes canonical records to a destination.
type Sink interface {
	Store(ctx context.Context, records []domain.IncidentRecord) error
}

// Stats summarizes one batch run.
type Stats struct {
	Fetched           int
	Validated         int
	DuplicatesRemoved int
	Errors            int
	Stored            int
}

// Pipeline runs the ingestion stages over batches of raw articles.
// Extraction and geocoding fan out per article; validation, deduplication
// and the sink write run serialized so identity checks stay atomic.
type Pipeline struct {
	source    ArticleSource
	extractor *extract.Extractor
	geocoder  geocode.Geocoder
	sink      Sink
	bounds    domain.Bounds
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
	batchSize int
}

// New creates a Pipeline with the given stages and observability.
func New(source ArticleSource, extractor *extract.Extractor, geocoder geocode.Geocoder, sink Sink,
	bounds domain.Bounds, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		source:    source,
		extractor: extractor,
		geocoder:  geocoder,
		sink:      sink,
		bounds:    bounds,
		logger:    logger,
		metrics:   metrics,
		batchSize: batchSize,
	}
}

// CheckReadiness returns nil once the pipeline has stored at least one
// record, or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not stored any records yet")
	}
	return nil
}

// Run executes the fetch-process loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	// Keeps retry storms short while avoiding tight loops during outages.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.runOnce(ctx, &backoff, maxBackoff) {
			return nil
		}
	}
}

// runOnce fetches and processes one batch. Returns false if the pipeline
// should stop.
func (p *Pipeline) runOnce(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	articles, err := p.source.FetchBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("fetch batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff, maxBackoff)
	}

	if len(articles) == 0 {
		return ctx.Err() == nil
	}
	*backoff = 200 * time.Millisecond

	if _, err := p.ProcessBatch(ctx, articles); err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("process batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff, maxBackoff)
	}
	return true
}

// ProcessBatch runs the full ingestion sequence over one batch of raw
// articles. Article-level failures are counted and skipped; only a sink
// failure aborts the batch. Records stored before a later batch fails stay
// stored, there is no cross-batch rollback.
func (p *Pipeline) ProcessBatch(ctx context.Context, articles []domain.RawArticle) (Stats, error) {
	start := time.Now()
	stats := Stats{Fetched: len(articles)}

	p.metrics.ArticlesFetched.Add(float64(len(articles)))
	p.metrics.BatchSize.Observe(float64(len(articles)))

	// Fan out the slow stages. Geocoder throttling is shared, so the
	// effective geocode rate stays bounded regardless of batch size.
	type outcome struct {
		record domain.IncidentRecord
		err    error
	}
	outcomes := make([]outcome, len(articles))

	var wg sync.WaitGroup
	for i, article := range articles {
		wg.Add(1)
		go func(i int, article domain.RawArticle) {
			defer wg.Done()
			rec, err := p.buildRecord(ctx, article)
			outcomes[i] = outcome{record: rec, err: err}
		}(i, article)
	}
	wg.Wait()

	// Serialize identity checks: the per-batch deduplicator sees records
	// one at a time, so check-then-commit cannot race.
	dedup := dedupe.New()
	batch := make([]domain.IncidentRecord, 0, len(articles))
	for i, out := range outcomes {
		if out.err != nil {
			stats.Errors++
			p.metrics.ProcessingErrors.Inc()
			p.logger.Warn("article skipped", "title", articles[i].Title, "error", out.err)
			continue
		}

		if violations := domain.Validate(out.record, &p.bounds); len(violations) > 0 {
			stats.Errors++
			p.metrics.ProcessingErrors.Inc()
			p.logger.Warn("record failed validation",
				"title", out.record.Title, "violations", violations)
			continue
		}
		stats.Validated++
		p.metrics.RecordsValidated.Inc()

		if dedup.CheckAndCommit(out.record) {
			stats.DuplicatesRemoved++
			p.metrics.DuplicatesRemoved.Inc()
			continue
		}
		batch = append(batch, out.record)
	}

	if len(batch) > 0 {
		if err := p.sink.Store(ctx, batch); err != nil {
			return stats, fmt.Errorf("store batch: %w", err)
		}
		stats.Stored = len(batch)
		p.metrics.RecordsStored.Add(float64(len(batch)))
		p.ready.Store(true)
	}

	p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	p.logger.Info("batch processed",
		"fetched", stats.Fetched,
		"validated", stats.Validated,
		"duplicates", stats.DuplicatesRemoved,
		"errors", stats.Errors,
		"stored", stats.Stored,
	)
	return stats, nil
}

// buildRecord turns one raw article into a candidate record. Geocoding and
// guidance failures degrade the record rather than failing it; only an
// unusable article is an error.
func (p *Pipeline) buildRecord(ctx context.Context, article domain.RawArticle) (domain.IncidentRecord, error) {
	title := article.Title
	if title == "" {
		return domain.IncidentRecord{}, errors.New("article has no title")
	}

	extracted := p.extractor.Extract(ctx, article.CombinedText(), title)

	rec := domain.IncidentRecord{
		Title:        title,
		URL:          article.URL,
		Summary:      article.Description,
		Reason:       extracted.Reason,
		OccurredAt:   article.OccurredAt(),
		LocationText: extracted.Location,
		Source:       article.Source.Name,
		Status:       domain.StatusUnassigned,
		AssignedTo:   []string{},
	}
	if rec.Reason == "" {
		rec.Reason = domain.ReasonUnknown
	}

	if extracted.Location != "" {
		point, err := p.geocoder.Geocode(ctx, extracted.Location)
		switch {
		case err != nil:
			p.logger.Warn("geocode failed, storing without coordinates",
				"location", extracted.Location, "error", err)
		case point != nil:
			rec.Latitude = &point.Lat
			rec.Longitude = &point.Lon
		}
	}

	guidance := p.extractor.GenerateGuidance(ctx, title, rec.Reason, rec.LocationText)
	rec.Priority = guidance.Priority
	rec.ActionsNeeded = guidance.ActionsNeeded
	rec.RequiredSkills = guidance.RequiredSkills
	rec.ResolutionSteps = guidance.ResolutionSteps
	rec.EstimatedVolunteers = guidance.EstimatedVolunteers

	return rec, nil
}

// backoffOrStop checks for context cancellation, sleeps with the current
// backoff, and advances the backoff. Returns false if the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
