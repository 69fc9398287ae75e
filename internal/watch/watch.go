// Package watch runs the streaming counterpart of the HTTP update endpoint:
// it consumes location requests from a message source, refreshes the weather
// report for each one, and publishes the results.
package watch

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// BatchExtractor reads up to batchSize raw location requests from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawMessage, error)
}

// Updater refreshes the weather report for one coordinate.
type Updater interface {
	Update(ctx context.Context, lat, lng float64, kind domain.ProviderKind) domain.WeatherReport
}

// BatchLoader publishes weather reports to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, reports []domain.WeatherReport) error
}

// Watcher orchestrates the extract-update-publish loop.
type Watcher struct {
	extractor BatchExtractor
	updater   Updater
	loader    BatchLoader
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
	batchSize int
}

// New creates a Watcher with the given stages and observability.
func New(e BatchExtractor, u Updater, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Watcher {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Watcher{
		extractor: e,
		updater:   u,
		loader:    l,
		logger:    logger,
		metrics:   metrics,
		batchSize: batchSize,
	}
}

// CheckReadiness returns nil once the watcher has published at least one report.
func (w *Watcher) CheckReadiness(_ context.Context) error {
	if !w.ready.Load() {
		return errors.New("watcher has not published any reports yet")
	}
	return nil
}

// Run executes the watch loop until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("watcher started", "batch_size", w.batchSize)
	w.metrics.WatchRunning.Set(1)
	defer w.metrics.WatchRunning.Set(0)

	backoff := initialBackoff
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !w.processBatch(ctx, &backoff) {
			return nil
		}
	}
}

// processBatch runs one cycle. Returns false if the watcher should stop.
func (w *Watcher) processBatch(ctx context.Context, backoff *time.Duration) bool {
	start := time.Now()

	rawBatch, err := w.extractor.ExtractBatch(ctx, w.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		w.logger.Error("extract batch failed", "error", err)
		return w.backoffOrStop(ctx, backoff)
	}

	if len(rawBatch) == 0 {
		return ctx.Err() == nil
	}

	w.metrics.RequestsConsumed.Add(float64(len(rawBatch)))
	w.metrics.BatchSize.Observe(float64(len(rawBatch)))
	*backoff = initialBackoff

	published, ok := w.updateAndLoad(ctx, rawBatch, backoff)
	if !ok {
		return false
	}

	if published > 0 {
		w.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
		w.ready.Store(true)
	}
	return true
}

// updateAndLoad parses and refreshes each request, publishes the reports, and
// commits. Unparseable requests are committed and skipped. Returns the number
// of published reports and false if the watcher should stop.
func (w *Watcher) updateAndLoad(ctx context.Context, rawBatch []domain.RawMessage, backoff *time.Duration) (int, bool) {
	reports := make([]domain.WeatherReport, 0, len(rawBatch))
	handled := make([]domain.RawMessage, 0, len(rawBatch))

	for _, raw := range rawBatch {
		req, err := domain.ParseLocationRequest(raw.Value)
		if err != nil {
			w.logger.Warn("invalid location request, skipping message",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			w.metrics.RequestErrors.Inc()
			w.commit(ctx, raw)
			continue
		}
		reports = append(reports, w.updater.Update(ctx, req.Lat, req.Lng, req.Provider))
		handled = append(handled, raw)
	}

	if len(reports) == 0 {
		return 0, true
	}

	if err := w.loader.LoadBatch(ctx, reports); err != nil {
		w.logger.Error("publish batch failed", "error", err, "batch_size", len(reports))
		return 0, w.backoffOrStop(ctx, backoff)
	}

	w.metrics.ReportsPublished.Add(float64(len(reports)))

	for _, raw := range handled {
		w.commit(ctx, raw)
	}
	return len(reports), true
}

// backoffOrStop sleeps with the current backoff and advances it. Returns false
// if the context was cancelled.
func (w *Watcher) backoffOrStop(ctx context.Context, backoff *time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !retry.SleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = retry.NextBackoff(*backoff, maxBackoff)
	return true
}

func (w *Watcher) commit(ctx context.Context, raw domain.RawMessage) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		w.logger.Warn("commit failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}
