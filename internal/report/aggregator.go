// Package report gathers crowd-sourced flood reports near a coordinate.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
)

// DefaultRadiusKm is the search radius used when callers pass a non-positive radius.
const DefaultRadiusKm = 2.0

// Aggregator merges the user report and map mark collections and filters them by distance.
type Aggregator struct {
	store   domain.ReportStore
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewAggregator creates an Aggregator over the given report store.
func NewAggregator(store domain.ReportStore, logger *slog.Logger, metrics *observability.Metrics) *Aggregator {
	return &Aggregator{
		store:   store,
		logger:  logger,
		metrics: metrics,
	}
}

// NearbyReports returns every normalized report within radiusKm of (lat, lng).
// Store read failures are logged and yield an empty slice; they never reach the caller.
func (a *Aggregator) NearbyReports(ctx context.Context, lat, lng, radiusKm float64) []domain.UserReport {
	if radiusKm <= 0 {
		radiusKm = DefaultRadiusKm
	}

	userRecords, err := a.read(ctx, domain.CollectionUserReports)
	if err != nil {
		return []domain.UserReport{}
	}
	markRecords, err := a.read(ctx, domain.CollectionMapLocations)
	if err != nil {
		return []domain.UserReport{}
	}

	now := domain.Now()
	candidates := make([]domain.UserReport, 0, len(userRecords)+len(markRecords))
	for _, raw := range userRecords {
		if r, ok := domain.ParseUserReport(raw); ok {
			candidates = append(candidates, r)
		}
	}
	for _, raw := range markRecords {
		if r, ok := domain.ParseMapMark(raw, now); ok {
			candidates = append(candidates, r)
		}
	}

	nearby := make([]domain.UserReport, 0, len(candidates))
	for _, r := range candidates {
		if domain.DistanceKm(lat, lng, r.Lat, r.Lng) <= radiusKm {
			nearby = append(nearby, r)
		}
	}

	a.metrics.NearbyReports.Observe(float64(len(nearby)))
	a.logger.Debug("nearby reports aggregated",
		"lat", lat, "lng", lng, "radius_km", radiusKm,
		"records", len(userRecords)+len(markRecords),
		"nearby", len(nearby),
	)
	return nearby
}

func (a *Aggregator) read(ctx context.Context, collection string) ([]json.RawMessage, error) {
	records, err := a.store.ReadCollection(ctx, collection)
	if err != nil {
		err = fmt.Errorf("read %s: %w: %w", collection, domain.ErrStoreRead, err)
		a.logger.Warn("report store unavailable, continuing without community reports",
			"collection", collection, "error", err)
		a.metrics.ReportStoreErrors.WithLabelValues(collection).Inc()
		return nil, err
	}
	return records, nil
}
