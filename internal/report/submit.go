package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

// Submit validates a user report or map mark and appends it to its collection.
// Records are stored as submitted, with a timestamp added when absent so they
// count toward influence. It returns the normalized report.
func Submit(ctx context.Context, w domain.ReportWriter, collection string, raw json.RawMessage) (domain.UserReport, error) {
	now := domain.Now()

	var (
		r  domain.UserReport
		ok bool
	)
	switch collection {
	case domain.CollectionUserReports:
		r, ok = domain.ParseUserReport(raw)
	case domain.CollectionMapLocations:
		r, ok = domain.ParseMapMark(raw, now)
	default:
		return domain.UserReport{}, fmt.Errorf("%w: unknown collection %q", domain.ErrInvalidReport, collection)
	}
	if !ok {
		return domain.UserReport{}, fmt.Errorf("%w: %s record needs coordinates and a recognizable status or point", domain.ErrInvalidReport, collection)
	}

	if err := requireMarkers(collection, r, raw); err != nil {
		return domain.UserReport{}, err
	}
	if err := domain.ValidateCoordinates(r.Lat, r.Lng); err != nil {
		return domain.UserReport{}, fmt.Errorf("%w: %w", domain.ErrInvalidReport, err)
	}

	var rec map[string]any
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.UserReport{}, fmt.Errorf("%w: %w", domain.ErrInvalidReport, err)
	}
	if _, has := rec["timestamp"]; !has {
		rec["timestamp"] = now.UTC().Format(time.RFC3339)
		r.Timestamp = now.UTC().Truncate(time.Second)
	}
	stored, err := json.Marshal(rec)
	if err != nil {
		return domain.UserReport{}, fmt.Errorf("encode %s record: %w", collection, err)
	}

	if err := w.AppendRecord(ctx, collection, stored); err != nil {
		return domain.UserReport{}, fmt.Errorf("store %s record: %w", collection, err)
	}
	return r, nil
}

// requireMarkers rejects submissions that stored-record parsing would tolerate:
// a user report needs a recognizable status and a map mark needs its point.
func requireMarkers(collection string, r domain.UserReport, raw json.RawMessage) error {
	switch collection {
	case domain.CollectionUserReports:
		if r.Status == "" {
			return fmt.Errorf("%w: userReports record needs a status of safe or danger", domain.ErrInvalidReport)
		}
	case domain.CollectionMapLocations:
		var mark struct {
			Point json.RawMessage `json:"point"`
		}
		if err := json.Unmarshal(raw, &mark); err != nil || len(mark.Point) == 0 || string(mark.Point) == "null" {
			return fmt.Errorf("%w: mapLocations record needs a point value", domain.ErrInvalidReport)
		}
	}
	return nil
}
