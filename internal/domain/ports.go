package domain

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	// ErrProviderUnavailable covers transport failures and non-2xx provider responses.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrMalformedResponse is returned when a provider payload does not match its schema.
	ErrMalformedResponse = errors.New("malformed provider response")

	// ErrStoreRead is returned when the report store cannot be read.
	ErrStoreRead = errors.New("report store read failure")

	// ErrInvalidRequest is returned when a location request cannot be parsed.
	ErrInvalidRequest = errors.New("invalid location request")

	// ErrInvalidReport is returned when a submitted report or map mark is rejected.
	ErrInvalidReport = errors.New("invalid report")
)

// Report store collection names.
const (
	CollectionUserReports  = "userReports"
	CollectionMapLocations = "mapLocations"
)

// Provider fetches a weather snapshot for a coordinate.
type Provider interface {
	Kind() ProviderKind

	// FetchSnapshot returns the current snapshot. Errors wrap ErrProviderUnavailable
	// or ErrMalformedResponse.
	FetchSnapshot(ctx context.Context, lat, lng float64) (WeatherSnapshot, error)
}

// Forecaster fetches a scored short-range forecast for a coordinate.
type Forecaster interface {
	FetchForecast(ctx context.Context, lat, lng float64) (Forecast, error)
}

// ReportStore gives read access to loosely-typed report collections.
// Each record is one JSON value; callers tolerate malformed records.
type ReportStore interface {
	ReadCollection(ctx context.Context, name string) ([]json.RawMessage, error)
}

// ReportWriter appends one record to a report collection.
type ReportWriter interface {
	AppendRecord(ctx context.Context, collection string, record json.RawMessage) error
}

// WeatherCache holds the single most recent weather report. Writes overwrite.
type WeatherCache interface {
	PutLatest(ctx context.Context, report WeatherReport) error
}
