// Package postgres stores report collections and the latest weather report in
// PostgreSQL. Each collection is a single JSONB array so records keep the
// loose, schema-free shape field clients submit.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // postgres driver

	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

// LatestSlot is the weather cache row holding the most recent report.
const LatestSlot = "realtimeWeather"

const schema = `
CREATE TABLE IF NOT EXISTS report_collections (
	name    TEXT PRIMARY KEY,
	records JSONB NOT NULL DEFAULT '[]'::jsonb
);

CREATE TABLE IF NOT EXISTS weather_cache (
	slot       TEXT PRIMARY KEY,
	payload    JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);`

// Store implements domain.ReportStore and domain.WeatherCache.
type Store struct {
	db *sql.DB
}

// Open connects to the database at dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return New(db), nil
}

// New wraps an existing connection pool.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// ReadCollection returns the records of the named collection. A missing
// collection is empty.
func (s *Store) ReadCollection(ctx context.Context, name string) ([]json.RawMessage, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT records FROM report_collections WHERE name = $1`, name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return []json.RawMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query collection %s: %w", name, err)
	}

	var records []json.RawMessage
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("decode collection %s: %w", name, err)
	}
	return records, nil
}

// ReplaceCollection overwrites the named collection.
func (s *Store) ReplaceCollection(ctx context.Context, name string, records []json.RawMessage) error {
	if records == nil {
		records = []json.RawMessage{}
	}
	body, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode collection %s: %w", name, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO report_collections (name, records) VALUES ($1, $2::jsonb)
		ON CONFLICT (name) DO UPDATE SET records = EXCLUDED.records`,
		name, string(body))
	if err != nil {
		return fmt.Errorf("replace collection %s: %w", name, err)
	}
	return nil
}

// AppendRecord adds one record to the end of the named collection.
func (s *Store) AppendRecord(ctx context.Context, name string, record json.RawMessage) error {
	if !json.Valid(record) {
		return fmt.Errorf("append %s record: invalid JSON", name)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO report_collections (name, records) VALUES ($1, jsonb_build_array($2::jsonb))
		ON CONFLICT (name) DO UPDATE
		SET records = report_collections.records || jsonb_build_array($2::jsonb)`,
		name, string(record))
	if err != nil {
		return fmt.Errorf("append %s record: %w", name, err)
	}
	return nil
}

// PutLatest upserts report into the single latest slot. Last write wins.
func (s *Store) PutLatest(ctx context.Context, report domain.WeatherReport) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode weather report: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO weather_cache (slot, payload, updated_at) VALUES ($1, $2::jsonb, $3)
		ON CONFLICT (slot) DO UPDATE
		SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`,
		LatestSlot, string(body), report.LastUpdated)
	if err != nil {
		return fmt.Errorf("write weather cache: %w", err)
	}
	return nil
}

// Latest returns the stored report, or false when none has been written.
func (s *Store) Latest(ctx context.Context) (domain.WeatherReport, bool, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM weather_cache WHERE slot = $1`, LatestSlot).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.WeatherReport{}, false, nil
	}
	if err != nil {
		return domain.WeatherReport{}, false, fmt.Errorf("read weather cache: %w", err)
	}

	var report domain.WeatherReport
	if err := json.Unmarshal(body, &report); err != nil {
		return domain.WeatherReport{}, false, fmt.Errorf("decode weather cache: %w", err)
	}
	return report, true, nil
}

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
