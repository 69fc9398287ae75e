// Package memory provides in-process implementations of the report store and
// weather cache, used when no database is configured and in tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

// ReportStore holds report collections as raw JSON records.
type ReportStore struct {
	mu          sync.RWMutex
	collections map[string][]json.RawMessage
}

// NewReportStore creates an empty report store.
func NewReportStore() *ReportStore {
	return &ReportStore{collections: make(map[string][]json.RawMessage)}
}

// ReadCollection returns a copy of the named collection. Unknown collections are empty.
func (s *ReportStore) ReadCollection(_ context.Context, name string) ([]json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.collections[name]
	out := make([]json.RawMessage, len(records))
	copy(out, records)
	return out, nil
}

// Add appends records to a collection, marshaling each value to JSON.
func (s *ReportStore) Add(name string, records ...any) error {
	raws := make([]json.RawMessage, 0, len(records))
	for i, r := range records {
		b, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal %s record %d: %w", name, i, err)
		}
		raws = append(raws, b)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[name] = append(s.collections[name], raws...)
	return nil
}

// AppendRecord appends one raw JSON record to a collection.
func (s *ReportStore) AppendRecord(_ context.Context, name string, record json.RawMessage) error {
	if !json.Valid(record) {
		return fmt.Errorf("append %s record: invalid JSON", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[name] = append(s.collections[name], record)
	return nil
}

// ReplaceCollection swaps the named collection for records.
func (s *ReportStore) ReplaceCollection(_ context.Context, name string, records []json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[name] = records
	return nil
}

// LatestCache is a single-slot weather cache. Writes overwrite; the mutex only
// keeps concurrent writers memory safe.
type LatestCache struct {
	mu     sync.RWMutex
	report domain.WeatherReport
	set    bool
}

// NewLatestCache creates an empty cache.
func NewLatestCache() *LatestCache {
	return &LatestCache{}
}

// PutLatest stores report, replacing any previous value.
func (c *LatestCache) PutLatest(_ context.Context, report domain.WeatherReport) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.report = report
	c.set = true
	return nil
}

// Latest returns the most recently stored report.
func (c *LatestCache) Latest(_ context.Context) (domain.WeatherReport, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.report, c.set, nil
}
