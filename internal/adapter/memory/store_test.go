package memory

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportStore_UnknownCollectionIsEmpty(t *testing.T) {
	s := NewReportStore()
	records, err := s.ReadCollection(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestReportStore_AddAndRead(t *testing.T) {
	s := NewReportStore()
	require.NoError(t, s.Add(domain.CollectionUserReports,
		map[string]any{"status": "danger", "lat": 1.0, "lng": 2.0},
		map[string]any{"status": "safe", "lat": 3.0, "lng": 4.0},
	))

	records, err := s.ReadCollection(context.Background(), domain.CollectionUserReports)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.JSONEq(t, `{"status":"danger","lat":1,"lng":2}`, string(records[0]))
}

func TestReportStore_AppendRecord(t *testing.T) {
	s := NewReportStore()
	ctx := context.Background()
	require.NoError(t, s.AppendRecord(ctx, domain.CollectionUserReports, json.RawMessage(`{"status":"safe","lat":1,"lng":2}`)))
	require.Error(t, s.AppendRecord(ctx, domain.CollectionUserReports, json.RawMessage(`{"status"`)))

	records, err := s.ReadCollection(ctx, domain.CollectionUserReports)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.JSONEq(t, `{"status":"safe","lat":1,"lng":2}`, string(records[0]))
}

func TestReportStore_ReadReturnsCopy(t *testing.T) {
	s := NewReportStore()
	require.NoError(t, s.ReplaceCollection(context.Background(), domain.CollectionMapLocations,
		[]json.RawMessage{json.RawMessage(`{"point":3,"lat":1,"lng":1}`)}))

	first, err := s.ReadCollection(context.Background(), domain.CollectionMapLocations)
	require.NoError(t, err)
	first[0] = []byte(`{}`)

	second, err := s.ReadCollection(context.Background(), domain.CollectionMapLocations)
	require.NoError(t, err)
	assert.JSONEq(t, `{"point":3,"lat":1,"lng":1}`, string(second[0]))
}

func TestReportStore_ReplaceCollection(t *testing.T) {
	s := NewReportStore()
	ctx := context.Background()
	require.NoError(t, s.AppendRecord(ctx, domain.CollectionUserReports, json.RawMessage(`{"status":"danger","lat":1,"lng":2}`)))

	require.NoError(t, s.ReplaceCollection(ctx, domain.CollectionUserReports,
		[]json.RawMessage{json.RawMessage(`{"status":"safe","lat":3,"lng":4}`)}))

	records, err := s.ReadCollection(ctx, domain.CollectionUserReports)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.JSONEq(t, `{"status":"safe","lat":3,"lng":4}`, string(records[0]))
}

func TestLatestCache_EmptyUntilWritten(t *testing.T) {
	c := NewLatestCache()
	_, ok, err := c.Latest(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLatestCache_LastWriteWins(t *testing.T) {
	c := NewLatestCache()
	ctx := context.Background()
	t0 := time.Date(2024, 4, 26, 15, 0, 0, 0, time.UTC)

	require.NoError(t, c.PutLatest(ctx, domain.WeatherReport{LastUpdated: t0}))
	require.NoError(t, c.PutLatest(ctx, domain.WeatherReport{LastUpdated: t0.Add(time.Minute)}))

	got, ok, err := c.Latest(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, t0.Add(time.Minute), got.LastUpdated)
}

func TestLatestCache_ConcurrentWriters(t *testing.T) {
	c := NewLatestCache()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.PutLatest(ctx, domain.WeatherReport{Current: domain.RiskAssessment{Score: i}})
		}()
	}
	wg.Wait()

	got, ok, err := c.Latest(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.GreaterOrEqual(t, got.Current.Score, 0)
	assert.Less(t, got.Current.Score, 50)
}
