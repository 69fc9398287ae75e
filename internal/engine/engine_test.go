package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/flood-risk-service/internal/adapter/memory"
	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
)

var evalTime = time.Date(2024, 4, 26, 15, 0, 0, 0, time.UTC)

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

type stubProvider struct {
	kind  domain.ProviderKind
	snap  domain.WeatherSnapshot
	err   error
	calls int
	mu    sync.Mutex
}

func (p *stubProvider) Kind() domain.ProviderKind { return p.kind }

func (p *stubProvider) FetchSnapshot(_ context.Context, _, _ float64) (domain.WeatherSnapshot, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return p.snap, p.err
}

type stubReports struct {
	reports []domain.UserReport
	radius  float64
}

func (s *stubReports) NearbyReports(_ context.Context, _, _, radiusKm float64) []domain.UserReport {
	s.radius = radiusKm
	return s.reports
}

type stubForecaster struct {
	forecast domain.Forecast
	err      error
}

func (f *stubForecaster) FetchForecast(_ context.Context, _, _ float64) (domain.Forecast, error) {
	return f.forecast, f.err
}

type failingCache struct{}

func (failingCache) PutLatest(context.Context, domain.WeatherReport) error {
	return errors.New("disk full")
}

func freezeClock(t *testing.T) {
	t.Helper()
	domain.SetClock(clockwork.NewFakeClockAt(evalTime))
	t.Cleanup(func() { domain.SetClock(nil) })
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func numericStorm() *stubProvider {
	return &stubProvider{
		kind: domain.ProviderOpenWeather,
		snap: domain.WeatherSnapshot{
			Origin:      domain.OriginNumeric,
			RainfallMm:  12,
			HumidityPct: intPtr(95),
			WindSpeedMs: 18,
			PressureHpa: floatPtr(995),
		},
	}
}

func narrativeFlood() *stubProvider {
	return &stubProvider{
		kind: domain.ProviderNWS,
		snap: domain.WeatherSnapshot{
			Origin:        domain.OriginNarrative,
			ConditionText: "Heavy Rain",
			Narrative:     "flash flood warning issued, heavy rain",
		},
	}
}

func recentReports() []domain.UserReport {
	return []domain.UserReport{
		{Status: domain.StatusDanger, Severity: domain.SeverityMedium, Timestamp: evalTime.Add(-time.Hour), Source: domain.SourceDirectReport},
		{Status: domain.StatusDanger, Severity: domain.SeverityMedium, Timestamp: evalTime.Add(-2 * time.Hour), Source: domain.SourceMapMark, Description: "User marked location"},
	}
}

func TestAssess_NumericScenario(t *testing.T) {
	freezeClock(t)
	metrics := observability.NewMetricsForTesting()
	e := New([]domain.Provider{numericStorm()}, &stubReports{}, testLogger(), metrics)

	a := e.Assess(context.Background(), 47.6, -122.3, domain.ProviderOpenWeather)

	assert.Equal(t, 90, a.Score)
	assert.Equal(t, domain.RiskCritical, a.Level)
	assert.False(t, a.Fallback)
	assert.Equal(t, evalTime, a.AssessedAt)
	assert.Equal(t, 47.6, a.Lat)
	assert.Equal(t, -122.3, a.Lng)
	assert.Equal(t, domain.ProviderOpenWeather, a.Provider)
	_, err := uuid.Parse(a.ID)
	require.NoError(t, err)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Assessments.WithLabelValues("openweather", "scored")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.RiskLevels.WithLabelValues("Critical")), 0)
}

func TestAssess_NarrativeScenarioWithInfluence(t *testing.T) {
	freezeClock(t)
	reports := &stubReports{reports: recentReports()}
	e := New([]domain.Provider{numericStorm(), narrativeFlood()}, reports, testLogger(), observability.NewMetricsForTesting())

	a := e.Assess(context.Background(), 47.6, -122.3, domain.ProviderNWS)

	assert.Equal(t, 20, a.CommunityInfluence)
	assert.Equal(t, 110, a.Score)
	assert.Equal(t, domain.RiskCritical, a.Level)
	if diff := cmp.Diff(recentReports(), a.NearbyReports); diff != "" {
		t.Errorf("nearby reports mismatch (-want +got):\n%s", diff)
	}
}

func TestAssess_InfluenceAddedOnce(t *testing.T) {
	freezeClock(t)
	calm := &stubProvider{kind: domain.ProviderNWS, snap: domain.WeatherSnapshot{Origin: domain.OriginNarrative, ConditionText: "Sunny"}}
	e := New([]domain.Provider{calm}, &stubReports{reports: recentReports()}, testLogger(), observability.NewMetricsForTesting())

	a := e.Assess(context.Background(), 1, 2, domain.ProviderNWS)

	assert.Equal(t, 20, a.Score)
	assert.Equal(t, domain.RiskLow, a.Level) // narrative table: Medium starts at 35
}

func TestAssess_ProviderSelection(t *testing.T) {
	freezeClock(t)
	ow := numericStorm()
	nws := narrativeFlood()
	e := New([]domain.Provider{ow, nws}, &stubReports{}, testLogger(), observability.NewMetricsForTesting())

	e.Assess(context.Background(), 1, 2, domain.ProviderNWS)
	e.Assess(context.Background(), 1, 2, "")
	a := e.Assess(context.Background(), 1, 2, "accuweather")

	assert.Equal(t, 1, nws.calls)
	assert.Equal(t, 2, ow.calls, "empty and unknown kinds use the default provider")
	assert.Equal(t, domain.ProviderOpenWeather, e.DefaultProvider())
	assert.Equal(t, domain.ProviderOpenWeather, a.Provider, "assessment records the provider actually used")
}

func TestAssess_DefaultProviderOption(t *testing.T) {
	freezeClock(t)
	ow := numericStorm()
	nws := narrativeFlood()
	e := New([]domain.Provider{ow, nws}, &stubReports{}, testLogger(), observability.NewMetricsForTesting(),
		WithDefaultProvider(domain.ProviderNWS))

	a := e.Assess(context.Background(), 1, 2, "")
	assert.Equal(t, 1, nws.calls)
	assert.Equal(t, domain.OriginNarrative, a.Snapshot.Origin)
}

func TestAssess_FallbackOnProviderError(t *testing.T) {
	for _, sentinel := range []error{domain.ErrProviderUnavailable, domain.ErrMalformedResponse} {
		t.Run(sentinel.Error(), func(t *testing.T) {
			freezeClock(t)
			metrics := observability.NewMetricsForTesting()
			broken := &stubProvider{kind: domain.ProviderOpenWeather, err: fmt.Errorf("%w: status 503", sentinel)}
			reports := &stubReports{reports: recentReports()}
			e := New([]domain.Provider{broken}, reports, testLogger(), metrics, WithRand(domain.FixedRand(0.5)))

			a := e.Assess(context.Background(), 1, 2, domain.ProviderOpenWeather)

			want := domain.FallbackAssessment(domain.FixedRand(0.5), evalTime)
			want.ID = a.ID
			want.Lat, want.Lng, want.Provider = 1, 2, domain.ProviderOpenWeather
			if diff := cmp.Diff(want, a); diff != "" {
				t.Errorf("fallback mismatch (-want +got):\n%s", diff)
			}
			assert.True(t, a.Fallback)
			assert.Equal(t, domain.RiskLow, a.Level)
			assert.Equal(t, 0, a.Score)
			assert.Empty(t, a.NearbyReports, "fallback never carries reports")
			assert.Equal(t, 1, broken.calls, "no retries")
			assert.NotEmpty(t, a.ID)
			assert.InDelta(t, 1, testutil.ToFloat64(metrics.Assessments.WithLabelValues("openweather", "fallback")), 0)
		})
	}
}

func TestAssess_FallbackWhenNoProviders(t *testing.T) {
	freezeClock(t)
	e := New(nil, &stubReports{}, testLogger(), observability.NewMetricsForTesting())

	a := e.Assess(context.Background(), 1, 2, domain.ProviderNWS)
	assert.True(t, a.Fallback)
	assert.Equal(t, domain.OriginFallback, a.Snapshot.Origin)
}

func TestAssess_Radius(t *testing.T) {
	freezeClock(t)
	reports := &stubReports{}
	e := New([]domain.Provider{numericStorm()}, reports, testLogger(), observability.NewMetricsForTesting(), WithRadius(5))

	e.Assess(context.Background(), 1, 2, "")
	assert.Equal(t, 5.0, reports.radius)
}

func TestAssess_UniqueIDs(t *testing.T) {
	freezeClock(t)
	e := New([]domain.Provider{numericStorm()}, &stubReports{}, testLogger(), observability.NewMetricsForTesting())

	a := e.Assess(context.Background(), 1, 2, "")
	b := e.Assess(context.Background(), 1, 2, "")
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, a.Score, b.Score)
}

func TestUpdate_WritesLatest(t *testing.T) {
	freezeClock(t)
	cache := memory.NewLatestCache()
	metrics := observability.NewMetricsForTesting()
	forecast := domain.Forecast{
		Hourly: []domain.HourlyForecast{{Time: evalTime, TemperatureC: 12, Level: domain.RiskHigh}},
		Daily:  []domain.DailyForecast{{Date: evalTime, HighC: 14, LowC: 8, Level: domain.RiskLow}},
	}
	e := New([]domain.Provider{numericStorm()}, &stubReports{}, testLogger(), metrics,
		WithForecaster(&stubForecaster{forecast: forecast}), WithWeatherCache(cache))

	report := e.Update(context.Background(), 47.6, -122.3, "")

	assert.Equal(t, domain.RiskCritical, report.Current.Level)
	assert.Equal(t, evalTime, report.LastUpdated)
	if diff := cmp.Diff(forecast, report.Forecast); diff != "" {
		t.Errorf("forecast mismatch (-want +got):\n%s", diff)
	}

	latest, ok, err := cache.Latest(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, report.Current.ID, latest.Current.ID)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.CacheWrites.WithLabelValues("success")), 0)
}

func TestUpdate_ForecastFailureYieldsEmptyForecast(t *testing.T) {
	freezeClock(t)
	e := New([]domain.Provider{numericStorm()}, &stubReports{}, testLogger(), observability.NewMetricsForTesting(),
		WithForecaster(&stubForecaster{err: domain.ErrProviderUnavailable}))

	report := e.Update(context.Background(), 1, 2, "")

	assert.NotNil(t, report.Forecast.Hourly)
	assert.NotNil(t, report.Forecast.Daily)
	assert.Empty(t, report.Forecast.Hourly)
	assert.Empty(t, report.Forecast.Daily)
	assert.Equal(t, domain.RiskCritical, report.Current.Level)
}

func TestUpdate_CacheFailureIsAbsorbed(t *testing.T) {
	freezeClock(t)
	metrics := observability.NewMetricsForTesting()
	e := New([]domain.Provider{numericStorm()}, &stubReports{}, testLogger(), metrics, WithWeatherCache(failingCache{}))

	report := e.Update(context.Background(), 1, 2, "")

	assert.Equal(t, 90, report.Current.Score)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.CacheWrites.WithLabelValues("error")), 0)
}

func TestUpdate_LastWriteWins(t *testing.T) {
	freezeClock(t)
	cache := memory.NewLatestCache()
	ow := numericStorm()
	nws := narrativeFlood()
	e := New([]domain.Provider{ow, nws}, &stubReports{}, testLogger(), observability.NewMetricsForTesting(), WithWeatherCache(cache))

	e.Update(context.Background(), 1, 2, domain.ProviderOpenWeather)
	second := e.Update(context.Background(), 3, 4, domain.ProviderNWS)

	latest, ok, err := cache.Latest(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, second.Current.ID, latest.Current.ID)
	assert.Equal(t, domain.OriginNarrative, latest.Current.Snapshot.Origin)
}
