// Package engine orchestrates a flood risk assessment: provider selection,
// concurrent snapshot and community report retrieval, scoring, and the
// conservative fallback used when live weather cannot be obtained.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
)

// ReportFinder returns community reports near a coordinate. Implementations
// absorb their own storage failures.
type ReportFinder interface {
	NearbyReports(ctx context.Context, lat, lng, radiusKm float64) []domain.UserReport
}

// Engine runs assessments against a set of weather providers.
type Engine struct {
	providers   map[domain.ProviderKind]domain.Provider
	defaultKind domain.ProviderKind
	reports     ReportFinder
	forecaster  domain.Forecaster
	cache       domain.WeatherCache
	radiusKm    float64
	rnd         domain.Rand
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithDefaultProvider sets the provider used for empty or unknown kinds.
func WithDefaultProvider(kind domain.ProviderKind) Option {
	return func(e *Engine) { e.defaultKind = kind }
}

// WithForecaster enables forecasts in Update.
func WithForecaster(f domain.Forecaster) Option {
	return func(e *Engine) { e.forecaster = f }
}

// WithWeatherCache sets where Update stores the latest report.
func WithWeatherCache(c domain.WeatherCache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithRadius sets the community report search radius in kilometres.
func WithRadius(km float64) Option {
	return func(e *Engine) { e.radiusKm = km }
}

// WithRand sets the randomness source for fallback rainfall.
func WithRand(r domain.Rand) Option {
	return func(e *Engine) { e.rnd = r }
}

// New creates an Engine. The first provider is the default unless
// WithDefaultProvider says otherwise.
func New(providers []domain.Provider, reports ReportFinder, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Engine {
	e := &Engine{
		providers: make(map[domain.ProviderKind]domain.Provider, len(providers)),
		reports:   reports,
		radiusKm:  2,
		rnd:       domain.DefaultRand(),
		logger:    logger,
		metrics:   metrics,
	}
	for _, p := range providers {
		if e.defaultKind == "" {
			e.defaultKind = p.Kind()
		}
		e.providers[p.Kind()] = p
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DefaultProvider reports the kind used for empty or unknown requests.
func (e *Engine) DefaultProvider() domain.ProviderKind { return e.defaultKind }

// Assess produces a risk assessment for a coordinate. It never fails: provider
// errors yield the fallback assessment and report store errors yield no reports.
func (e *Engine) Assess(ctx context.Context, lat, lng float64, kind domain.ProviderKind) domain.RiskAssessment {
	start := time.Now()
	kind, provider := e.selectProvider(kind)
	log := e.logger.With("lat", lat, "lng", lng, "provider", kind)
	log.Debug("assessment state", "state", "fetching")

	var (
		snap    domain.WeatherSnapshot
		reports []domain.UserReport
	)
	err := errNoProvider
	if provider != nil {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var ferr error
			snap, ferr = provider.FetchSnapshot(gctx, lat, lng)
			return ferr
		})
		g.Go(func() error {
			reports = e.reports.NearbyReports(gctx, lat, lng, e.radiusKm)
			return nil
		})
		err = g.Wait()
	}

	var a domain.RiskAssessment
	if err != nil {
		log.Warn("weather provider failed, using fallback assessment",
			"error", err, "reason", failureReason(err))
		log.Debug("assessment state", "state", "fallback")
		a = domain.FallbackAssessment(e.rnd, domain.Now())
		e.metrics.Assessments.WithLabelValues(string(kind), "fallback").Inc()
	} else {
		log.Debug("assessment state", "state", "scoring", "nearby_reports", len(reports))
		now := domain.Now()
		a = domain.Score(snap, domain.CommunityInfluence(reports, now))
		a.NearbyReports = reports
		a.AssessedAt = now
		e.metrics.Assessments.WithLabelValues(string(kind), "scored").Inc()
	}
	a.ID = uuid.NewString()
	a.Lat, a.Lng, a.Provider = lat, lng, kind

	e.metrics.RiskLevels.WithLabelValues(string(a.Level)).Inc()
	e.metrics.AssessmentDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
	log.Debug("assessment state", "state", "done",
		"assessment_id", a.ID, "score", a.Score, "risk_level", a.Level, "fallback", a.Fallback)
	return a
}

// Update assesses a coordinate, attaches a forecast, and stores the result as
// the latest weather report. Forecast and cache failures are logged, not returned.
func (e *Engine) Update(ctx context.Context, lat, lng float64, kind domain.ProviderKind) domain.WeatherReport {
	report := domain.WeatherReport{
		Current:  e.Assess(ctx, lat, lng, kind),
		Forecast: domain.Forecast{Hourly: []domain.HourlyForecast{}, Daily: []domain.DailyForecast{}},
	}

	if e.forecaster != nil {
		f, err := e.forecaster.FetchForecast(ctx, lat, lng)
		if err != nil {
			e.logger.Warn("forecast unavailable, continuing with empty forecast",
				"lat", lat, "lng", lng, "error", err)
		} else {
			report.Forecast = f
		}
	}
	report.LastUpdated = domain.Now()

	if e.cache != nil {
		if err := e.cache.PutLatest(ctx, report); err != nil {
			e.logger.Warn("weather cache write failed", "error", err, "assessment_id", report.Current.ID)
			e.metrics.CacheWrites.WithLabelValues("error").Inc()
		} else {
			e.metrics.CacheWrites.WithLabelValues("success").Inc()
		}
	}
	return report
}

var errNoProvider = errors.New("no provider configured")

func (e *Engine) selectProvider(kind domain.ProviderKind) (domain.ProviderKind, domain.Provider) {
	if p, ok := e.providers[kind]; ok {
		return kind, p
	}
	return e.defaultKind, e.providers[e.defaultKind]
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrProviderUnavailable):
		return "unavailable"
	case errors.Is(err, domain.ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, errNoProvider):
		return "unconfigured"
	default:
		return "unknown"
	}
}
