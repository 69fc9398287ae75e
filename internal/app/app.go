// Package app assembles the service from configuration: providers, stores,
// the report aggregator and the engine. Both binaries share it.
package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/couchcryptid/flood-risk-service/internal/adapter/memory"
	"github.com/couchcryptid/flood-risk-service/internal/adapter/nws"
	"github.com/couchcryptid/flood-risk-service/internal/adapter/openweather"
	"github.com/couchcryptid/flood-risk-service/internal/adapter/postgres"
	"github.com/couchcryptid/flood-risk-service/internal/config"
	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/engine"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
	"github.com/couchcryptid/flood-risk-service/internal/report"
)

// Store is the persistence surface the service needs: report collections
// plus the latest-report slot.
type Store interface {
	domain.ReportStore
	domain.ReportWriter
	domain.WeatherCache
	report.Seeder
	Latest(ctx context.Context) (domain.WeatherReport, bool, error)
	CheckReadiness(ctx context.Context) error
	Close() error
}

// OpenStore returns the Postgres store when DATABASE_URL is set, otherwise an
// in-memory one. REPORTS_SEED_FILE is loaded into whichever is chosen.
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Store, error) {
	var s Store
	if cfg.DatabaseURL != "" {
		pg, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			_ = pg.Close()
			return nil, err
		}
		logger.Info("using postgres report store")
		s = pg
	} else {
		logger.Info("using in-memory report store")
		s = &memoryStore{ReportStore: memory.NewReportStore(), LatestCache: memory.NewLatestCache()}
	}

	if cfg.ReportsSeedFile != "" {
		n, err := report.SeedFile(ctx, s, cfg.ReportsSeedFile)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		logger.Info("report store seeded", "path", cfg.ReportsSeedFile, "records", n)
	}
	return s, nil
}

// Providers builds the configured weather providers and the forecaster. The
// numeric provider needs an API key and is skipped without one.
func Providers(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) ([]domain.Provider, domain.Forecaster) {
	var (
		providers  []domain.Provider
		forecaster domain.Forecaster
	)
	if cfg.OpenWeatherAPIKey != "" {
		ow := openweather.NewClient(cfg.OpenWeatherAPIKey, cfg.OpenWeatherBaseURL, cfg.ProviderTimeout, nil, logger, metrics)
		providers = append(providers, ow)
		forecaster = ow
	} else {
		logger.Warn("OPENWEATHER_API_KEY not set, numeric provider and forecasts disabled")
	}
	providers = append(providers, nws.NewClient(cfg.NWSBaseURL, cfg.NWSUserAgent, cfg.ProviderTimeout,
		cfg.NWSPointCacheSize, nil, logger, metrics))
	return providers, forecaster
}

// NewEngine wires providers, the report aggregator and the store into an
// engine. DEFAULT_PROVIDER is honoured when that provider is available.
func NewEngine(cfg *config.Config, store Store, logger *slog.Logger, metrics *observability.Metrics) *engine.Engine {
	providers, forecaster := Providers(cfg, logger, metrics)

	opts := []engine.Option{
		engine.WithRadius(cfg.ReportRadiusKm),
		engine.WithWeatherCache(store),
	}
	if forecaster != nil {
		opts = append(opts, engine.WithForecaster(forecaster))
	}
	if kind, ok := domain.ParseProviderKind(cfg.DefaultProvider); ok && hasProvider(providers, kind) {
		opts = append(opts, engine.WithDefaultProvider(kind))
	} else {
		logger.Warn("default provider unavailable, using first configured provider",
			"requested", cfg.DefaultProvider, "using", providers[0].Kind())
	}

	aggregator := report.NewAggregator(store, logger, metrics)
	return engine.New(providers, aggregator, logger, metrics, opts...)
}

func hasProvider(providers []domain.Provider, kind domain.ProviderKind) bool {
	for _, p := range providers {
		if p.Kind() == kind {
			return true
		}
	}
	return false
}

// Readiness reports ready only when every check passes.
type Readiness []interface {
	CheckReadiness(ctx context.Context) error
}

// CheckReadiness returns the joined errors of all failing checks.
func (r Readiness) CheckReadiness(ctx context.Context) error {
	var errs []error
	for _, c := range r {
		if err := c.CheckReadiness(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type memoryStore struct {
	*memory.ReportStore
	*memory.LatestCache
}

func (memoryStore) CheckReadiness(context.Context) error { return nil }
func (memoryStore) Close() error                         { return nil }

var (
	_ Store = (*memoryStore)(nil)
	_ Store = (*postgres.Store)(nil)
)
