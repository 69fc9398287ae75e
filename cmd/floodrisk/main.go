package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/flood-risk-service/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/flood-risk-service/internal/adapter/kafka"
	mqttadapter "github.com/couchcryptid/flood-risk-service/internal/adapter/mqtt"
	"github.com/couchcryptid/flood-risk-service/internal/app"
	"github.com/couchcryptid/flood-risk-service/internal/config"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
	"github.com/couchcryptid/flood-risk-service/internal/report"
	"github.com/couchcryptid/flood-risk-service/internal/watch"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open report store", "error", err)
		os.Exit(1)
	}

	eng := app.NewEngine(cfg, store, logger, metrics)
	aggregator := report.NewAggregator(store, logger, metrics)
	api := httpadapter.NewAPI(eng, store, store, aggregator, cfg.ReportRadiusKm, logger)

	readiness := app.Readiness{store}
	var closers []io.Closer
	var watcher *watch.Watcher

	if cfg.WatchSource != config.WatchNone {
		extractor, closer, err := newExtractor(ctx, cfg, logger)
		if err != nil {
			logger.Error("failed to start watch source", "source", cfg.WatchSource, "error", err)
			os.Exit(1)
		}
		writer := kafkaadapter.NewWriter(cfg, logger)
		closers = append(closers, closer, writer)

		watcher = watch.New(extractor, eng, writer, logger, metrics, cfg.BatchSize)
		readiness = append(readiness, watcher)
		logger.Info("location watch enabled", "source", cfg.WatchSource, "sink_topic", cfg.KafkaSinkTopic)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, readiness, api, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start watch loop.
	if watcher != nil {
		go func() {
			if err := watcher.Run(ctx); err != nil {
				logger.Error("watcher error", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	for _, c := range closers {
		if err := c.Close(); err != nil {
			logger.Error("close error", "error", err)
		}
	}
	if err := store.Close(); err != nil {
		logger.Error("report store close error", "error", err)
	}

	logger.Info("shutdown complete")
}

func newExtractor(ctx context.Context, cfg *config.Config, logger *slog.Logger) (watch.BatchExtractor, io.Closer, error) {
	switch cfg.WatchSource {
	case config.WatchMQTT:
		sub := mqttadapter.NewSubscriber(cfg, logger)
		if err := sub.Connect(ctx); err != nil {
			return nil, nil, err
		}
		return sub, sub, nil
	default:
		reader := kafkaadapter.NewReader(cfg, logger)
		return reader, reader, nil
	}
}
