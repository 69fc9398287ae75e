package main

import (
	"encoding/json"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/flood-risk-service/internal/app"
	"github.com/couchcryptid/flood-risk-service/internal/config"
	"github.com/couchcryptid/flood-risk-service/internal/engine"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
)

type rootOptions struct {
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "floodctl",
		Short: "Flood risk assessments from the command line",
		Long: `floodctl runs one-shot flood risk assessments against the live weather
providers, using the same environment configuration as the floodrisk service.
Results are written to stdout as JSON.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output to stderr")

	cmd.AddCommand(newAssessCmd(opts), newUpdateCmd(opts), newReportCmd(opts))
	return cmd
}

// session is what a subcommand needs to run against the configured stack.
type session struct {
	engine *engine.Engine
	store  app.Store
}

func openSession(cmd *cobra.Command, opts *rootOptions) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	metrics := observability.NewMetricsForTesting()

	store, err := app.OpenStore(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, err
	}
	return &session{engine: app.NewEngine(cfg, store, logger, metrics), store: store}, nil
}

func (s *session) Close() error { return s.store.Close() }

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
