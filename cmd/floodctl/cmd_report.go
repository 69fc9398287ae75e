package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/report"
)

func newReportCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Submit community flood reports",
	}

	var (
		status, severity, description string
		lat, lng                      float64
	)
	submit := &cobra.Command{
		Use:   "submit",
		Short: "Submit a direct user report to the configured store",
		Long: `Validate a direct user report and append it to the userReports collection.
Without DATABASE_URL the store is in-memory and the report is discarded on exit.`,
		Example: `  floodctl report submit --lat 47.6097 --lng -122.3422 --status danger --severity high \
    --description "Water over the curb on 1st Ave"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := json.Marshal(map[string]any{
				"status":      status,
				"severity":    severity,
				"lat":         lat,
				"lng":         lng,
				"description": description,
			})
			if err != nil {
				return fmt.Errorf("encode report: %w", err)
			}

			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			r, err := report.Submit(cmd.Context(), s.store, domain.CollectionUserReports, raw)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), r)
		},
	}
	submit.Flags().Float64Var(&lat, "lat", 0, "latitude in decimal degrees")
	submit.Flags().Float64Var(&lng, "lng", 0, "longitude in decimal degrees")
	submit.Flags().StringVar(&status, "status", "", "danger or safe")
	submit.Flags().StringVar(&severity, "severity", "low", "low, medium, high or critical")
	submit.Flags().StringVar(&description, "description", "", "free-text description")
	for _, name := range []string{"lat", "lng", "status"} {
		_ = submit.MarkFlagRequired(name)
	}

	cmd.AddCommand(submit)
	return cmd
}
