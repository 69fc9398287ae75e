package main

import (
	"github.com/spf13/cobra"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

type locationFlags struct {
	lat, lng float64
	provider string
}

func (f *locationFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.lat, "lat", 0, "latitude in decimal degrees")
	cmd.Flags().Float64Var(&f.lng, "lng", 0, "longitude in decimal degrees")
	cmd.Flags().StringVar(&f.provider, "provider", "", "weather provider: openweather or nws (default from DEFAULT_PROVIDER)")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lng")
}

func (f *locationFlags) resolve() (domain.ProviderKind, error) {
	if err := domain.ValidateCoordinates(f.lat, f.lng); err != nil {
		return "", err
	}
	kind, _ := domain.ParseProviderKind(f.provider)
	return kind, nil
}

func newAssessCmd(opts *rootOptions) *cobra.Command {
	flags := &locationFlags{}
	cmd := &cobra.Command{
		Use:   "assess",
		Short: "Assess flood risk at a coordinate",
		Long:  `Fetch current weather and nearby community reports and print the scored risk assessment.`,
		Example: `  floodctl assess --lat 47.6062 --lng -122.3321
  floodctl assess --lat 29.7604 --lng -95.3698 --provider nws`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kind, err := flags.resolve()
			if err != nil {
				return err
			}
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			return writeJSON(cmd.OutOrStdout(), s.engine.Assess(cmd.Context(), flags.lat, flags.lng, kind))
		},
	}
	flags.register(cmd)
	return cmd
}

func newUpdateCmd(opts *rootOptions) *cobra.Command {
	flags := &locationFlags{}
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Assess a coordinate, attach a forecast, and store it as the latest report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kind, err := flags.resolve()
			if err != nil {
				return err
			}
			s, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			return writeJSON(cmd.OutOrStdout(), s.engine.Update(cmd.Context(), flags.lat, flags.lng, kind))
		},
	}
	flags.register(cmd)
	return cmd
}
