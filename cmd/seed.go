package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/studyrank/internal/adapters/repository"
)

func seedCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a YAML dataset into the database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := setup(cmd, os.Stderr)
			if err != nil {
				return err
			}
			ds, err := repository.LoadDataset(file)
			if err != nil {
				return err
			}

			// The seed file from config is not applied here; --file wins.
			cfg.SeedFile = ""
			svc, err := newService(cmd.Context(), cfg, false)
			if err != nil {
				return err
			}
			if err := svc.Start(cmd.Context()); err != nil {
				return err
			}
			defer svc.Stop()

			stats, err := svc.Seed(cmd.Context(), ds)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(),
				"seeded %d groups, %d metrics, %d countries, %d universities, %d values, %d preference labels\n",
				stats.Groups, stats.Metrics, stats.Countries, stats.Universities, stats.Values, stats.Preferences)
			return err
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "dataset YAML file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
