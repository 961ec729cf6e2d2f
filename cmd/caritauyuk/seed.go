package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"caritauyuk.id/catalog/internal/platform/observability"
	"caritauyuk.id/catalog/internal/seed"
	"caritauyuk.id/catalog/internal/services"
)

func newSeedCommand(c *cli) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert catalog rows from a YAML fixture file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := observability.WithLogger(cmd.Context(), c.logger)

			inputs, err := seed.LoadFile(file)
			if err != nil {
				return err
			}
			store, err := c.openBackend(ctx, true)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close(ctx) }()

			admin, err := services.NewAdminService(services.AdminServiceDeps{Content: store.registry.Content()})
			if err != nil {
				return err
			}
			seeder, err := seed.NewSeeder(admin, "")
			if err != nil {
				return err
			}
			report, err := seeder.Run(ctx, inputs)
			console := newConsole(cmd.OutOrStdout())
			for _, row := range report.Inserted {
				console.success("%s  %s", row.ID, row.Title)
			}
			for _, rejected := range report.Rejected {
				console.warn("fixture %d (%q): %v", rejected.Index, rejected.Title, rejected.Err)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d inserted, %d rejected\n", len(report.Inserted), len(report.Rejected))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "fixtures.yaml", "YAML fixture file")
	return cmd
}
