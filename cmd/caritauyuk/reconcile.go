package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"caritauyuk.id/catalog/internal/jobs"
	"caritauyuk.id/catalog/internal/platform/observability"
)

func newReconcileCommand(c *cli) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Recount like records and repair drifted like counters.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := observability.WithLogger(cmd.Context(), c.logger)
			store, err := c.openBackend(ctx, true)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close(ctx) }()

			reconciler, err := newReconcileService(store, dryRun)
			if err != nil {
				return err
			}
			report, err := reconciler.Run(ctx)
			con := newConsole(cmd.OutOrStdout())
			for _, drift := range report.Drift {
				con.warn("%s: stored %d, actual %d", drift.ContentID, drift.Stored, drift.Actual)
			}
			if err != nil {
				con.fail("reconcile failed: %v", err)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d checked, %d repaired, %d drifted\n", report.Checked, report.Repaired, len(report.Drift))
			if report.Failed > 0 {
				return &jobs.PartialFailure{Failed: report.Failed, Checked: report.Checked}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report drift without rewriting counters")
	return cmd
}
