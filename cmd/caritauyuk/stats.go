package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"caritauyuk.id/catalog/internal/domain"
	"caritauyuk.id/catalog/internal/platform/observability"
	"caritauyuk.id/catalog/internal/services"
)

func newStatsCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print content and like totals per category.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := observability.WithLogger(cmd.Context(), c.logger)
			store, err := c.openBackend(ctx, false)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close(ctx) }()

			catalog, err := services.NewCatalogService(services.CatalogServiceDeps{Content: store.registry.Content()})
			if err != nil {
				return err
			}
			stats, err := catalog.Stats(ctx)
			if err != nil {
				return err
			}
			printStats(newConsole(cmd.OutOrStdout()), stats)
			return nil
		},
	}
}

func printStats(con *console, stats domain.ContentStats) {
	_, _ = con.bold.Fprintf(con.out, "%-12s %8s %8s\n", "Kategori", "Konten", "Likes")
	for _, category := range domain.Categories() {
		row := stats.PerCategory[category]
		_, _ = con.cyan.Fprintf(con.out, "%-12s", category)
		fmt.Fprintf(con.out, " %8d %8d\n", row.Total, row.TotalLikes)
	}
	writeRule(con.out)
	_, _ = con.bold.Fprintf(con.out, "%-12s %8d %8d\n", "Total", stats.Total, stats.TotalLikes)
}

func writeRule(w io.Writer) {
	fmt.Fprintln(w, "------------ -------- --------")
}
