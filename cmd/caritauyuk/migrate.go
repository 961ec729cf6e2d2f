package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"caritauyuk.id/catalog/internal/platform/config"
	sqlitedb "caritauyuk.id/catalog/internal/platform/sqlite"
)

var errRemoteSchema = errors.New("the remote store schema is managed in deploy/supabase/schema.sql")

func newMigrateCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the local SQLite schema.",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations.",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.withMigrator(cmd.Context(), func(ctx context.Context, m *sqlitedb.Migrator) error {
					return m.Up(ctx)
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration.",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.withMigrator(cmd.Context(), func(ctx context.Context, m *sqlitedb.Migrator) error {
					return m.Down(ctx)
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version.",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.withMigrator(cmd.Context(), func(ctx context.Context, m *sqlitedb.Migrator) error {
					version, err := m.Version(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), version)
					return nil
				})
			},
		},
	)
	return cmd
}

func (c *cli) withMigrator(ctx context.Context, fn func(context.Context, *sqlitedb.Migrator) error) error {
	if c.cfg.Store.Driver != config.DriverSQLite {
		return errRemoteSchema
	}
	db, err := sqlitedb.Open(ctx, c.cfg.SQLite.Path)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			c.logger.Warn("sqlite close error", zap.Error(err))
		}
	}()
	migrator, err := sqlitedb.NewMigrator(db, c.logger)
	if err != nil {
		return err
	}
	return fn(ctx, migrator)
}
