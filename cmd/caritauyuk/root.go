package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"caritauyuk.id/catalog/internal/platform/config"
	"caritauyuk.id/catalog/internal/platform/observability"
	sqlitedb "caritauyuk.id/catalog/internal/platform/sqlite"
	"caritauyuk.id/catalog/internal/platform/supabase"
	"caritauyuk.id/catalog/internal/repositories"
	"caritauyuk.id/catalog/internal/repositories/postgrest"
	sqliterepo "caritauyuk.id/catalog/internal/repositories/sqlite"
)

// cli carries state shared by every subcommand once the root pre-run has loaded it.
type cli struct {
	configFile string
	envFile    string

	cfg    config.Config
	logger *zap.Logger
}

func newRootCommand() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:          "caritauyuk",
		Short:        "Cari Tau Yuk content catalog.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd.Context())
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&c.configFile, "config", "", "YAML config file (overrides CARITAU_CONFIG_FILE)")
	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "dotenv file layered under the process environment")

	root.AddCommand(
		newServeCommand(c),
		newMigrateCommand(c),
		newSeedCommand(c),
		newStatsCommand(c),
		newReconcileCommand(c),
	)
	return root
}

func (c *cli) setup(ctx context.Context) error {
	opts := []config.Option{config.WithEnvFile(c.envFile)}
	if strings.TrimSpace(c.configFile) != "" {
		opts = append(opts, config.WithConfigFile(c.configFile))
	}
	cfg, err := config.Load(ctx, opts...)
	if err != nil {
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			fmt.Fprintf(os.Stderr, "configuration invalid: %s\n", strings.Join(verr.Fields(), ", "))
		}
		return err
	}
	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("initialise logger: %w", err)
	}
	c.cfg = cfg
	c.logger = logger.Named("caritauyuk").With(zap.String("env", cfg.Environment))
	return nil
}

// backend is an opened content store.
type backend struct {
	registry repositories.Registry
	client   *supabase.Client
	db       *sql.DB
	// privileged is true when the remote client authenticates with the service key.
	privileged bool
}

func (b *backend) Close(ctx context.Context) error {
	if b == nil || b.registry == nil {
		return nil
	}
	return b.registry.Close(ctx)
}

var errServiceKeyRequired = errors.New("CARITAU_SUPABASE_SERVICE_KEY is required for this command")

// openBackend opens the configured store. privileged asks for the remote service key, which
// bypasses row-level security for maintenance commands.
func (c *cli) openBackend(ctx context.Context, privileged bool) (*backend, error) {
	switch c.cfg.Store.Driver {
	case config.DriverSQLite:
		db, err := sqlitedb.OpenAndMigrate(ctx, c.cfg.SQLite.Path, c.logger)
		if err != nil {
			return nil, err
		}
		registry, err := sqliterepo.NewRegistry(db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return &backend{registry: registry, db: db, privileged: true}, nil
	case config.DriverSupabase:
		key := c.cfg.Supabase.AnonKey
		if privileged {
			key = strings.TrimSpace(c.cfg.Supabase.ServiceKey)
			if key == "" {
				return nil, errServiceKeyRequired
			}
		}
		client, err := supabase.NewClient(c.cfg.Supabase.URL, key, supabase.WithTimeout(c.cfg.Supabase.Timeout))
		if err != nil {
			return nil, err
		}
		registry, err := postgrest.NewRegistry(client)
		if err != nil {
			return nil, err
		}
		return &backend{registry: registry, client: client, privileged: privileged}, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", c.cfg.Store.Driver)
	}
}
