package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"caritauyuk.id/catalog/internal/jobs"
	"caritauyuk.id/catalog/internal/platform/config"
	"caritauyuk.id/catalog/internal/services"
	"caritauyuk.id/catalog/internal/session"
	"caritauyuk.id/catalog/internal/web"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the public site and admin panel.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return c.serve(ctx)
		},
	}
}

func (c *cli) serve(ctx context.Context) error {
	cfg := c.cfg
	logger := c.logger

	store, err := c.openBackend(ctx, false)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			logger.Warn("store close error", zap.Error(err))
		}
	}()

	hashKey, blockKey := c.sessionKeys()

	catalog, err := services.NewCatalogService(services.CatalogServiceDeps{
		Content:      store.registry.Content(),
		RelatedLimit: cfg.Site.RelatedLimit,
	})
	if err != nil {
		return fmt.Errorf("catalog service: %w", err)
	}
	likes, err := services.NewLikeService(services.LikeServiceDeps{
		Content:  store.registry.Content(),
		Likes:    store.registry.Likes(),
		Counters: store.registry.Counters(),
	})
	if err != nil {
		return fmt.Errorf("like service: %w", err)
	}
	admin, err := services.NewAdminService(services.AdminServiceDeps{Content: store.registry.Content()})
	if err != nil {
		return fmt.Errorf("admin service: %w", err)
	}

	var (
		auth     services.AuthService
		verifier services.TokenVerifier
	)
	switch cfg.Store.Driver {
	case config.DriverSQLite:
		secret := []byte(cfg.Supabase.JWTSecret)
		if len(secret) == 0 {
			secret = hashKey
		}
		local, err := services.NewLocalAuthService(services.LocalAuthDeps{
			Email:      cfg.Admin.Email,
			Password:   cfg.Admin.Password,
			Secret:     secret,
			SessionTTL: cfg.Admin.SessionTTL,
		})
		if err != nil {
			return fmt.Errorf("auth service: %w", err)
		}
		if cfg.Admin.Email == "" || cfg.Admin.Password == "" {
			logger.Warn("admin credentials not configured; admin login is disabled")
		}
		auth, verifier = local, local
	default:
		auth, err = services.NewRemoteAuthService(services.RemoteAuthDeps{
			Client:     store.client,
			SessionTTL: cfg.Admin.SessionTTL,
		})
		if err != nil {
			return fmt.Errorf("auth service: %w", err)
		}
		verifier, err = services.NewRemoteTokenVerifier(services.RemoteVerifierDeps{Client: store.client})
		if err != nil {
			return fmt.Errorf("token verifier: %w", err)
		}
	}

	visitors, err := session.NewVisitorStore(session.VisitorConfig{
		HashKey:  hashKey,
		BlockKey: blockKey,
		Secure:   cfg.Session.Secure,
		Path:     pathOrRoot(cfg.Site.BasePath),
	})
	if err != nil {
		return fmt.Errorf("visitor store: %w", err)
	}
	sessions, err := session.NewManager(session.Config{
		HashKey:      hashKey,
		BlockKey:     blockKey,
		CookiePath:   pathOrRoot(cfg.Site.BasePath),
		CookieSecure: cfg.Session.Secure,
		Lifetime:     cfg.Admin.SessionTTL,
	})
	if err != nil {
		return fmt.Errorf("session manager: %w", err)
	}

	handler, err := web.NewHandler(web.Config{
		Catalog:          catalog,
		Likes:            likes,
		Admin:            admin,
		Auth:             auth,
		Verifier:         verifier,
		Visitors:         visitors,
		Sessions:         sessions,
		Logger:           logger.Named("http"),
		SiteName:         cfg.Site.Name,
		DefaultThumbnail: cfg.Site.DefaultThumbnail,
		BasePath:         cfg.Site.BasePath,
		SecureCookies:    cfg.Session.Secure,
		RequestTimeout:   cfg.Server.WriteTimeout,
	})
	if err != nil {
		return fmt.Errorf("http handler: %w", err)
	}

	scheduler := jobs.NewScheduler(logger)
	maintenance, err := c.registerReconcileJob(ctx, scheduler, store)
	if err != nil {
		return err
	}
	if maintenance != nil {
		defer func() { _ = maintenance.Close(context.Background()) }()
	}
	scheduler.Start()

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr), zap.String("store", cfg.Store.Driver))
	serveErr := make(chan error, 1)
	go func() {
		serverLogger.Info("caritauyuk listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			scheduler.Stop(context.Background())
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	serverLogger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	scheduler.Stop(shutdownCtx)
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		return err
	}
	return nil
}

// registerReconcileJob schedules the like-counter reconciler. It reuses primary when that handle
// is already privileged and otherwise opens a service-key handle, which is returned for the
// caller to close. The result is nil when no extra handle was opened.
func (c *cli) registerReconcileJob(ctx context.Context, scheduler *jobs.Scheduler, primary *backend) (*backend, error) {
	spec := strings.TrimSpace(c.cfg.Jobs.ReconcileSpec)
	if spec == "" {
		c.logger.Info("like reconciler disabled")
		return nil, nil
	}

	store, opened := primary, (*backend)(nil)
	if !primary.privileged {
		var err error
		store, err = c.openBackend(ctx, true)
		if errors.Is(err, errServiceKeyRequired) {
			c.logger.Warn("like reconciler not scheduled: service key missing")
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("open maintenance store: %w", err)
		}
		opened = store
	}

	reconciler, err := newReconcileService(store, false)
	if err == nil {
		var job *jobs.ReconcileJob
		if job, err = jobs.NewReconcileJob(reconciler); err == nil {
			err = scheduler.AddJob(spec, job)
		}
	}
	if err != nil {
		_ = opened.Close(ctx)
		return nil, fmt.Errorf("schedule like reconciler: %w", err)
	}
	c.logger.Info("like reconciler scheduled", zap.String("spec", spec))
	return opened, nil
}

// sessionKeys returns cookie signing keys, generating throwaway ones outside production.
func (c *cli) sessionKeys() (hashKey, blockKey []byte) {
	hashKey = []byte(c.cfg.Session.HashKey)
	if len(hashKey) == 0 {
		c.logger.Warn("CARITAU_SESSION_HASH_KEY not set; using an ephemeral key, sessions reset on restart")
		hashKey = session.EphemeralKey(32)
	}
	if c.cfg.Session.BlockKey != "" {
		blockKey = []byte(c.cfg.Session.BlockKey)
	}
	return hashKey, blockKey
}

func pathOrRoot(base string) string {
	if base == "" {
		return "/"
	}
	return base
}

func newReconcileService(store *backend, dryRun bool) (services.ReconcileService, error) {
	return services.NewReconcileService(services.ReconcileServiceDeps{
		Content:  store.registry.Content(),
		Likes:    store.registry.Likes(),
		Counters: store.registry.Counters(),
		DryRun:   dryRun,
	})
}
