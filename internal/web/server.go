package web

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"caritauyuk.id/catalog/internal/platform/observability"
	"caritauyuk.id/catalog/internal/services"
	"caritauyuk.id/catalog/internal/session"
)

const defaultRequestTimeout = 30 * time.Second

// Config wires the services and presentation settings of the web application.
type Config struct {
	Catalog  services.CatalogService
	Likes    services.LikeService
	Admin    services.AdminService
	Auth     services.AuthService
	Verifier services.TokenVerifier

	Visitors *session.VisitorStore
	Sessions *session.Manager
	Logger   *zap.Logger

	SiteName         string
	DefaultThumbnail string
	BasePath         string
	SecureCookies    bool
	RequestTimeout   time.Duration
	Now              func() time.Time
}

type app struct {
	catalog  services.CatalogService
	likes    services.LikeService
	admin    services.AdminService
	auth     services.AuthService
	views    viewBuilder
	render   *renderer
	paths    pathBuilder
	siteName string
	now      func() time.Time
}

// NewHandler builds the chi router serving the public site, the JSON endpoints and the admin panel.
func NewHandler(cfg Config) (http.Handler, error) {
	if cfg.Catalog == nil || cfg.Likes == nil || cfg.Admin == nil || cfg.Auth == nil {
		return nil, errors.New("web: services are required")
	}
	if cfg.Visitors == nil || cfg.Sessions == nil {
		return nil, errors.New("web: session stores are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	siteName := cfg.SiteName
	if strings.TrimSpace(siteName) == "" {
		siteName = "Cari Tau Yuk"
	}

	paths := pathBuilder{base: strings.TrimRight(strings.TrimSpace(cfg.BasePath), "/")}
	rd, err := newRenderer(paths)
	if err != nil {
		return nil, err
	}
	static, err := staticHandler()
	if err != nil {
		return nil, err
	}

	a := &app{
		catalog: cfg.Catalog,
		likes:   cfg.Likes,
		admin:   cfg.Admin,
		auth:    cfg.Auth,
		views: viewBuilder{
			defaultThumbnail: cfg.DefaultThumbnail,
			paths:            paths,
			markdown:         newMarkdownRenderer(),
		},
		render:   rd,
		paths:    paths,
		siteName: siteName,
		now:      now,
	}

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(observability.TraceMiddleware())
	router.Use(chimw.RealIP)
	router.Use(observability.InjectLoggerMiddleware(logger))
	router.Use(session.VisitorMiddleware(cfg.Visitors))
	router.Use(observability.RequestLoggerMiddleware(visitorField))
	router.Use(observability.RecoveryMiddleware(logger))
	router.Use(chimw.Compress(5))
	router.Use(chimw.Timeout(timeout))
	router.NotFound(a.notFound)

	router.Get("/healthz", health)
	router.Handle("/static/*", http.StripPrefix("/static/", static))

	router.Group(func(r chi.Router) {
		r.Use(CSRF(CSRFConfig{CookiePath: paths.root(), Secure: cfg.SecureCookies}))

		r.Get("/", a.home)
		r.Get("/content/{id}", a.detail)
		r.Get("/detail.html", a.legacyDetail)
		r.With(noStore).Get("/api/content", a.apiContent)
		r.With(noStore).Post("/api/content/{id}/like", a.apiLike)

		r.Route("/admin", func(r chi.Router) {
			r.Use(noStore)
			r.Use(adminSessions(cfg.Sessions, cfg.Verifier, now))

			r.Get("/login", a.loginForm)
			r.Post("/login", a.loginSubmit)
			r.Post("/logout", a.logout)

			r.Group(func(r chi.Router) {
				r.Use(requireAdmin(paths))
				r.Get("/", a.adminList)
				r.Get("/content/new", a.adminNew)
				r.Post("/content", a.adminCreate)
				r.Get("/content/{id}/edit", a.adminEdit)
				r.Post("/content/{id}", a.adminUpdate)
				r.Post("/content/{id}/delete", a.adminDelete)
			})
		})
	})
	if paths.base == "" {
		return router, nil
	}
	root := chi.NewRouter()
	root.Mount(paths.base, router)
	return root, nil
}

func visitorField(r *http.Request) zap.Field {
	id := session.VisitorID(r.Context())
	if id == "" {
		return zap.Field{}
	}
	return zap.String("visitor", observability.SanitizeIdentifier(id))
}

func noStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
