package web

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"caritauyuk.id/catalog/internal/platform/requestctx"
	"caritauyuk.id/catalog/internal/services"
	"caritauyuk.id/catalog/internal/session"
)

// adminSessions loads the admin cookie, exposes a verified admin to the services layer and
// persists the cookie before the first byte of the response is written.
func adminSessions(manager *session.Manager, verifier services.TokenVerifier, now func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			logger := requestctx.Logger(ctx)

			sess, err := manager.Load(r)
			if errors.Is(err, session.ErrExpired) {
				logger.Info("admin session expired")
				sess = manager.New()
				sess.SetFlash("Sesi berakhir, silakan login kembali.")
			} else if err != nil || sess == nil {
				if err != nil {
					logger.Warn("admin session load failed", zap.Error(err))
				}
				sess = manager.New()
			}
			sess.Touch(now())

			ctx = session.WithSession(ctx, sess)
			if admin := sess.Admin(); admin != nil {
				adminSession := services.AdminSession{
					UserID:      admin.UserID,
					Email:       admin.Email,
					FullName:    admin.FullName,
					AccessToken: admin.AccessToken,
					ExpiresAt:   admin.ExpiresAt,
				}
				if verifier != nil {
					verified, err := verifier.Verify(ctx, admin.AccessToken)
					switch {
					case errors.Is(err, services.ErrNotAuthenticated):
						logger.Info("admin token rejected")
						adminSession = services.AdminSession{}
					case err != nil:
						logger.Warn("admin token verification failed", zap.Error(err))
						adminSession = services.AdminSession{}
					default:
						// the cookie may carry a shorter session TTL than the token itself
						if !admin.ExpiresAt.IsZero() && (verified.ExpiresAt.IsZero() || verified.ExpiresAt.After(admin.ExpiresAt)) {
							verified.ExpiresAt = admin.ExpiresAt
						}
						adminSession = verified
					}
				}
				if adminSession.Active(now()) {
					ctx = services.WithAdminSession(ctx, adminSession)
				}
			}

			sw := &sessionWriter{ResponseWriter: w, save: func() {
				if err := manager.Save(w, sess); err != nil {
					logger.Error("admin session save failed", zap.Error(err))
				}
			}}
			next.ServeHTTP(sw, r.WithContext(ctx))
			sw.flush()
		})
	}
}

// requireAdmin redirects to the login page when no live admin session is present.
func requireAdmin(paths pathBuilder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := services.AdminSessionFromContext(r.Context()); !ok {
				target := paths.join("admin", "login") + "?next=" + url.QueryEscape(r.URL.RequestURI())
				http.Redirect(w, r, target, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// sessionWriter saves the session cookie exactly once, right before headers are sent.
type sessionWriter struct {
	http.ResponseWriter
	save  func()
	saved bool
}

func (w *sessionWriter) flush() {
	if !w.saved {
		w.saved = true
		w.save()
	}
}

func (w *sessionWriter) WriteHeader(status int) {
	w.flush()
	w.ResponseWriter.WriteHeader(status)
}

func (w *sessionWriter) Write(b []byte) (int, error) {
	w.flush()
	return w.ResponseWriter.Write(b)
}

func (w *sessionWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
