package web

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"

	"caritauyuk.id/catalog/internal/platform/httpx"
	"caritauyuk.id/catalog/internal/platform/observability"
	"caritauyuk.id/catalog/internal/platform/requestctx"
)

const (
	csrfCookieName = "ctyk_csrf"
	csrfFormField  = "csrf_token"
	csrfHeader     = "X-CSRF-Token"
	csrfTokenBytes = 32
)

var errCSRFEntropy = errors.New("csrf: random source exhausted")

type csrfContextKey struct{}

// CSRFConfig controls the double-submit cookie.
type CSRFConfig struct {
	CookiePath string
	MaxAge     time.Duration
	Secure     bool
}

type csrfGuard struct {
	path   string
	maxAge time.Duration
	secure bool
}

// CSRF issues a token cookie on every request and requires state-changing
// requests (the like toggle and every admin form) to echo it back in the
// X-CSRF-Token header or the csrf_token form field.
func CSRF(cfg CSRFConfig) func(http.Handler) http.Handler {
	g := csrfGuard{path: cfg.CookiePath, maxAge: cfg.MaxAge, secure: cfg.Secure}
	if g.path == "" {
		g.path = "/"
	}
	if g.maxAge <= 0 {
		g.maxAge = 24 * time.Hour
	}
	return g.wrap
}

func (g csrfGuard) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := g.token(w, r)
		if err != nil {
			requestctx.Logger(r.Context()).Error("csrf token generation failed")
			httpx.WriteError(r.Context(), w, httpx.NewError(httpx.CodeInternal, "csrf token unavailable", http.StatusInternalServerError))
			return
		}
		if mutates(r.Method) && !g.accepts(r, token) {
			requestctx.Logger(r.Context()).Info("csrf token rejected")
			if observability.WantsJSON(r) {
				httpx.WriteError(r.Context(), w, httpx.NewError(httpx.CodeCSRFInvalid, "Sesi formulir kedaluwarsa, muat ulang halaman.", http.StatusForbidden))
				return
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), csrfContextKey{}, token)))
	})
}

// token returns the cookie value, minting and setting a fresh one when absent.
func (g csrfGuard) token(w http.ResponseWriter, r *http.Request) (string, error) {
	if c, err := r.Cookie(csrfCookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}
	raw := securecookie.GenerateRandomKey(csrfTokenBytes)
	if raw == nil {
		return "", errCSRFEntropy
	}
	token := base64.RawURLEncoding.EncodeToString(raw)
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     g.path,
		HttpOnly: true,
		Secure:   g.secure || r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(g.maxAge / time.Second),
	})
	return token, nil
}

func (g csrfGuard) accepts(r *http.Request, token string) bool {
	submitted := r.Header.Get(csrfHeader)
	if submitted == "" {
		submitted = r.PostFormValue(csrfFormField)
	}
	return submitted != "" && subtle.ConstantTimeCompare([]byte(submitted), []byte(token)) == 1
}

// CSRFTokenFromContext returns the token to embed in forms and the page meta tag.
func CSRFTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(csrfContextKey{}).(string)
	return token
}

func mutates(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return false
	}
	return true
}
