package session

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"caritauyuk.id/catalog/internal/platform/requestctx"
)

const (
	// VisitorCookieName holds the anonymous visitor token.
	VisitorCookieName = "ctyk_session"
	visitorPrefix     = "session_"
	visitorLifetime   = 10 * 365 * 24 * time.Hour
)

type visitorContextKey struct{}

// VisitorConfig controls the anonymous visitor cookie.
type VisitorConfig struct {
	HashKey  []byte
	BlockKey []byte
	Secure   bool
	Path     string
	Now      func() time.Time
	// NewID overrides token generation in tests.
	NewID func() string
}

// VisitorStore issues and reads the long-lived anonymous visitor token used for likes.
type VisitorStore struct {
	codec  *securecookie.SecureCookie
	secure bool
	path   string
	now    func() time.Time
	newID  func() string
}

// NewVisitorStore builds a store signing cookies with the configured keys.
func NewVisitorStore(cfg VisitorConfig) (*VisitorStore, error) {
	if len(cfg.HashKey) == 0 {
		return nil, ErrInvalidConfig
	}
	codec := securecookie.New(cfg.HashKey, cfg.BlockKey)
	codec.MaxAge(int(visitorLifetime / time.Second))
	path := cfg.Path
	if path == "" {
		path = "/"
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	newID := cfg.NewID
	if newID == nil {
		newID = NewVisitorID
	}
	return &VisitorStore{codec: codec, secure: cfg.Secure, path: path, now: now, newID: newID}, nil
}

// NewVisitorID returns "session_" followed by a lower-case ULID.
func NewVisitorID() string {
	return visitorPrefix + strings.ToLower(ulid.Make().String())
}

// GetOrCreate returns the visitor id carried by r, issuing a new cookie when the cookie is
// missing or fails verification. It never fails; a client that drops cookies gets a fresh id
// on every request.
func (s *VisitorStore) GetOrCreate(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(VisitorCookieName); err == nil {
		var id string
		if err := s.codec.Decode(VisitorCookieName, cookie.Value, &id); err == nil && strings.HasPrefix(id, visitorPrefix) {
			return id
		}
		requestctx.Logger(r.Context()).Debug("visitor cookie rejected")
	}

	id := s.newID()
	encoded, err := s.codec.Encode(VisitorCookieName, id)
	if err != nil {
		requestctx.Logger(r.Context()).Warn("visitor cookie encode failed", zap.Error(err))
		return id
	}
	http.SetCookie(w, &http.Cookie{
		Name:     VisitorCookieName,
		Value:    encoded,
		Path:     s.path,
		Expires:  s.now().Add(visitorLifetime).UTC(),
		MaxAge:   int(visitorLifetime / time.Second),
		Secure:   s.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// VisitorMiddleware attaches the visitor id to the request context.
func VisitorMiddleware(store *VisitorStore) func(http.Handler) http.Handler {
	if store == nil {
		panic("visitor store is required")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := store.GetOrCreate(w, r)
			next.ServeHTTP(w, r.WithContext(WithVisitorID(r.Context(), id)))
		})
	}
}

// WithVisitorID stores id on ctx.
func WithVisitorID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, visitorContextKey{}, id)
}

// VisitorID returns the visitor id attached by VisitorMiddleware, or "".
func VisitorID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(visitorContextKey{}).(string)
	return id
}
