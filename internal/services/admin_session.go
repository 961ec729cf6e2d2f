package services

import (
	"context"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

type adminSessionKey struct{}

// AdminSession is the signed-in admin identity carried through a request.
type AdminSession struct {
	UserID      string
	Email       string
	FullName    string
	AccessToken string
	ExpiresAt   time.Time
}

// Active reports whether the session exists and has not expired at now.
func (s AdminSession) Active(now time.Time) bool {
	if strings.TrimSpace(s.Email) == "" && strings.TrimSpace(s.UserID) == "" {
		return false
	}
	return s.ExpiresAt.IsZero() || now.Before(s.ExpiresAt)
}

// DisplayName prefers the metadata full name, then the e-mail local part.
func (s AdminSession) DisplayName() string {
	if name := strings.TrimSpace(s.FullName); name != "" {
		return name
	}
	local, _, _ := strings.Cut(s.Email, "@")
	if local = strings.TrimSpace(local); local != "" {
		return local
	}
	return "Admin"
}

// Initial is the upper-cased first letter of the display name, used as avatar.
func (s AdminSession) Initial() string {
	r, _ := utf8.DecodeRuneInString(s.DisplayName())
	if r == utf8.RuneError {
		return "A"
	}
	return string(unicode.ToUpper(r))
}

// WithAdminSession stores the admin session on ctx.
func WithAdminSession(ctx context.Context, session AdminSession) context.Context {
	return context.WithValue(ctx, adminSessionKey{}, session)
}

// AdminSessionFromContext returns the admin session attached to ctx, if any.
func AdminSessionFromContext(ctx context.Context) (AdminSession, bool) {
	if ctx == nil {
		return AdminSession{}, false
	}
	session, ok := ctx.Value(adminSessionKey{}).(AdminSession)
	return session, ok
}
