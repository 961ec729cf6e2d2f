package supabase

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"caritauyuk.id/catalog/internal/platform/requestctx"
)

// ErrMissingToken is returned when an auth call needs a user token and none was given.
var ErrMissingToken = errors.New("supabase: missing access token")

// User mirrors the subset of the GoTrue user object the site reads.
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	Role         string         `json:"role"`
	UserMetadata map[string]any `json:"user_metadata"`
}

// FullName returns user_metadata.full_name when present.
func (u User) FullName() string {
	if u.UserMetadata == nil {
		return ""
	}
	if name, ok := u.UserMetadata["full_name"].(string); ok {
		return strings.TrimSpace(name)
	}
	return ""
}

// Session is the token grant returned by a successful sign-in.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// Expiry returns the absolute expiry, derived from expires_in when expires_at is absent.
func (s Session) Expiry(now time.Time) time.Time {
	if s.ExpiresAt > 0 {
		return time.Unix(s.ExpiresAt, 0).UTC()
	}
	if s.ExpiresIn > 0 {
		return now.Add(time.Duration(s.ExpiresIn) * time.Second).UTC()
	}
	return time.Time{}
}

// SignInWithPassword exchanges e-mail and password for a session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (Session, error) {
	endpoint, err := url.JoinPath(c.baseURL, authPrefix, "token")
	if err != nil {
		return Session{}, err
	}
	endpoint += "?grant_type=password"

	body := map[string]string{
		"email":    strings.TrimSpace(email),
		"password": password,
	}
	var session Session
	// Sign-in always goes out with the project key, never a stale user token.
	if err := c.do(withoutAccessToken(ctx), http.MethodPost, endpoint, body, nil, &session); err != nil {
		return Session{}, err
	}
	if session.AccessToken == "" {
		return Session{}, ErrMissingToken
	}
	return session, nil
}

// SignOut revokes the given access token.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	if strings.TrimSpace(accessToken) == "" {
		return ErrMissingToken
	}
	endpoint, err := url.JoinPath(c.baseURL, authPrefix, "logout")
	if err != nil {
		return err
	}
	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+accessToken)
	return c.do(ctx, http.MethodPost, endpoint, nil, headers, nil)
}

// GetUser resolves the user behind an access token.
func (c *Client) GetUser(ctx context.Context, accessToken string) (User, error) {
	if strings.TrimSpace(accessToken) == "" {
		return User{}, ErrMissingToken
	}
	endpoint, err := url.JoinPath(c.baseURL, authPrefix, "user")
	if err != nil {
		return User{}, err
	}
	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+accessToken)
	var user User
	if err := c.do(ctx, http.MethodGet, endpoint, nil, headers, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

func withoutAccessToken(ctx context.Context) context.Context {
	if requestctx.AccessToken(ctx) == "" {
		return ctx
	}
	return requestctx.WithAccessToken(ctx, "")
}
