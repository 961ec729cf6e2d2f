package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"caritauyuk.id/catalog/internal/platform/supabase"
)

type stubAuthenticator struct {
	session   supabase.Session
	signInErr error
	signOut   error
	revoked   []string
}

func (s *stubAuthenticator) SignInWithPassword(context.Context, string, string) (supabase.Session, error) {
	return s.session, s.signInErr
}

func (s *stubAuthenticator) SignOut(_ context.Context, token string) error {
	s.revoked = append(s.revoked, token)
	return s.signOut
}

func TestRemoteSignIn(t *testing.T) {
	stub := &stubAuthenticator{session: supabase.Session{
		AccessToken: "remote-token",
		ExpiresIn:   3600,
		User: supabase.User{
			ID:           "u-1",
			Email:        "admin@caritauyuk.id",
			UserMetadata: map[string]any{"full_name": "Admin Satu"},
		},
	}}
	svc, err := NewRemoteAuthService(RemoteAuthDeps{
		Client:     stub,
		SessionTTL: 8 * time.Hour,
		Clock:      func() time.Time { return baseTime },
	})
	if err != nil {
		t.Fatalf("NewRemoteAuthService: %v", err)
	}

	session, err := svc.SignIn(context.Background(), " admin@caritauyuk.id ", "rahasia")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if session.AccessToken != "remote-token" || session.FullName != "Admin Satu" {
		t.Fatalf("unexpected session %+v", session)
	}
	if !session.ExpiresAt.Equal(baseTime.Add(time.Hour)) {
		t.Fatalf("expected token expiry to cap the session, got %v", session.ExpiresAt)
	}
}

func TestRemoteSignInErrors(t *testing.T) {
	stub := &stubAuthenticator{signInErr: &supabase.APIError{Status: 400, Code: "invalid_grant"}}
	svc, err := NewRemoteAuthService(RemoteAuthDeps{Client: stub})
	if err != nil {
		t.Fatalf("NewRemoteAuthService: %v", err)
	}

	if _, err := svc.SignIn(context.Background(), "", "x"); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
	if _, err := svc.SignIn(context.Background(), "a@b.c", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	stub.signInErr = &supabase.APIError{Status: 503}
	_, err = svc.SignIn(context.Background(), "a@b.c", "pw")
	if err == nil || errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected an outage error, got %v", err)
	}
}

func TestRemoteSignOutIgnoresUnauthorized(t *testing.T) {
	stub := &stubAuthenticator{signOut: &supabase.APIError{Status: 401}}
	svc, _ := NewRemoteAuthService(RemoteAuthDeps{Client: stub})

	if err := svc.SignOut(context.Background(), AdminSession{AccessToken: "t"}); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if len(stub.revoked) != 1 || stub.revoked[0] != "t" {
		t.Fatalf("expected token revocation, got %v", stub.revoked)
	}
	if err := svc.SignOut(context.Background(), AdminSession{}); err != nil {
		t.Fatalf("SignOut without token: %v", err)
	}
}

func TestLocalAuthRoundTrip(t *testing.T) {
	now := baseTime
	auth, err := NewLocalAuthService(LocalAuthDeps{
		Email:      "admin@caritauyuk.id",
		Password:   "rahasia",
		FullName:   "Admin Lokal",
		Secret:     []byte("0123456789abcdef0123456789abcdef"),
		SessionTTL: time.Hour,
		Clock:      func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewLocalAuthService: %v", err)
	}

	if _, err := auth.SignIn(context.Background(), "admin@caritauyuk.id", "salah"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	session, err := auth.SignIn(context.Background(), "ADMIN@caritauyuk.id", "rahasia")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if !session.ExpiresAt.Equal(baseTime.Add(time.Hour)) {
		t.Fatalf("unexpected expiry %v", session.ExpiresAt)
	}
	if got := TokenExpiry(session.AccessToken); !got.Equal(session.ExpiresAt) {
		t.Fatalf("TokenExpiry = %v, want %v", got, session.ExpiresAt)
	}

	verified, err := auth.Verify(context.Background(), session.AccessToken)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if verified.Email != "admin@caritauyuk.id" || verified.FullName != "Admin Lokal" {
		t.Fatalf("unexpected verified session %+v", verified)
	}

	now = baseTime.Add(2 * time.Hour)
	if _, err := auth.Verify(context.Background(), session.AccessToken); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected expired token to fail, got %v", err)
	}
	if _, err := auth.Verify(context.Background(), "not-a-token"); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected malformed token to fail, got %v", err)
	}
}

func TestLocalAuthRejectsForeignSecret(t *testing.T) {
	clock := func() time.Time { return baseTime }
	issuer, _ := NewLocalAuthService(LocalAuthDeps{Email: "a@b.c", Password: "p", Secret: []byte("one"), Clock: clock})
	verifier, _ := NewLocalAuthService(LocalAuthDeps{Email: "a@b.c", Password: "p", Secret: []byte("two"), Clock: clock})

	session, err := issuer.SignIn(context.Background(), "a@b.c", "p")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if _, err := verifier.Verify(context.Background(), session.AccessToken); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected signature mismatch to fail, got %v", err)
	}
}

func TestLocalAuthRequiresSecret(t *testing.T) {
	if _, err := NewLocalAuthService(LocalAuthDeps{Email: "a@b.c", Password: "p"}); err == nil {
		t.Fatal("expected error without secret")
	}
}

func TestRemoteTokenVerifier(t *testing.T) {
	live := signedToken(t, baseTime.Add(time.Hour))
	expired := signedToken(t, baseTime.Add(-time.Minute))
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/auth/v1/user" {
			http.NotFound(w, r)
			return
		}
		switch r.Header.Get("Authorization") {
		case "Bearer " + live:
			_, _ = w.Write([]byte(`{"id":"u1","email":"admin@caritauyuk.id","user_metadata":{"full_name":"Admin Satu"}}`))
		case "Bearer broken":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"code":401,"msg":"invalid JWT"}`))
		}
	}))
	defer srv.Close()

	client, err := supabase.NewClient(srv.URL, "anon-key")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	verifier, err := NewRemoteTokenVerifier(RemoteVerifierDeps{Client: client, Clock: func() time.Time { return baseTime }})
	if err != nil {
		t.Fatalf("NewRemoteTokenVerifier: %v", err)
	}

	session, err := verifier.Verify(context.Background(), live)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if session.UserID != "u1" || session.FullName != "Admin Satu" || session.AccessToken != live {
		t.Fatalf("unexpected session %+v", session)
	}
	if !session.ExpiresAt.Equal(baseTime.Add(time.Hour)) {
		t.Fatalf("unexpected expiry %v", session.ExpiresAt)
	}

	if _, err := verifier.Verify(context.Background(), "revoked"); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected revoked token to fail, got %v", err)
	}
	before := calls.Load()
	if _, err := verifier.Verify(context.Background(), expired); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected expired token to fail, got %v", err)
	}
	if _, err := verifier.Verify(context.Background(), ""); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected blank token to fail, got %v", err)
	}
	if calls.Load() != before {
		t.Fatalf("expired and blank tokens must not reach the server")
	}

	_, err = verifier.Verify(context.Background(), "broken")
	if err == nil || errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected an outage error, got %v", err)
	}
}

func TestRemoteTokenVerifierRequiresClient(t *testing.T) {
	if _, err := NewRemoteTokenVerifier(RemoteVerifierDeps{}); err == nil {
		t.Fatal("expected error without client")
	}
}

func signedToken(t *testing.T, expires time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(expires),
	}).SignedString([]byte("remote-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}
