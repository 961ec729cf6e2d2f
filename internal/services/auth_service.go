package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"caritauyuk.id/catalog/internal/platform/requestctx"
	"caritauyuk.id/catalog/internal/platform/supabase"
)

const (
	defaultAdminTTL = 8 * time.Hour
	localIssuer     = "caritauyuk-local"
)

// PasswordAuthenticator is the subset of the remote auth API used for admin sign-in.
type PasswordAuthenticator interface {
	SignInWithPassword(ctx context.Context, email, password string) (supabase.Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

// TokenVerifier checks an admin access token on every request.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (AdminSession, error)
}

// RemoteAuthDeps configures sign-in against the remote auth endpoint.
type RemoteAuthDeps struct {
	Client     PasswordAuthenticator
	SessionTTL time.Duration
	Clock      func() time.Time
}

type remoteAuthService struct {
	client PasswordAuthenticator
	ttl    time.Duration
	clock  func() time.Time
}

// NewRemoteAuthService signs admins in with e-mail and password against the store's auth API.
func NewRemoteAuthService(deps RemoteAuthDeps) (AuthService, error) {
	if deps.Client == nil {
		return nil, errors.New("auth service: client is not configured")
	}
	return &remoteAuthService{
		client: deps.Client,
		ttl:    ttlOrDefault(deps.SessionTTL),
		clock:  clockOrNow(deps.Clock),
	}, nil
}

func (s *remoteAuthService) SignIn(ctx context.Context, email, password string) (AdminSession, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return AdminSession{}, ErrMissingCredentials
	}
	grant, err := s.client.SignInWithPassword(ctx, email, password)
	if err != nil {
		if supabase.IsUnauthorized(err) {
			requestctx.Logger(ctx).Info("admin sign-in rejected")
			return AdminSession{}, ErrInvalidCredentials
		}
		return AdminSession{}, fmt.Errorf("auth service: sign in: %w", err)
	}

	now := s.clock()
	expires := now.Add(s.ttl)
	if tokenExpiry := grant.Expiry(now); !tokenExpiry.IsZero() && tokenExpiry.Before(expires) {
		expires = tokenExpiry
	} else if exp := TokenExpiry(grant.AccessToken); !exp.IsZero() && exp.Before(expires) {
		expires = exp
	}

	userEmail := grant.User.Email
	if userEmail == "" {
		userEmail = email
	}
	return AdminSession{
		UserID:      grant.User.ID,
		Email:       userEmail,
		FullName:    grant.User.FullName(),
		AccessToken: grant.AccessToken,
		ExpiresAt:   expires,
	}, nil
}

// SignOut revokes the remote token. A token the server already forgot is not an error.
func (s *remoteAuthService) SignOut(ctx context.Context, session AdminSession) error {
	if session.AccessToken == "" {
		return nil
	}
	if err := s.client.SignOut(ctx, session.AccessToken); err != nil && !supabase.IsUnauthorized(err) {
		requestctx.Logger(ctx).Warn("admin sign-out failed", zap.Error(err))
		return err
	}
	return nil
}

// UserLookup resolves the user behind a remote access token.
type UserLookup interface {
	GetUser(ctx context.Context, accessToken string) (supabase.User, error)
}

// RemoteVerifierDeps configures token checks against the remote auth endpoint.
type RemoteVerifierDeps struct {
	Client UserLookup
	Clock  func() time.Time
}

type remoteTokenVerifier struct {
	client UserLookup
	clock  func() time.Time
}

// NewRemoteTokenVerifier asks the auth server who owns a token, so revoked sessions stop
// working before their cookie lapses.
func NewRemoteTokenVerifier(deps RemoteVerifierDeps) (TokenVerifier, error) {
	if deps.Client == nil {
		return nil, errors.New("token verifier: client is not configured")
	}
	return &remoteTokenVerifier{client: deps.Client, clock: clockOrNow(deps.Clock)}, nil
}

func (v *remoteTokenVerifier) Verify(ctx context.Context, token string) (AdminSession, error) {
	if strings.TrimSpace(token) == "" {
		return AdminSession{}, ErrNotAuthenticated
	}
	expires := TokenExpiry(token)
	if !expires.IsZero() && !v.clock().Before(expires) {
		return AdminSession{}, ErrNotAuthenticated
	}
	user, err := v.client.GetUser(ctx, token)
	switch {
	case err == nil:
	case supabase.IsUnauthorized(err), errors.Is(err, supabase.ErrMissingToken):
		return AdminSession{}, ErrNotAuthenticated
	default:
		return AdminSession{}, fmt.Errorf("token verifier: get user: %w", err)
	}
	if user.ID == "" {
		return AdminSession{}, ErrNotAuthenticated
	}
	return AdminSession{
		UserID:      user.ID,
		Email:       user.Email,
		FullName:    user.FullName(),
		AccessToken: token,
		ExpiresAt:   expires,
	}, nil
}

// LocalAuthDeps configures the single configured admin used with the SQLite backend.
type LocalAuthDeps struct {
	Email      string
	Password   string
	FullName   string
	Secret     []byte
	SessionTTL time.Duration
	Clock      func() time.Time
}

type localAuthService struct {
	email    string
	password string
	fullName string
	secret   []byte
	ttl      time.Duration
	clock    func() time.Time
}

// LocalAuth is both the sign-in service and the token verifier for the local backend.
type LocalAuth interface {
	AuthService
	TokenVerifier
}

type adminClaims struct {
	Email    string `json:"email"`
	Role     string `json:"role"`
	FullName string `json:"full_name,omitempty"`
	jwt.RegisteredClaims
}

// NewLocalAuthService issues HS256 tokens for the configured admin credentials.
func NewLocalAuthService(deps LocalAuthDeps) (LocalAuth, error) {
	if len(deps.Secret) == 0 {
		return nil, errors.New("auth service: signing secret is required")
	}
	return &localAuthService{
		email:    strings.TrimSpace(deps.Email),
		password: deps.Password,
		fullName: strings.TrimSpace(deps.FullName),
		secret:   append([]byte(nil), deps.Secret...),
		ttl:      ttlOrDefault(deps.SessionTTL),
		clock:    clockOrNow(deps.Clock),
	}, nil
}

func (s *localAuthService) SignIn(ctx context.Context, email, password string) (AdminSession, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return AdminSession{}, ErrMissingCredentials
	}
	if s.email == "" || s.password == "" {
		return AdminSession{}, ErrInvalidCredentials
	}
	emailOK := subtle.ConstantTimeCompare([]byte(strings.ToLower(email)), []byte(strings.ToLower(s.email))) == 1
	passwordOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.password)) == 1
	if !emailOK || !passwordOK {
		requestctx.Logger(ctx).Info("admin sign-in rejected")
		return AdminSession{}, ErrInvalidCredentials
	}

	now := s.clock()
	expires := now.Add(s.ttl)
	claims := adminClaims{
		Email:    s.email,
		Role:     "authenticated",
		FullName: s.fullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    localIssuer,
			Subject:   s.email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return AdminSession{}, fmt.Errorf("auth service: sign token: %w", err)
	}
	return AdminSession{
		UserID:      s.email,
		Email:       s.email,
		FullName:    s.fullName,
		AccessToken: token,
		ExpiresAt:   expires.Truncate(time.Second),
	}, nil
}

func (s *localAuthService) SignOut(context.Context, AdminSession) error { return nil }

// Verify checks signature, issuer and expiry of a locally issued token.
func (s *localAuthService) Verify(_ context.Context, token string) (AdminSession, error) {
	var claims adminClaims
	// expiry is checked against the service clock below
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	parsed, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return AdminSession{}, ErrNotAuthenticated
	}
	if claims.Issuer != localIssuer || claims.ExpiresAt == nil || !s.clock().Before(claims.ExpiresAt.Time) {
		return AdminSession{}, ErrNotAuthenticated
	}
	return AdminSession{
		UserID:      claims.Subject,
		Email:       claims.Email,
		FullName:    claims.FullName,
		AccessToken: token,
		ExpiresAt:   claims.ExpiresAt.Time,
	}, nil
}

// TokenExpiry reads the exp claim of a JWT without verifying it. Zero when absent or malformed.
func TokenExpiry(token string) time.Time {
	if strings.Count(token, ".") != 2 {
		return time.Time{}
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

func ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return defaultAdminTTL
	}
	return ttl
}

func clockOrNow(clock func() time.Time) func() time.Time {
	if clock == nil {
		clock = time.Now
	}
	return func() time.Time { return clock().UTC() }
}
