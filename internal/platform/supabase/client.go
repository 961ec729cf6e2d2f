// Package supabase is a small REST client for the PostgREST and GoTrue endpoints of a Supabase project.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"caritauyuk.id/catalog/internal/platform/observability"
	"caritauyuk.id/catalog/internal/platform/requestctx"
)

const (
	defaultTimeout = 10 * time.Second
	restPrefix     = "rest/v1"
	authPrefix     = "auth/v1"
)

// ErrNotConfigured is returned when the client has no base URL or API key.
var ErrNotConfigured = errors.New("supabase: client not configured")

// Client issues REST calls against a Supabase project.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// Option customises the client.
type Option func(*Client)

// WithTimeout overrides the HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient swaps the underlying HTTP client (tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// NewClient constructs a client for the project at baseURL authenticated with apiKey.
func NewClient(baseURL, apiKey string, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  strings.TrimSpace(apiKey),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	if c.baseURL == "" || c.apiKey == "" {
		return nil, ErrNotConfigured
	}
	if _, err := url.Parse(c.baseURL); err != nil {
		return nil, fmt.Errorf("supabase: parse base url: %w", err)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// RPC invokes a Postgres function exposed at /rest/v1/rpc/{fn}. dest may be nil.
func (c *Client) RPC(ctx context.Context, fn string, args any, dest any) error {
	endpoint, err := url.JoinPath(c.baseURL, restPrefix, "rpc", fn)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, endpoint, args, nil, dest)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, headers http.Header, dest any) error {
	if c == nil {
		return ErrNotConfigured
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("supabase: encode body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.bearer(ctx))
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, values := range headers {
		req.Header.Del(key)
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	spanCtx, span := observability.StartClientSpan(ctx, "supabase", method, req.URL.Hostname(), req.Header)
	resp, err := c.http.Do(req.WithContext(spanCtx))
	if err != nil {
		observability.EndSpan(span, 0, err)
		return fmt.Errorf("supabase: %s %s: %w", method, redactPath(endpoint), err)
	}
	defer resp.Body.Close()
	observability.EndSpan(span, resp.StatusCode, nil)

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}
	if dest == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("supabase: decode response: %w", err)
	}
	return nil
}

// bearer prefers a signed-in user's token so row-level security sees the admin.
func (c *Client) bearer(ctx context.Context) string {
	if token := requestctx.AccessToken(ctx); token != "" {
		return token
	}
	return c.apiKey
}

func redactPath(endpoint string) string {
	if i := strings.IndexByte(endpoint, '?'); i >= 0 {
		return endpoint[:i]
	}
	return endpoint
}
