package web

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"caritauyuk.id/catalog/internal/domain"
	sqlitedb "caritauyuk.id/catalog/internal/platform/sqlite"
	"caritauyuk.id/catalog/internal/repositories"
	sqliterepo "caritauyuk.id/catalog/internal/repositories/sqlite"
	"caritauyuk.id/catalog/internal/services"
	"caritauyuk.id/catalog/internal/session"
)

const (
	testAdminEmail    = "admin@caritauyuk.id"
	testAdminPassword = "rahasia-admin"
	testThumbnail     = "https://img.example.com/default.jpg"
)

var testNow = time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	server   *httptest.Server
	client   *http.Client
	registry *sqliterepo.Registry
	writes   *countingContent
}

type envOption func(*Config)

func withCatalog(catalog services.CatalogService) envOption {
	return func(cfg *Config) { cfg.Catalog = catalog }
}

// countingContent counts write calls reaching the repository.
type countingContent struct {
	repositories.ContentRepository
	writes int
}

func (c *countingContent) Insert(ctx context.Context, content domain.Content) (domain.Content, error) {
	c.writes++
	return c.ContentRepository.Insert(ctx, content)
}

func (c *countingContent) Update(ctx context.Context, content domain.Content) (domain.Content, error) {
	c.writes++
	return c.ContentRepository.Update(ctx, content)
}

func (c *countingContent) Delete(ctx context.Context, id string) error {
	c.writes++
	return c.ContentRepository.Delete(ctx, id)
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := sqlitedb.OpenAndMigrate(ctx, filepath.Join(t.TempDir(), "web.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	seq := 0
	registry, err := sqliterepo.NewRegistry(db, sqliterepo.WithIDGenerator(func() string {
		seq++
		return fmt.Sprintf("c%d", seq)
	}))
	require.NoError(t, err)

	content := &countingContent{ContentRepository: registry.Content()}

	catalog, err := services.NewCatalogService(services.CatalogServiceDeps{Content: content})
	require.NoError(t, err)
	likes, err := services.NewLikeService(services.LikeServiceDeps{
		Content: content, Likes: registry.Likes(), Counters: registry.Counters(),
	})
	require.NoError(t, err)
	admin, err := services.NewAdminService(services.AdminServiceDeps{Content: content})
	require.NoError(t, err)
	auth, err := services.NewLocalAuthService(services.LocalAuthDeps{
		Email:    testAdminEmail,
		Password: testAdminPassword,
		FullName: "Siti Admin",
		Secret:   []byte("local-signing-secret-0123456789ab"),
	})
	require.NoError(t, err)

	hashKey := []byte("0123456789abcdef0123456789abcdef")
	visitors, err := session.NewVisitorStore(session.VisitorConfig{HashKey: hashKey})
	require.NoError(t, err)
	sessions, err := session.NewManager(session.Config{HashKey: hashKey})
	require.NoError(t, err)

	cfg := Config{
		Catalog:          catalog,
		Likes:            likes,
		Admin:            admin,
		Auth:             auth,
		Verifier:         auth,
		Visitors:         visitors,
		Sessions:         sessions,
		SiteName:         "Cari Tau Yuk",
		DefaultThumbnail: testThumbnail,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	handler, err := NewHandler(cfg)
	require.NoError(t, err)
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &testEnv{server: server, client: client, registry: registry, writes: content}
}

func (e *testEnv) seed(t *testing.T, rows ...domain.Content) []domain.Content {
	t.Helper()
	out := make([]domain.Content, 0, len(rows))
	for _, row := range rows {
		created, err := e.registry.Content().Insert(context.Background(), row)
		require.NoError(t, err)
		out = append(out, created)
	}
	return out
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := e.client.Get(e.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func (e *testEnv) postForm(t *testing.T, path string, form url.Values) (*http.Response, []byte) {
	t.Helper()
	resp, err := e.client.PostForm(e.server.URL+path, form)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func (e *testEnv) postJSON(t *testing.T, path, csrf string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, e.server.URL+path, bytes.NewReader(nil))
	require.NoError(t, err)
	req.Header.Set("Accept", "application/json")
	if csrf != "" {
		req.Header.Set("X-CSRF-Token", csrf)
	}
	resp, err := e.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

// csrfToken loads a page and returns the token published in its meta tag.
func (e *testEnv) csrfToken(t *testing.T, path string) string {
	t.Helper()
	_, body := e.get(t, path)
	token, ok := parseHTML(t, body).Find(`meta[name="csrf-token"]`).Attr("content")
	require.True(t, ok)
	require.NotEmpty(t, token)
	return token
}

func (e *testEnv) login(t *testing.T) {
	t.Helper()
	token := e.csrfToken(t, "/admin/login")
	resp, _ := e.postForm(t, "/admin/login", url.Values{
		"csrf_token": {token},
		"email":      {testAdminEmail},
		"password":   {testAdminPassword},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/admin/", resp.Header.Get("Location"))
}

func parseHTML(t testing.TB, body []byte) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func text(sel *goquery.Selection) string {
	return strings.TrimSpace(sel.Text())
}
