package web

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"caritauyuk.id/catalog/internal/domain"
	"caritauyuk.id/catalog/internal/services"
)

func TestAdminRequiresSession(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.get(t, "/admin/")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/admin/login?next=%2Fadmin%2F", resp.Header.Get("Location"))
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	token := env.csrfToken(t, "/")
	resp, _ = env.postForm(t, "/admin/content", url.Values{
		"csrf_token": {token},
		"title":      {"Sisipan"},
		"category":   {"Film"},
	})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, 0, env.writes.writes)
}

func TestAdminWriteWithoutCSRFIsRejected(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	resp, _ := env.postForm(t, "/admin/content", url.Values{"title": {"X"}, "category": {"Film"}})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, 0, env.writes.writes)
}

func TestAdminLoginBlankCredentials(t *testing.T) {
	env := newTestEnv(t)

	token := env.csrfToken(t, "/admin/login")
	resp, body := env.postForm(t, "/admin/login", url.Values{
		"csrf_token": {token},
		"email":      {"  "},
		"password":   {""},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Email dan password tidak boleh kosong.", text(parseHTML(t, body).Find(".toast-error")))
}

func TestAdminLoginFlow(t *testing.T) {
	env := newTestEnv(t)

	token := env.csrfToken(t, "/admin/login")
	resp, body := env.postForm(t, "/admin/login", url.Values{
		"csrf_token": {token},
		"email":      {testAdminEmail},
		"password":   {"salah"},
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	doc := parseHTML(t, body)
	require.Equal(t, "Email atau password salah.", text(doc.Find(".toast-error")))
	require.Equal(t, testAdminEmail, mustAttr(t, doc.Find(`input[name="email"]`), "value"))

	resp, _ = env.postForm(t, "/admin/login", url.Values{
		"csrf_token": {token},
		"email":      {testAdminEmail},
		"password":   {testAdminPassword},
		"next":       {"https://evil.example.com/"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/admin/", resp.Header.Get("Location"))

	resp, body = env.get(t, "/admin/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc = parseHTML(t, body)
	require.Equal(t, "Siti Admin", text(doc.Find(".user-badge .name")))
	require.Equal(t, "S", text(doc.Find(".user-badge .avatar")))

	resp, _ = env.get(t, "/admin/login")
	require.Equal(t, http.StatusFound, resp.StatusCode)

	token = env.csrfToken(t, "/admin/")
	resp, _ = env.postForm(t, "/admin/logout", url.Values{"csrf_token": {token}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/admin/login?status=logged_out", resp.Header.Get("Location"))

	resp, body = env.get(t, "/admin/login?status=logged_out")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Anda telah logout.", text(parseHTML(t, body).Find(".notice")))

	resp, _ = env.get(t, "/admin/")
	require.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestAdminLoginHonoursNext(t *testing.T) {
	env := newTestEnv(t)
	token := env.csrfToken(t, "/admin/login?next=%2Fadmin%2Fcontent%2Fnew")
	resp, _ := env.postForm(t, "/admin/login", url.Values{
		"csrf_token": {token},
		"email":      {testAdminEmail},
		"password":   {testAdminPassword},
		"next":       {"/admin/content/new"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/admin/content/new", resp.Header.Get("Location"))
}

func TestAdminCreateListAndDelete(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, domain.Content{Title: "Lama", Category: domain.CategoryHealth, Likes: 2, CreatedAt: testNow.Add(-24 * time.Hour)})
	env.login(t)

	token := env.csrfToken(t, "/admin/content/new")
	resp, _ := env.postForm(t, "/admin/content", url.Values{
		"csrf_token":    {token},
		"title":         {"  Belajar Go  "},
		"category":      {"Teknologi"},
		"year":          {"2024"},
		"rating":        {"8,5"},
		"tags":          {"go, backend, , go"},
		"youtube_id":    {"https://www.youtube.com/watch?v=dQw4w9WgXcQ"},
		"thumbnail_url": {""},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/admin/", resp.Header.Get("Location"))
	require.Equal(t, 1, env.writes.writes)

	resp, body := env.get(t, "/admin/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := parseHTML(t, body)
	require.Equal(t, "Konten berhasil ditambahkan!", text(doc.Find(".toast-success")))

	rows := doc.Find(".admin-table tbody tr")
	require.Equal(t, 2, rows.Length())
	require.Equal(t, "Belajar Go", text(rows.First().Find("td.title")))
	require.Equal(t, "2024", text(rows.First().Find("td.year")))
	require.Equal(t, "0", text(rows.First().Find("td.likes")))
	require.Equal(t, "Lama", text(rows.Eq(1).Find("td.title")))
	require.Equal(t, "28/02/2025", text(rows.Eq(1).Find("td.created")))

	created, err := env.registry.Content().FindByID(context.Background(), mustAttr(t, rows.First(), "data-id"))
	require.NoError(t, err)
	require.Equal(t, "dQw4w9WgXcQ", created.YouTubeID)
	require.Equal(t, []string{"go", "backend"}, created.Tags)
	require.NotNil(t, created.Rating)
	require.InDelta(t, 8.5, *created.Rating, 0.001)

	_, body = env.get(t, "/admin/")
	require.Empty(t, text(parseHTML(t, body).Find(".toast-success")), "flash is shown once")

	resp, _ = env.postForm(t, "/admin/content/"+created.ID+"/delete", url.Values{"csrf_token": {token}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	_, body = env.get(t, "/admin/")
	doc = parseHTML(t, body)
	require.Equal(t, "Konten berhasil dihapus.", text(doc.Find(".toast-success")))
	require.Equal(t, 1, doc.Find(".admin-table tbody tr[data-id]").Length())
}

func TestAdminCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	token := env.csrfToken(t, "/admin/content/new")

	resp, body := env.postForm(t, "/admin/content", url.Values{
		"csrf_token": {token},
		"title":      {"   "},
		"category":   {"Film"},
		"rating":     {"sepuluh"},
		"year":       {"1700"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Equal(t, 0, env.writes.writes)

	doc := parseHTML(t, body)
	for _, field := range []string{"title", "rating", "year"} {
		require.Equal(t, 1, doc.Find(`p.field-error[data-field="`+field+`"]`).Length(), field)
	}
	require.Equal(t, "Rating harus berupa angka.", text(doc.Find(`p.field-error[data-field="rating"]`)))
	require.Equal(t, "sepuluh", mustAttr(t, doc.Find(`input[name="rating"]`), "value"))
}

func TestAdminEditAndUpdate(t *testing.T) {
	env := newTestEnv(t)
	rows := env.seed(t, domain.Content{Title: "Asli", Category: domain.CategoryFilm, Year: intPtr(2010), Likes: 7, CreatedAt: testNow})
	id := rows[0].ID
	env.login(t)

	resp, body := env.get(t, "/admin/content/"+id+"/edit")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := parseHTML(t, body)
	require.Equal(t, "Asli", mustAttr(t, doc.Find(`input[name="title"]`), "value"))
	require.Equal(t, "2010", mustAttr(t, doc.Find(`input[name="year"]`), "value"))
	require.Equal(t, "/admin/content/"+id, mustAttr(t, doc.Find(".admin-form form"), "action"))

	token := env.csrfToken(t, "/admin/content/"+id+"/edit")
	resp, _ = env.postForm(t, "/admin/content/"+id, url.Values{
		"csrf_token": {token},
		"title":      {"Baru"},
		"category":   {"Film"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	updated, err := env.registry.Content().FindByID(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, "Baru", updated.Title)
	require.Nil(t, updated.Year)
	require.EqualValues(t, 7, updated.Likes)
	require.True(t, updated.CreatedAt.Equal(testNow))

	resp, _ = env.get(t, "/admin/content/hilang/edit")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

type switchableVerifier struct {
	inner services.TokenVerifier
	err   error
}

func (v *switchableVerifier) Verify(ctx context.Context, token string) (services.AdminSession, error) {
	if v.err != nil {
		return services.AdminSession{}, v.err
	}
	return v.inner.Verify(ctx, token)
}

func TestAdminTokenRevokedServerSide(t *testing.T) {
	verifier := &switchableVerifier{}
	env := newTestEnv(t, func(cfg *Config) {
		verifier.inner = cfg.Verifier
		cfg.Verifier = verifier
	})
	env.login(t)

	resp, _ := env.get(t, "/admin/")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	verifier.err = services.ErrNotAuthenticated
	resp, _ = env.get(t, "/admin/")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/admin/login?next=%2Fadmin%2F", resp.Header.Get("Location"))

	verifier.err = errors.New("auth server unavailable")
	resp, _ = env.get(t, "/admin/")
	require.Equal(t, http.StatusFound, resp.StatusCode)

	verifier.err = nil
	resp, _ = env.get(t, "/admin/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
