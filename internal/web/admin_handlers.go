package web

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"caritauyuk.id/catalog/internal/domain"
	"caritauyuk.id/catalog/internal/platform/requestctx"
	"caritauyuk.id/catalog/internal/services"
	"caritauyuk.id/catalog/internal/session"
)

const (
	flashCreated = "Konten berhasil ditambahkan!"
	flashUpdated = "Konten berhasil diupdate!"
	flashDeleted = "Konten berhasil dihapus."
	saveFailed   = "Gagal menyimpan: "
	deleteFailed = "Gagal menghapus: "
	loginFailed  = "Login gagal, coba beberapa saat lagi."
	loggedOut    = "Anda telah logout."

	loginRequired      = "Anda harus login sebagai admin"
	wrongCredentials   = "Email atau password salah."
	missingCredentials = "Email dan password tidak boleh kosong."
)

func (a *app) loginForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := services.AdminSessionFromContext(r.Context()); ok {
		http.Redirect(w, r, a.safeNext(r.URL.Query().Get("next")), http.StatusFound)
		return
	}
	page := loginPage{
		layoutData: a.layout(r, a.pageTitle("Login Admin")),
		Next:       r.URL.Query().Get("next"),
	}
	if r.URL.Query().Get("status") == "logged_out" {
		page.Message = loggedOut
	}
	if sess, ok := session.FromContext(r.Context()); ok {
		page.Flash = sess.PopFlash()
	}
	a.render.render(w, r, "admin_login", http.StatusOK, page)
}

func (a *app) loginSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	email := strings.TrimSpace(r.PostFormValue("email"))
	page := loginPage{
		layoutData: a.layout(r, a.pageTitle("Login Admin")),
		Email:      email,
		Next:       r.PostFormValue("next"),
	}

	admin, err := a.auth.SignIn(ctx, email, r.PostFormValue("password"))
	if err != nil {
		status := http.StatusUnauthorized
		switch {
		case errors.Is(err, services.ErrMissingCredentials):
			page.Error = missingCredentials
			status = http.StatusBadRequest
		case errors.Is(err, services.ErrInvalidCredentials):
			page.Error = wrongCredentials
		default:
			requestctx.Logger(ctx).Warn("admin sign-in failed", zap.Error(err))
			page.Error = loginFailed
			status = http.StatusBadGateway
		}
		a.render.render(w, r, "admin_login", status, page)
		return
	}

	if sess, ok := session.FromContext(ctx); ok {
		sess.SetAdmin(session.Admin{
			UserID:      admin.UserID,
			Email:       admin.Email,
			FullName:    admin.FullName,
			AccessToken: admin.AccessToken,
			ExpiresAt:   admin.ExpiresAt,
		})
	}
	requestctx.Logger(ctx).Info("admin signed in", zap.String("admin", admin.Email))
	http.Redirect(w, r, a.safeNext(page.Next), http.StatusSeeOther)
}

func (a *app) logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if admin, ok := services.AdminSessionFromContext(ctx); ok {
		if err := a.auth.SignOut(ctx, admin); err != nil {
			requestctx.Logger(ctx).Warn("admin sign-out failed", zap.Error(err))
		}
	}
	if sess, ok := session.FromContext(ctx); ok {
		sess.Destroy()
	}
	http.Redirect(w, r, a.paths.join("admin", "login")+"?status=logged_out", http.StatusSeeOther)
}

func (a *app) adminList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter := parseFilter(r.URL.Query())
	page := adminListPage{
		layoutData: a.layout(r, a.pageTitle("Admin")),
		Categories: categoryOptions(filter.Category, true),
		Category:   string(filter.Category),
		Search:     filter.Query,
		Rows:       []AdminRowView{},
	}
	if sess, ok := session.FromContext(ctx); ok {
		page.Flash = sess.PopFlash()
	}

	rows, err := a.catalog.Filter(ctx, filter)
	if err != nil {
		page.LoadFailed = true
		page.Error = loadFailedMessage
	}
	for _, row := range rows {
		page.Rows = append(page.Rows, a.views.adminRow(row))
	}
	a.render.render(w, r, "admin_list", http.StatusOK, page)
}

func (a *app) adminNew(w http.ResponseWriter, r *http.Request) {
	a.renderForm(w, r, http.StatusOK, "", contentForm{}, nil, "")
}

func (a *app) adminCreate(w http.ResponseWriter, r *http.Request) {
	form := readContentForm(r)
	input, parseErr := form.input()
	if parseErr != nil {
		a.renderForm(w, r, http.StatusUnprocessableEntity, "", form, mergeValidation(parseErr, input), "")
		return
	}
	if _, err := a.admin.Create(r.Context(), input); err != nil {
		a.handleWriteError(w, r, "", form, err)
		return
	}
	a.flashRedirect(w, r, flashCreated)
}

func (a *app) adminEdit(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	content, err := a.catalog.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrContentNotFound) {
			a.notFound(w, r)
			return
		}
		a.flashRedirect(w, r, loadFailedMessage)
		return
	}
	a.renderForm(w, r, http.StatusOK, id, formFromContent(content), nil, "")
}

func (a *app) adminUpdate(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	form := readContentForm(r)
	input, parseErr := form.input()
	if parseErr != nil {
		a.renderForm(w, r, http.StatusUnprocessableEntity, id, form, mergeValidation(parseErr, input), "")
		return
	}
	if _, err := a.admin.Update(r.Context(), id, input); err != nil {
		a.handleWriteError(w, r, id, form, err)
		return
	}
	a.flashRedirect(w, r, flashUpdated)
}

func (a *app) adminDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	err := a.admin.Delete(ctx, id)
	switch {
	case err == nil:
		a.flashRedirect(w, r, flashDeleted)
	case errors.Is(err, services.ErrNotAuthenticated):
		a.redirectToLogin(w, r)
	default:
		a.flashRedirect(w, r, deleteFailed+userMessage(err))
	}
}

func (a *app) handleWriteError(w http.ResponseWriter, r *http.Request, id string, form contentForm, err error) {
	var verr *services.ValidationError
	switch {
	case errors.Is(err, services.ErrNotAuthenticated):
		a.redirectToLogin(w, r)
	case errors.As(err, &verr):
		a.renderForm(w, r, http.StatusUnprocessableEntity, id, form, verr, "")
	case errors.Is(err, services.ErrContentNotFound):
		a.notFound(w, r)
	default:
		a.renderForm(w, r, http.StatusBadGateway, id, form, nil, saveFailed+userMessage(err))
	}
}

func (a *app) renderForm(w http.ResponseWriter, r *http.Request, status int, id string, form contentForm, verr *services.ValidationError, failure string) {
	title := "Tambah Konten"
	action := a.paths.join("admin", "content")
	if id != "" {
		title = "Edit Konten"
		action = a.paths.join("admin", "content", id)
	}
	page := adminFormPage{
		layoutData: a.layout(r, a.pageTitle(title)),
		Action:     action,
		Editing:    id != "",
		Form:       form,
		Categories: categoryOptions(domain.Category(form.Category), false),
		Errors:     map[string]string{},
	}
	page.Error = failure
	if verr != nil {
		for _, f := range verr.Fields {
			page.Errors[f.Field] = f.Message
		}
	}
	a.render.render(w, r, "admin_form", status, page)
}

func (a *app) flashRedirect(w http.ResponseWriter, r *http.Request, message string) {
	if sess, ok := session.FromContext(r.Context()); ok {
		sess.SetFlash(message)
	}
	http.Redirect(w, r, a.paths.join("admin")+"/", http.StatusSeeOther)
}

func (a *app) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	if sess, ok := session.FromContext(r.Context()); ok {
		sess.SetFlash(loginRequired)
	}
	http.Redirect(w, r, a.paths.join("admin", "login"), http.StatusSeeOther)
}

// safeNext keeps post-login redirects on this site.
func (a *app) safeNext(next string) string {
	fallback := a.paths.join("admin") + "/"
	next = strings.TrimSpace(next)
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" {
		return fallback
	}
	return next
}

// userMessage strips transport detail from remote failures shown in toasts.
func userMessage(err error) string {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		return verr.Error()
	}
	if errors.Is(err, services.ErrContentNotFound) {
		return "konten tidak ditemukan"
	}
	return "layanan penyimpanan tidak tersedia"
}

// contentForm mirrors the admin form fields as submitted strings.
type contentForm struct {
	Category       string
	Title          string
	Year           string
	Duration       string
	Rating         string
	ThumbnailURL   string
	YouTubeID      string
	VideoURL       string
	Description    string
	Tags           string
	AffiliateURL   string
	AffiliateLabel string
	AffiliateDesc  string
	AffiliateBadge string
}

func readContentForm(r *http.Request) contentForm {
	v := func(key string) string { return strings.TrimSpace(r.PostFormValue(key)) }
	return contentForm{
		Category:       v("category"),
		Title:          v("title"),
		Year:           v("year"),
		Duration:       v("duration"),
		Rating:         v("rating"),
		ThumbnailURL:   v("thumbnail_url"),
		YouTubeID:      v("youtube_id"),
		VideoURL:       v("video_url"),
		Description:    r.PostFormValue("description"),
		Tags:           v("tags"),
		AffiliateURL:   v("affiliate_url"),
		AffiliateLabel: v("affiliate_label"),
		AffiliateDesc:  v("affiliate_desc"),
		AffiliateBadge: v("affiliate_badge"),
	}
}

func formFromContent(c domain.Content) contentForm {
	form := contentForm{
		Category:       string(c.Category),
		Title:          c.Title,
		Duration:       c.Duration,
		ThumbnailURL:   c.ThumbnailURL,
		YouTubeID:      c.YouTubeID,
		VideoURL:       c.VideoURL,
		Description:    c.Description,
		Tags:           strings.Join(c.Tags, ", "),
		AffiliateURL:   c.Affiliate.URL,
		AffiliateLabel: c.Affiliate.Label,
		AffiliateDesc:  c.Affiliate.Description,
		AffiliateBadge: c.Affiliate.Badge,
	}
	if c.Year != nil {
		form.Year = strconv.Itoa(*c.Year)
	}
	if c.Rating != nil {
		form.Rating = strconv.FormatFloat(*c.Rating, 'f', -1, 64)
	}
	return form
}

// input converts the form to service input. Unparsable numbers are reported as field errors.
func (f contentForm) input() (services.ContentInput, *services.ValidationError) {
	input := services.ContentInput{
		Title:        f.Title,
		Category:     f.Category,
		Duration:     f.Duration,
		Description:  f.Description,
		Tags:         services.SplitTags(f.Tags),
		ThumbnailURL: f.ThumbnailURL,
		VideoURL:     f.VideoURL,
		YouTubeID:    f.YouTubeID,
		Affiliate: domain.Affiliate{
			URL:         f.AffiliateURL,
			Label:       f.AffiliateLabel,
			Description: f.AffiliateDesc,
			Badge:       f.AffiliateBadge,
		},
	}
	verr := &services.ValidationError{}
	if f.Year != "" {
		year, err := strconv.Atoi(f.Year)
		if err != nil {
			verr.Add("year", "Tahun harus berupa angka.")
		} else {
			input.Year = &year
		}
	}
	if f.Rating != "" {
		rating, err := strconv.ParseFloat(strings.Replace(f.Rating, ",", ".", 1), 64)
		if err != nil {
			verr.Add("rating", "Rating harus berupa angka.")
		} else {
			input.Rating = &rating
		}
	}
	if len(verr.Fields) == 0 {
		return input, nil
	}
	return input, verr
}

// mergeValidation adds the service's checks for fields that parsed fine.
func mergeValidation(parseErr *services.ValidationError, input services.ContentInput) *services.ValidationError {
	merged := &services.ValidationError{Fields: append([]services.FieldError(nil), parseErr.Fields...)}
	_, err := services.NormalizeContentInput(input)
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		for _, f := range verr.Fields {
			if merged.Message(f.Field) == "" {
				merged.Add(f.Field, f.Message)
			}
		}
	}
	return merged
}
