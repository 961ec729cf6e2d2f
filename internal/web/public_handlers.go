package web

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"caritauyuk.id/catalog/internal/domain"
	"caritauyuk.id/catalog/internal/platform/httpx"
	"caritauyuk.id/catalog/internal/platform/observability"
	"caritauyuk.id/catalog/internal/platform/requestctx"
	"caritauyuk.id/catalog/internal/services"
	"caritauyuk.id/catalog/internal/session"
)

const loadFailedMessage = "Gagal memuat konten"

func (a *app) home(w http.ResponseWriter, r *http.Request) {
	filter := parseFilter(r.URL.Query())
	cards, err := a.loadCards(r.Context(), filter)

	page := homePage{
		layoutData: a.layout(r, a.pageTitle("")),
		Categories: categoryOptions(filter.Category, true),
		Category:   string(filter.Category),
		Search:     filter.Query,
		Cards:      cards,
	}
	if err != nil {
		page.LoadFailed = true
		page.Error = loadFailedMessage
	}
	a.render.render(w, r, "home", http.StatusOK, page)
}

// loadCards runs the content query and resolves like states with one batched lookup.
func (a *app) loadCards(ctx context.Context, filter services.ContentFilter) ([]CardView, error) {
	rows, err := a.catalog.Filter(ctx, filter)
	if err != nil {
		requestctx.Logger(ctx).Warn("content query failed",
			zap.String("category", string(filter.Category)),
			zap.String("search", observability.SanitizeSearch(filter.Query)),
			zap.Error(err))
		return []CardView{}, err
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	liked, err := a.likes.LikedIDs(ctx, session.VisitorID(ctx), ids)
	if err != nil {
		// cards still render; like buttons start unliked
		requestctx.Logger(ctx).Warn("like states unavailable", zap.Error(err))
	}
	cards := make([]CardView, 0, len(rows))
	for _, row := range rows {
		cards = append(cards, a.views.card(row, liked[row.ID]))
	}
	return cards, nil
}

func (a *app) detail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	content, err := a.catalog.Get(ctx, id)
	if err != nil {
		if errors.Is(err, services.ErrContentNotFound) {
			a.notFound(w, r)
			return
		}
		requestctx.Logger(ctx).Warn("content detail failed", zap.String("content_id", id), zap.Error(err))
		page := a.layout(r, a.pageTitle("Error"))
		page.Error = loadFailedMessage
		a.render.render(w, r, "notfound", http.StatusBadGateway, page)
		return
	}

	var (
		liked   bool
		related []domain.Content
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		status, err := a.likes.Status(gctx, content.ID, session.VisitorID(gctx))
		if err != nil {
			requestctx.Logger(gctx).Warn("like status unavailable", zap.Error(err))
			return nil
		}
		liked = status
		return nil
	})
	g.Go(func() error {
		rows, err := a.catalog.Related(gctx, content.Category, content.ID, 0)
		if err != nil {
			return nil
		}
		related = rows
		return nil
	})
	_ = g.Wait()

	a.render.render(w, r, "detail", http.StatusOK, detailPage{
		layoutData: a.layout(r, a.pageTitle(content.Title)),
		Content:    a.views.detail(content, liked, related),
	})
}

// legacyDetail redirects old detail.html?id= links.
func (a *app) legacyDetail(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		a.notFound(w, r)
		return
	}
	http.Redirect(w, r, a.paths.content(id), http.StatusMovedPermanently)
}

type contentListPayload struct {
	Gen   string     `json:"gen"`
	Count int        `json:"count"`
	Items []CardView `json:"items"`
}

func (a *app) apiContent(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	cards, err := a.loadCards(r.Context(), parseFilter(query))
	if err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError(httpx.CodeContentUnavailable, loadFailedMessage, http.StatusBadGateway).
			WithDetails(map[string]any{"gen": query.Get("gen")}))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, contentListPayload{
		Gen:   query.Get("gen"),
		Count: len(cards),
		Items: cards,
	})
}

type likePayload struct {
	Liked bool  `json:"liked"`
	Likes int64 `json:"likes"`
}

func (a *app) apiLike(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	result, err := a.likes.Toggle(ctx, id, session.VisitorID(ctx))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrContentNotFound):
			httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeContentNotFound, "Konten tidak ditemukan", http.StatusNotFound))
		case errors.Is(err, services.ErrInvalidSession):
			httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeInvalidSession, "Sesi tidak valid", http.StatusBadRequest))
		default:
			httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeLikeFailed, "Gagal memproses like", http.StatusBadGateway))
		}
		return
	}
	httpx.WriteJSON(w, http.StatusOK, likePayload{Liked: result.Liked, Likes: result.Likes})
}

func (a *app) notFound(w http.ResponseWriter, r *http.Request) {
	if observability.WantsJSON(r) {
		httpx.WriteError(r.Context(), w, httpx.NewError(httpx.CodeNotFound, "Halaman tidak ditemukan", http.StatusNotFound))
		return
	}
	page := a.layout(r, a.pageTitle("Tidak ditemukan"))
	a.render.render(w, r, "notfound", http.StatusNotFound, page)
}

// parseFilter reads ?category= and ?search=. Unknown categories fall back to all.
func parseFilter(q url.Values) services.ContentFilter {
	category, _ := domain.ParseCategory(q.Get("category"))
	return services.ContentFilter{
		Category: category,
		Query:    strings.TrimSpace(q.Get("search")),
	}
}
