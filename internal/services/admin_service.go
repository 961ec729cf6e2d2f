package services

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"caritauyuk.id/catalog/internal/domain"
	"caritauyuk.id/catalog/internal/platform/requestctx"
	"caritauyuk.id/catalog/internal/repositories"
)

const (
	minYear   = 1800
	maxYear   = 2100
	minRating = 0
	maxRating = 10
)

// AdminServiceDeps groups constructor parameters for the admin service.
type AdminServiceDeps struct {
	Content repositories.ContentRepository
	Clock   func() time.Time
}

type adminService struct {
	content repositories.ContentRepository
	clock   func() time.Time
}

// NewAdminService constructs the admin write gate.
func NewAdminService(deps AdminServiceDeps) (AdminService, error) {
	if deps.Content == nil {
		return nil, ErrRepositoryMissing
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &adminService{
		content: deps.Content,
		clock:   func() time.Time { return clock().UTC() },
	}, nil
}

// Create validates input and inserts a new row stamped with created_at and updated_at.
func (s *adminService) Create(ctx context.Context, input ContentInput) (domain.Content, error) {
	ctx, session, err := s.authorize(ctx)
	if err != nil {
		return domain.Content{}, err
	}
	content, err := NormalizeContentInput(input)
	if err != nil {
		return domain.Content{}, err
	}
	now := s.clock()
	content.CreatedAt = now
	content.UpdatedAt = now

	created, err := s.content.Insert(ctx, content)
	if err != nil {
		requestctx.Logger(ctx).Warn("content create failed", zap.String("admin", session.Email), zap.Error(err))
		return domain.Content{}, mapRepositoryError(err)
	}
	requestctx.Logger(ctx).Info("content created", zap.String("content_id", created.ID), zap.String("admin", session.Email))
	return created, nil
}

// Update validates input and overwrites the editable fields of id, stamping updated_at.
func (s *adminService) Update(ctx context.Context, id string, input ContentInput) (domain.Content, error) {
	ctx, session, err := s.authorize(ctx)
	if err != nil {
		return domain.Content{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Content{}, ErrContentNotFound
	}
	content, err := NormalizeContentInput(input)
	if err != nil {
		return domain.Content{}, err
	}
	content.ID = id
	content.UpdatedAt = s.clock()

	updated, err := s.content.Update(ctx, content)
	if err != nil {
		requestctx.Logger(ctx).Warn("content update failed", zap.String("content_id", id), zap.Error(err))
		return domain.Content{}, mapRepositoryError(err)
	}
	requestctx.Logger(ctx).Info("content updated", zap.String("content_id", id), zap.String("admin", session.Email))
	return updated, nil
}

// Delete removes id.
func (s *adminService) Delete(ctx context.Context, id string) error {
	ctx, session, err := s.authorize(ctx)
	if err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrContentNotFound
	}
	if err := s.content.Delete(ctx, id); err != nil {
		requestctx.Logger(ctx).Warn("content delete failed", zap.String("content_id", id), zap.Error(err))
		return mapRepositoryError(err)
	}
	requestctx.Logger(ctx).Info("content deleted", zap.String("content_id", id), zap.String("admin", session.Email))
	return nil
}

// authorize enforces a live admin session and forwards its access token to the store.
func (s *adminService) authorize(ctx context.Context) (context.Context, AdminSession, error) {
	session, ok := AdminSessionFromContext(ctx)
	if !ok || !session.Active(s.clock()) {
		return ctx, AdminSession{}, ErrNotAuthenticated
	}
	if session.AccessToken != "" {
		ctx = requestctx.WithAccessToken(ctx, session.AccessToken)
	}
	return ctx, session, nil
}

// NormalizeContentInput trims and validates input, returning a *ValidationError listing every
// failing field.
func NormalizeContentInput(input ContentInput) (domain.Content, error) {
	verr := &ValidationError{}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		verr.Add("title", "Judul wajib diisi.")
	}

	var category domain.Category
	rawCategory := strings.TrimSpace(input.Category)
	if rawCategory == "" {
		verr.Add("category", "Kategori wajib dipilih.")
	} else if parsed, ok := domain.ParseCategory(rawCategory); !ok || !parsed.Valid() {
		verr.Add("category", "Kategori tidak dikenal.")
	} else {
		category = parsed
	}

	if input.Year != nil && (*input.Year < minYear || *input.Year > maxYear) {
		verr.Add("year", "Tahun harus antara 1800 dan 2100.")
	}
	if input.Rating != nil && (*input.Rating < minRating || *input.Rating > maxRating) {
		verr.Add("rating", "Rating harus antara 0 dan 10.")
	}

	for field, raw := range map[string]string{
		"thumbnail_url": input.ThumbnailURL,
		"video_url":     input.VideoURL,
		"affiliate_url": input.Affiliate.URL,
	} {
		if raw = strings.TrimSpace(raw); raw != "" && !isHTTPURL(raw) {
			verr.Add(field, "URL harus diawali http:// atau https://.")
		}
	}

	if err := verr.orNil(); err != nil {
		sortFieldErrors(verr.Fields)
		return domain.Content{}, err
	}

	return domain.Content{
		Title:        title,
		Category:     category,
		Year:         input.Year,
		Duration:     strings.TrimSpace(input.Duration),
		Rating:       input.Rating,
		Description:  strings.TrimSpace(input.Description),
		Tags:         NormalizeTags(input.Tags),
		ThumbnailURL: strings.TrimSpace(input.ThumbnailURL),
		VideoURL:     strings.TrimSpace(input.VideoURL),
		YouTubeID:    NormalizeYouTubeID(input.YouTubeID),
		Affiliate: domain.Affiliate{
			URL:         strings.TrimSpace(input.Affiliate.URL),
			Label:       strings.TrimSpace(input.Affiliate.Label),
			Description: strings.TrimSpace(input.Affiliate.Description),
			Badge:       strings.TrimSpace(input.Affiliate.Badge),
		},
	}, nil
}

// NormalizeTags trims tags, drops blanks and removes case-insensitive duplicates keeping first order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// SplitTags parses the comma separated tag field of the admin form.
func SplitTags(raw string) []string {
	return NormalizeTags(strings.Split(raw, ","))
}

// NormalizeYouTubeID accepts a bare id or a watch/share/embed URL and returns the id.
func NormalizeYouTubeID(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.Contains(raw, "/") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	switch {
	case host == "youtu.be":
		return strings.Trim(u.Path, "/")
	case strings.HasSuffix(host, "youtube.com"):
		if v := u.Query().Get("v"); v != "" {
			return v
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) == 2 && (parts[0] == "embed" || parts[0] == "shorts" || parts[0] == "live") {
			return parts[1]
		}
	}
	return raw
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

var fieldOrder = map[string]int{
	"title": 0, "category": 1, "year": 2, "rating": 3,
	"thumbnail_url": 4, "video_url": 5, "affiliate_url": 6,
}

func sortFieldErrors(fields []FieldError) {
	sort.SliceStable(fields, func(i, j int) bool {
		return fieldOrder[fields[i].Field] < fieldOrder[fields[j].Field]
	})
}
