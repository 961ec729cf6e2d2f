package services

import (
	"context"

	"caritauyuk.id/catalog/internal/domain"
)

// ContentFilter is the public listing query: one category (or all) plus a free-text needle.
type ContentFilter struct {
	Category domain.Category
	Query    string
}

// ContentInput carries the editable fields of a content row as submitted by an admin.
type ContentInput struct {
	Title        string
	Category     string
	Year         *int
	Duration     string
	Rating       *float64
	Description  string
	Tags         []string
	ThumbnailURL string
	VideoURL     string
	YouTubeID    string
	Affiliate    domain.Affiliate
}

// CatalogService answers read-only catalog queries.
type CatalogService interface {
	Filter(ctx context.Context, filter ContentFilter) ([]domain.Content, error)
	Get(ctx context.Context, id string) (domain.Content, error)
	Related(ctx context.Context, category domain.Category, excludeID string, limit int) ([]domain.Content, error)
	Stats(ctx context.Context) (domain.ContentStats, error)
}

// LikeService toggles and reports anonymous likes.
type LikeService interface {
	Toggle(ctx context.Context, contentID, sessionID string) (domain.LikeResult, error)
	Status(ctx context.Context, contentID, sessionID string) (bool, error)
	LikedIDs(ctx context.Context, sessionID string, contentIDs []string) (map[string]bool, error)
}

// AdminService performs content writes on behalf of a signed-in admin.
type AdminService interface {
	Create(ctx context.Context, input ContentInput) (domain.Content, error)
	Update(ctx context.Context, id string, input ContentInput) (domain.Content, error)
	Delete(ctx context.Context, id string) error
}

// AuthService signs admins in and out.
type AuthService interface {
	SignIn(ctx context.Context, email, password string) (AdminSession, error)
	SignOut(ctx context.Context, session AdminSession) error
}

// ReconcileService repairs like counters that drifted from their like records.
type ReconcileService interface {
	Run(ctx context.Context) (ReconcileReport, error)
}
