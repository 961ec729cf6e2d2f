package repositories

import (
	"context"

	"caritauyuk.id/catalog/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Content() ContentRepository
	Likes() LikeRepository
	Counters() CounterRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// ContentFilter narrows a content listing. The zero value lists everything.
type ContentFilter struct {
	// Category is matched exactly; CategoryAll or empty disables the filter.
	Category domain.Category
	// Search is a case-insensitive substring matched against title or description.
	Search string
}

// ContentRepository persists catalog rows.
type ContentRepository interface {
	// List returns rows ordered by created_at descending.
	List(ctx context.Context, filter ContentFilter) ([]domain.Content, error)
	// Related returns rows in category other than excludeID ordered by likes descending.
	Related(ctx context.Context, category domain.Category, excludeID string, limit int) ([]domain.Content, error)
	FindByID(ctx context.Context, id string) (domain.Content, error)
	Insert(ctx context.Context, content domain.Content) (domain.Content, error)
	Update(ctx context.Context, content domain.Content) (domain.Content, error)
	Delete(ctx context.Context, id string) error
	// Counters returns id, category and stored like counter for every row.
	Counters(ctx context.Context) ([]domain.ContentCounter, error)
}

// LikeRepository persists (content, session) like records.
type LikeRepository interface {
	Exists(ctx context.Context, contentID, sessionID string) (bool, error)
	Insert(ctx context.Context, record domain.LikeRecord) error
	Delete(ctx context.Context, contentID, sessionID string) error
	// LikedContentIDs returns the subset of contentIDs liked by sessionID.
	LikedContentIDs(ctx context.Context, sessionID string, contentIDs []string) ([]string, error)
	// CountByContent returns the number of like records per content id.
	CountByContent(ctx context.Context) (map[string]int64, error)
}

// CounterRepository mutates the denormalised like counter on content rows.
type CounterRepository interface {
	Increment(ctx context.Context, contentID string) error
	// Decrement never takes a counter below zero.
	Decrement(ctx context.Context, contentID string) error
	// CompareAndSet writes likes only while the stored counter still equals stored.
	// It reports false when the row changed or disappeared in the meantime.
	CompareAndSet(ctx context.Context, contentID string, stored, likes int64) (bool, error)
}
