// Package postgrest implements the repositories against the remote Supabase store.
package postgrest

import (
	"context"
	"errors"

	"caritauyuk.id/catalog/internal/platform/supabase"
	"caritauyuk.id/catalog/internal/repositories"
)

const (
	tableContent = "content"
	tableLikes   = "content_likes"

	rpcIncrementLikes = "increment_likes"
	rpcDecrementLikes = "decrement_likes"

	pageSize = 1000
)

// Registry bundles the remote repositories around one client.
type Registry struct {
	content  *ContentRepository
	likes    *LikeRepository
	counters *CounterRepository
}

// NewRegistry wires repositories on top of client.
func NewRegistry(client *supabase.Client) (*Registry, error) {
	if client == nil {
		return nil, errors.New("postgrest registry requires a supabase client")
	}
	return &Registry{
		content:  &ContentRepository{client: client},
		likes:    &LikeRepository{client: client},
		counters: &CounterRepository{client: client},
	}, nil
}

// Close is a no-op; the HTTP client holds no resources that need releasing.
func (r *Registry) Close(context.Context) error { return nil }

// Content returns the content repository.
func (r *Registry) Content() repositories.ContentRepository { return r.content }

// Likes returns the like repository.
func (r *Registry) Likes() repositories.LikeRepository { return r.likes }

// Counters returns the counter repository.
func (r *Registry) Counters() repositories.CounterRepository { return r.counters }

func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	// an id the bigint key cannot parse names no row
	case supabase.IsNotFound(err), supabase.IsForeignKeyViolation(err), supabase.IsInvalidText(err):
		return repositories.NewError(op, repositories.KindNotFound, err)
	case supabase.IsConflict(err):
		return repositories.NewError(op, repositories.KindConflict, err)
	case supabase.IsUnavailable(err):
		return repositories.NewError(op, repositories.KindUnavailable, err)
	}
	return repositories.NewError(op, repositories.KindUnknown, err)
}
