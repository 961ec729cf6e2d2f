// Package sqlite implements the repositories against the local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"caritauyuk.id/catalog/internal/repositories"
)

// Registry bundles the SQLite repositories around one database handle.
type Registry struct {
	db       *sql.DB
	content  *ContentRepository
	likes    *LikeRepository
	counters *CounterRepository
}

// Option customises the registry.
type Option func(*options)

type options struct {
	clock func() time.Time
	newID func() string
}

// WithClock overrides time.Now (tests).
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithIDGenerator overrides the content id generator (tests).
func WithIDGenerator(fn func() string) Option {
	return func(o *options) {
		if fn != nil {
			o.newID = fn
		}
	}
}

// NewRegistry wires the repositories. db must already be migrated.
func NewRegistry(db *sql.DB, opts ...Option) (*Registry, error) {
	if db == nil {
		return nil, errors.New("sqlite registry requires a database")
	}
	o := options{
		clock: time.Now,
		newID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Registry{
		db:       db,
		content:  &ContentRepository{db: db, clock: o.clock, newID: o.newID},
		likes:    &LikeRepository{db: db, clock: o.clock},
		counters: &CounterRepository{db: db},
	}, nil
}

// Close closes the database handle.
func (r *Registry) Close(context.Context) error {
	return r.db.Close()
}

// Content returns the content repository.
func (r *Registry) Content() repositories.ContentRepository { return r.content }

// Likes returns the like repository.
func (r *Registry) Likes() repositories.LikeRepository { return r.likes }

// Counters returns the counter repository.
func (r *Registry) Counters() repositories.CounterRepository { return r.counters }
