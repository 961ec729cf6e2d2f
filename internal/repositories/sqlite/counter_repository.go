package sqlite

import (
	"context"
	"database/sql"

	"caritauyuk.id/catalog/internal/repositories"
)

// CounterRepository adjusts content.likes in place, mirroring the increment/decrement RPCs.
type CounterRepository struct {
	db *sql.DB
}

// Increment adds one to the row's counter.
func (r *CounterRepository) Increment(ctx context.Context, contentID string) error {
	return r.exec(ctx, "counters.increment", `UPDATE content SET likes = likes + 1 WHERE id = ?`, contentID)
}

// Decrement subtracts one, floored at zero.
func (r *CounterRepository) Decrement(ctx context.Context, contentID string) error {
	return r.exec(ctx, "counters.decrement", `UPDATE content SET likes = MAX(likes - 1, 0) WHERE id = ?`, contentID)
}

// CompareAndSet rewrites the counter when it still holds stored; used by the reconciler.
func (r *CounterRepository) CompareAndSet(ctx context.Context, contentID string, stored, likes int64) (bool, error) {
	if likes < 0 {
		likes = 0
	}
	res, err := r.db.ExecContext(ctx, `UPDATE content SET likes = ? WHERE id = ? AND likes = ?`, likes, contentID, stored)
	if err != nil {
		return false, wrapError("counters.set", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrapError("counters.set", err)
	}
	return n > 0, nil
}

func (r *CounterRepository) exec(ctx context.Context, op, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return wrapError(op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repositories.NotFound(op, "content %v not found", args[len(args)-1])
	}
	return nil
}
