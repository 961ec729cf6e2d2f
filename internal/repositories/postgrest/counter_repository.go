package postgrest

import (
	"context"
	"strconv"

	"caritauyuk.id/catalog/internal/platform/supabase"
)

// CounterRepository mutates content.likes through the store's RPC functions.
type CounterRepository struct {
	client *supabase.Client
}

// Increment calls increment_likes(content_id).
func (r *CounterRepository) Increment(ctx context.Context, contentID string) error {
	return r.rpc(ctx, "counters.increment", rpcIncrementLikes, contentID)
}

// Decrement calls decrement_likes(content_id); the function floors at zero.
func (r *CounterRepository) Decrement(ctx context.Context, contentID string) error {
	return r.rpc(ctx, "counters.decrement", rpcDecrementLikes, contentID)
}

// CompareAndSet patches likes filtered on likes=eq.<stored>, so a toggle that landed after the
// counter was read leaves the row untouched. Needs a key allowed to update content.
func (r *CounterRepository) CompareAndSet(ctx context.Context, contentID string, stored, likes int64) (bool, error) {
	if likes < 0 {
		likes = 0
	}
	var rows []counterRow
	err := r.client.From(tableContent).
		Eq("id", contentID).
		Eq("likes", strconv.FormatInt(stored, 10)).
		Select("id,likes").
		Update(ctx, map[string]any{"likes": likes}, &rows)
	if err != nil {
		return false, wrapError("counters.set", err)
	}
	return len(rows) > 0, nil
}

func (r *CounterRepository) rpc(ctx context.Context, op, fn, contentID string) error {
	args := map[string]any{"content_id": idArg(contentID)}
	if err := r.client.RPC(ctx, fn, args, nil); err != nil {
		return wrapError(op, err)
	}
	return nil
}
