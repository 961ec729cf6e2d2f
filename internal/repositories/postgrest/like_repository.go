package postgrest

import (
	"context"
	"errors"
	"time"

	"caritauyuk.id/catalog/internal/domain"
	"caritauyuk.id/catalog/internal/platform/supabase"
)

var errEmptyRepresentation = errors.New("store returned no rows")

// LikeRepository reads and writes content_likes.
type LikeRepository struct {
	client *supabase.Client
}

// Exists reports whether sessionID likes contentID.
func (r *LikeRepository) Exists(ctx context.Context, contentID, sessionID string) (bool, error) {
	var rows []likeRow
	err := r.client.From(tableLikes).
		Select("content_id").
		Eq("content_id", contentID).
		Eq("session_id", sessionID).
		Limit(1).
		Execute(ctx, &rows)
	if err != nil {
		return false, wrapError("likes.exists", err)
	}
	return len(rows) > 0, nil
}

// Insert adds a like record.
func (r *LikeRepository) Insert(ctx context.Context, record domain.LikeRecord) error {
	payload := map[string]any{
		"content_id": idArg(record.ContentID),
		"session_id": record.SessionID,
	}
	if !record.CreatedAt.IsZero() {
		payload["created_at"] = record.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	if err := r.client.From(tableLikes).Insert(ctx, []map[string]any{payload}, nil); err != nil {
		return wrapError("likes.insert", err)
	}
	return nil
}

// Delete removes the like record.
func (r *LikeRepository) Delete(ctx context.Context, contentID, sessionID string) error {
	err := r.client.From(tableLikes).
		Eq("content_id", contentID).
		Eq("session_id", sessionID).
		Delete(ctx)
	return wrapError("likes.delete", err)
}

// LikedContentIDs answers in one request which of contentIDs the session likes.
func (r *LikeRepository) LikedContentIDs(ctx context.Context, sessionID string, contentIDs []string) ([]string, error) {
	if len(contentIDs) == 0 || sessionID == "" {
		return []string{}, nil
	}
	var rows []likeRow
	err := r.client.From(tableLikes).
		Select("content_id").
		Eq("session_id", sessionID).
		In("content_id", contentIDs).
		Execute(ctx, &rows)
	if err != nil {
		return nil, wrapError("likes.liked_ids", err)
	}
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, string(row.ContentID))
	}
	return out, nil
}

// CountByContent pages through every like record and tallies them per content id.
func (r *LikeRepository) CountByContent(ctx context.Context) (map[string]int64, error) {
	out := make(map[string]int64)
	for offset := 0; ; offset += pageSize {
		var rows []likeRow
		err := r.client.From(tableLikes).
			Select("content_id").
			Order("id", false).
			Limit(pageSize).
			Offset(offset).
			Execute(ctx, &rows)
		if err != nil {
			return nil, wrapError("likes.count", err)
		}
		for _, row := range rows {
			out[string(row.ContentID)]++
		}
		if len(rows) < pageSize {
			return out, nil
		}
	}
}
