package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"caritauyuk.id/catalog/internal/domain"
	"caritauyuk.id/catalog/internal/repositories"
)

// LikeRepository stores like records in content_likes.
type LikeRepository struct {
	db    *sql.DB
	clock func() time.Time
}

// Exists reports whether sessionID likes contentID.
func (r *LikeRepository) Exists(ctx context.Context, contentID, sessionID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM content_likes WHERE content_id = ? AND session_id = ? LIMIT 1`,
		contentID, sessionID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, wrapError("likes.exists", err)
	}
	return true, nil
}

// Insert adds a like record. A duplicate surfaces as a conflict, a missing content row as not found.
func (r *LikeRepository) Insert(ctx context.Context, record domain.LikeRecord) error {
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.clock().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO content_likes (content_id, session_id, created_at) VALUES (?, ?, ?)`,
		record.ContentID, record.SessionID, createdAt.UnixNano())
	return wrapError("likes.insert", err)
}

// Delete removes the like record if present.
func (r *LikeRepository) Delete(ctx context.Context, contentID, sessionID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM content_likes WHERE content_id = ? AND session_id = ?`,
		contentID, sessionID)
	return wrapError("likes.delete", err)
}

// LikedContentIDs answers with one query which of contentIDs the session likes.
func (r *LikeRepository) LikedContentIDs(ctx context.Context, sessionID string, contentIDs []string) ([]string, error) {
	if len(contentIDs) == 0 || sessionID == "" {
		return []string{}, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(contentIDs)), ",")
	args := make([]any, 0, len(contentIDs)+1)
	args = append(args, sessionID)
	for _, id := range contentIDs {
		args = append(args, id)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT content_id FROM content_likes WHERE session_id = ? AND content_id IN (`+placeholders+`)`,
		args...)
	if err != nil {
		return nil, wrapError("likes.liked_ids", err)
	}
	defer rows.Close()

	out := make([]string, 0, len(contentIDs))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, wrapError("likes.liked_ids", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError("likes.liked_ids", err)
	}
	return out, nil
}

// CountByContent returns like record counts keyed by content id. Rows with no likes are absent.
func (r *LikeRepository) CountByContent(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT content_id, COUNT(*) FROM content_likes GROUP BY content_id`)
	if err != nil {
		return nil, wrapError("likes.count", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var (
			id    string
			count int64
		)
		if err := rows.Scan(&id, &count); err != nil {
			return nil, wrapError("likes.count", err)
		}
		out[id] = count
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError("likes.count", err)
	}
	return out, nil
}

var _ repositories.LikeRepository = (*LikeRepository)(nil)
