package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"caritauyuk.id/catalog/internal/domain"
	"caritauyuk.id/catalog/internal/repositories"
)

const contentColumns = `id, title, category, year, duration, rating, description, tags,
	thumbnail_url, video_url, youtube_id,
	affiliate_url, affiliate_label, affiliate_desc, affiliate_badge,
	likes, created_at, updated_at`

// ContentRepository stores catalog rows in the content table.
type ContentRepository struct {
	db    *sql.DB
	clock func() time.Time
	newID func() string
}

// List returns rows newest first. Search matching folds case with Unicode rules, which SQLite's
// LIKE only does for ASCII, so the needle is applied after the category filter.
func (r *ContentRepository) List(ctx context.Context, filter repositories.ContentFilter) ([]domain.Content, error) {
	query := `SELECT ` + contentColumns + ` FROM content`
	var args []any
	if filter.Category != "" && filter.Category != domain.CategoryAll {
		query += ` WHERE category = ?`
		args = append(args, string(filter.Category))
	}
	query += ` ORDER BY created_at DESC, rowid ASC`

	rows, err := r.query(ctx, "content.list", query, args...)
	if err != nil {
		return nil, err
	}
	return repositories.MatchSearch(rows, filter.Search), nil
}

// Related returns up to limit rows of category, excluding excludeID, most liked first.
func (r *ContentRepository) Related(ctx context.Context, category domain.Category, excludeID string, limit int) ([]domain.Content, error) {
	if limit <= 0 {
		return []domain.Content{}, nil
	}
	return r.query(ctx, "content.related",
		`SELECT `+contentColumns+` FROM content WHERE category = ? AND id <> ? ORDER BY likes DESC, created_at DESC LIMIT ?`,
		string(category), excludeID, limit)
}

// FindByID loads one row.
func (r *ContentRepository) FindByID(ctx context.Context, id string) (domain.Content, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+contentColumns+` FROM content WHERE id = ?`, id)
	content, err := scanContent(row)
	if err != nil {
		return domain.Content{}, wrapError("content.get", err)
	}
	return content, nil
}

// Insert stores a new row, assigning an id when missing. The stored row is returned.
func (r *ContentRepository) Insert(ctx context.Context, content domain.Content) (domain.Content, error) {
	if strings.TrimSpace(content.ID) == "" {
		content.ID = r.newID()
	}
	now := r.clock().UTC()
	if content.CreatedAt.IsZero() {
		content.CreatedAt = now
	}
	if content.UpdatedAt.IsZero() {
		content.UpdatedAt = content.CreatedAt
	}
	tags, err := encodeTags(content.Tags)
	if err != nil {
		return domain.Content{}, wrapError("content.insert", err)
	}

	_, err = r.db.ExecContext(ctx, `INSERT INTO content (`+contentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		content.ID, content.Title, string(content.Category), nullableInt(content.Year), content.Duration,
		nullableFloat(content.Rating), content.Description, tags,
		content.ThumbnailURL, content.VideoURL, content.YouTubeID,
		content.Affiliate.URL, content.Affiliate.Label, content.Affiliate.Description, content.Affiliate.Badge,
		content.Likes, content.CreatedAt.UnixNano(), content.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return domain.Content{}, wrapError("content.insert", err)
	}
	return r.FindByID(ctx, content.ID)
}

// Update overwrites the editable columns of an existing row. likes and created_at are untouched.
func (r *ContentRepository) Update(ctx context.Context, content domain.Content) (domain.Content, error) {
	if content.UpdatedAt.IsZero() {
		content.UpdatedAt = r.clock().UTC()
	}
	tags, err := encodeTags(content.Tags)
	if err != nil {
		return domain.Content{}, wrapError("content.update", err)
	}

	res, err := r.db.ExecContext(ctx, `UPDATE content SET
		title = ?, category = ?, year = ?, duration = ?, rating = ?, description = ?, tags = ?,
		thumbnail_url = ?, video_url = ?, youtube_id = ?,
		affiliate_url = ?, affiliate_label = ?, affiliate_desc = ?, affiliate_badge = ?,
		updated_at = ?
		WHERE id = ?`,
		content.Title, string(content.Category), nullableInt(content.Year), content.Duration,
		nullableFloat(content.Rating), content.Description, tags,
		content.ThumbnailURL, content.VideoURL, content.YouTubeID,
		content.Affiliate.URL, content.Affiliate.Label, content.Affiliate.Description, content.Affiliate.Badge,
		content.UpdatedAt.UnixNano(), content.ID,
	)
	if err != nil {
		return domain.Content{}, wrapError("content.update", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Content{}, repositories.NotFound("content.update", "content %q not found", content.ID)
	}
	return r.FindByID(ctx, content.ID)
}

// Delete removes a row; its like records cascade.
func (r *ContentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM content WHERE id = ?`, id)
	if err != nil {
		return wrapError("content.delete", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repositories.NotFound("content.delete", "content %q not found", id)
	}
	return nil
}

// Counters returns the stored counter of every row.
func (r *ContentRepository) Counters(ctx context.Context) ([]domain.ContentCounter, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, category, likes FROM content ORDER BY created_at DESC, rowid ASC`)
	if err != nil {
		return nil, wrapError("content.counters", err)
	}
	defer rows.Close()

	var out []domain.ContentCounter
	for rows.Next() {
		var (
			counter  domain.ContentCounter
			category string
		)
		if err := rows.Scan(&counter.ID, &category, &counter.Likes); err != nil {
			return nil, wrapError("content.counters", err)
		}
		counter.Category = domain.Category(category)
		out = append(out, counter)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError("content.counters", err)
	}
	return out, nil
}

func (r *ContentRepository) query(ctx context.Context, op, query string, args ...any) ([]domain.Content, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapError(op, err)
	}
	defer rows.Close()

	out := make([]domain.Content, 0)
	for rows.Next() {
		content, err := scanContent(rows)
		if err != nil {
			return nil, wrapError(op, err)
		}
		out = append(out, content)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError(op, err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanContent(s scanner) (domain.Content, error) {
	var (
		c         domain.Content
		category  string
		year      sql.NullInt64
		rating    sql.NullFloat64
		tags      string
		createdAt int64
		updatedAt int64
	)
	err := s.Scan(
		&c.ID, &c.Title, &category, &year, &c.Duration, &rating, &c.Description, &tags,
		&c.ThumbnailURL, &c.VideoURL, &c.YouTubeID,
		&c.Affiliate.URL, &c.Affiliate.Label, &c.Affiliate.Description, &c.Affiliate.Badge,
		&c.Likes, &createdAt, &updatedAt,
	)
	if err != nil {
		return domain.Content{}, err
	}
	c.Category = domain.Category(category)
	if year.Valid {
		v := int(year.Int64)
		c.Year = &v
	}
	if rating.Valid {
		v := rating.Float64
		c.Rating = &v
	}
	c.Tags = decodeTags(tags)
	c.CreatedAt = time.Unix(0, createdAt).UTC()
	c.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return c, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodeTags(raw string) []string {
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return []string{}
	}
	if tags == nil {
		return []string{}
	}
	return tags
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
