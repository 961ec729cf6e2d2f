package postgrest

import (
	"context"
	"strconv"

	"caritauyuk.id/catalog/internal/domain"
	"caritauyuk.id/catalog/internal/platform/supabase"
	"caritauyuk.id/catalog/internal/repositories"
)

var searchColumns = []string{"title", "description"}

// ContentRepository reads and writes the content table.
type ContentRepository struct {
	client *supabase.Client
}

// List returns rows newest first, optionally filtered by category and a title/description needle.
// The store narrows rows with ilike; the result is re-checked with Unicode case folding so both
// backends agree on what a match is, including needles ilike cannot spell exactly.
func (r *ContentRepository) List(ctx context.Context, filter repositories.ContentFilter) ([]domain.Content, error) {
	q := r.client.From(tableContent).Select("*")
	if filter.Category != "" && filter.Category != domain.CategoryAll {
		q = q.Eq("category", string(filter.Category))
	}
	q = q.OrILike(searchColumns, filter.Search).Order("created_at", true)

	var rows []contentRow
	if err := q.Execute(ctx, &rows); err != nil {
		return nil, wrapError("content.list", err)
	}
	return repositories.MatchSearch(toDomain(rows), filter.Search), nil
}

// Related returns up to limit rows of the same category, most liked first.
func (r *ContentRepository) Related(ctx context.Context, category domain.Category, excludeID string, limit int) ([]domain.Content, error) {
	if limit <= 0 {
		return []domain.Content{}, nil
	}
	var rows []contentRow
	err := r.client.From(tableContent).
		Select("*").
		Eq("category", string(category)).
		Neq("id", excludeID).
		Order("likes", true).
		Limit(limit).
		Execute(ctx, &rows)
	if err != nil {
		return nil, wrapError("content.related", err)
	}
	return toDomain(rows), nil
}

// FindByID loads a single row.
func (r *ContentRepository) FindByID(ctx context.Context, id string) (domain.Content, error) {
	var row contentRow
	if err := r.client.From(tableContent).Select("*").Eq("id", id).Single().Execute(ctx, &row); err != nil {
		return domain.Content{}, wrapError("content.get", err)
	}
	return row.toDomain(), nil
}

// Insert creates a row and returns what the store persisted.
func (r *ContentRepository) Insert(ctx context.Context, content domain.Content) (domain.Content, error) {
	var rows []contentRow
	if err := r.client.From(tableContent).Insert(ctx, []contentWrite{newContentWrite(content)}, &rows); err != nil {
		return domain.Content{}, wrapError("content.insert", err)
	}
	if len(rows) == 0 {
		return domain.Content{}, repositories.NewError("content.insert", repositories.KindUnknown, errEmptyRepresentation)
	}
	return rows[0].toDomain(), nil
}

// Update patches the editable columns of id.
func (r *ContentRepository) Update(ctx context.Context, content domain.Content) (domain.Content, error) {
	payload := newContentWrite(content)
	payload.CreatedAt = nil

	var rows []contentRow
	if err := r.client.From(tableContent).Eq("id", content.ID).Update(ctx, payload, &rows); err != nil {
		return domain.Content{}, wrapError("content.update", err)
	}
	if len(rows) == 0 {
		return domain.Content{}, repositories.NotFound("content.update", "content %q not found", content.ID)
	}
	return rows[0].toDomain(), nil
}

// Delete removes the row with id. Row-level security may silently filter the delete; the
// store answers 204 either way.
func (r *ContentRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.From(tableContent).Eq("id", id).Delete(ctx); err != nil {
		return wrapError("content.delete", err)
	}
	return nil
}

// Counters pages through id, category and likes of every row.
func (r *ContentRepository) Counters(ctx context.Context) ([]domain.ContentCounter, error) {
	var out []domain.ContentCounter
	for offset := 0; ; offset += pageSize {
		var rows []counterRow
		err := r.client.From(tableContent).
			Select("id,category,likes").
			Order("created_at", true).
			Order("id", false).
			Limit(pageSize).
			Offset(offset).
			Execute(ctx, &rows)
		if err != nil {
			return nil, wrapError("content.counters", err)
		}
		for _, row := range rows {
			counter := domain.ContentCounter{ID: string(row.ID), Category: domain.Category(row.Category)}
			if row.Likes != nil {
				counter.Likes = *row.Likes
			}
			out = append(out, counter)
		}
		if len(rows) < pageSize {
			return out, nil
		}
	}
}

func toDomain(rows []contentRow) []domain.Content {
	out := make([]domain.Content, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out
}

// idArg sends numeric ids as JSON numbers so bigint RPC parameters bind without a cast.
func idArg(id string) any {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return n
	}
	return id
}
