package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"caritauyuk.id/catalog/internal/domain"
	"caritauyuk.id/catalog/internal/platform/requestctx"
	"caritauyuk.id/catalog/internal/repositories"
)

const defaultRelatedLimit = 5

// CatalogServiceDeps groups constructor parameters for the catalog service.
type CatalogServiceDeps struct {
	Content      repositories.ContentRepository
	RelatedLimit int
}

type catalogService struct {
	content      repositories.ContentRepository
	relatedLimit int
}

// NewCatalogService constructs the read-side catalog service.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Content == nil {
		return nil, ErrRepositoryMissing
	}
	limit := deps.RelatedLimit
	if limit <= 0 {
		limit = defaultRelatedLimit
	}
	return &catalogService{content: deps.Content, relatedLimit: limit}, nil
}

// Filter lists rows newest first. Unknown categories behave like CategoryAll.
func (s *catalogService) Filter(ctx context.Context, filter ContentFilter) ([]domain.Content, error) {
	category := filter.Category
	if !category.Valid() {
		category = domain.CategoryAll
	}
	rows, err := s.content.List(ctx, repositories.ContentFilter{
		Category: category,
		Search:   strings.TrimSpace(filter.Query),
	})
	if err != nil {
		requestctx.Logger(ctx).Warn("content filter failed",
			zap.String("category", string(category)),
			zap.Error(err),
		)
		return nil, err
	}
	return rows, nil
}

func (s *catalogService) Get(ctx context.Context, id string) (domain.Content, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Content{}, ErrContentNotFound
	}
	content, err := s.content.FindByID(ctx, id)
	if err != nil {
		return domain.Content{}, mapRepositoryError(err)
	}
	return content, nil
}

// Related returns same-category rows except excludeID, most liked first.
func (s *catalogService) Related(ctx context.Context, category domain.Category, excludeID string, limit int) ([]domain.Content, error) {
	if !category.Valid() {
		return []domain.Content{}, nil
	}
	if limit <= 0 {
		limit = s.relatedLimit
	}
	rows, err := s.content.Related(ctx, category, excludeID, limit)
	if err != nil {
		requestctx.Logger(ctx).Warn("related content failed", zap.String("content_id", excludeID), zap.Error(err))
		return nil, err
	}
	return rows, nil
}

// Stats totals rows and likes overall and per category.
func (s *catalogService) Stats(ctx context.Context) (domain.ContentStats, error) {
	counters, err := s.content.Counters(ctx)
	if err != nil {
		return domain.ContentStats{}, err
	}
	stats := domain.ContentStats{PerCategory: make(map[domain.Category]domain.CategoryStats)}
	for _, c := range counters {
		stats.Total++
		stats.TotalLikes += c.Likes
		per := stats.PerCategory[c.Category]
		per.Total++
		per.TotalLikes += c.Likes
		stats.PerCategory[c.Category] = per
	}
	return stats, nil
}
