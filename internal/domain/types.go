package domain

import (
	"strings"
	"time"
)

// Category enumerates the fixed catalog sections.
type Category string

const (
	// CategoryAll is the pseudo category meaning "no category filter".
	CategoryAll Category = "Semua"
	// CategoryFilm groups movies and series.
	CategoryFilm Category = "Film"
	// CategoryTechnology groups technology content.
	CategoryTechnology Category = "Teknologi"
	// CategoryFinance groups finance content.
	CategoryFinance Category = "Keuangan"
	// CategoryHealth groups health content.
	CategoryHealth Category = "Kesehatan"
)

// Categories lists the real catalog categories in display order.
func Categories() []Category {
	return []Category{CategoryFilm, CategoryTechnology, CategoryFinance, CategoryHealth}
}

// ParseCategory resolves raw user input to a known category. Unknown or empty input maps to
// CategoryAll with ok=false.
func ParseCategory(raw string) (Category, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return CategoryAll, false
	}
	if Category(trimmed) == CategoryAll {
		return CategoryAll, true
	}
	for _, c := range Categories() {
		if strings.EqualFold(string(c), trimmed) {
			return c, true
		}
	}
	return CategoryAll, false
}

// Valid reports whether c is one of the real categories (CategoryAll excluded).
func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// Color returns the badge colour associated with the category.
func (c Category) Color() string {
	switch c {
	case CategoryFilm:
		return "#FF6B6B"
	case CategoryTechnology:
		return "#4ECDC4"
	case CategoryFinance:
		return "#45B7D1"
	case CategoryHealth:
		return "#96CEB4"
	default:
		return "#4A90E2"
	}
}

// Content is one catalog item owned by the content store.
type Content struct {
	ID          string
	Title       string
	Category    Category
	Year        *int
	Duration    string
	Rating      *float64
	Description string
	Tags        []string

	ThumbnailURL string
	VideoURL     string
	YouTubeID    string

	Affiliate Affiliate

	Likes     int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Affiliate carries the optional sponsored-link block of a content row.
type Affiliate struct {
	URL         string
	Label       string
	Description string
	Badge       string
}

// Present reports whether the affiliate block has enough data to render.
func (a Affiliate) Present() bool {
	return strings.TrimSpace(a.URL) != "" && strings.TrimSpace(a.Label) != ""
}

// LikeRecord marks that an anonymous session likes a content row.
type LikeRecord struct {
	ContentID string
	SessionID string
	CreatedAt time.Time
}

// LikeResult is returned by the like toggle.
type LikeResult struct {
	Liked bool
	Likes int64
}

// CategoryStats aggregates counts for a single category.
type CategoryStats struct {
	Total      int
	TotalLikes int64
}

// ContentStats summarises the catalog.
type ContentStats struct {
	Total       int
	TotalLikes  int64
	PerCategory map[Category]CategoryStats
}

// LikeDrift describes a counter that disagreed with its like records.
type LikeDrift struct {
	ContentID string
	Stored    int64
	Actual    int64
}

// ContentCounter is the stored like counter of one row together with its category.
type ContentCounter struct {
	ID       string
	Category Category
	Likes    int64
}
