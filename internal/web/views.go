package web

import (
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"unicode/utf8"

	"caritauyuk.id/catalog/internal/domain"
)

const (
	descriptionPreviewRunes = 100
	cardTagLimit            = 3
	adminDateLayout         = "02/01/2006"
	notAvailable            = "N/A"
)

// CardView is one grid card on the listing page.
type CardView struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Category      string   `json:"category"`
	CategoryColor string   `json:"category_color"`
	Thumbnail     string   `json:"thumbnail_url"`
	Year          string   `json:"year"`
	Duration      string   `json:"duration"`
	Rating        string   `json:"rating"`
	Description   string   `json:"description"`
	Tags          []string `json:"tags"`
	Likes         int64    `json:"likes"`
	Liked         bool     `json:"liked"`
	URL           string   `json:"url"`
}

// MediaKind selects the detail media block.
type MediaKind string

const (
	MediaYouTube     MediaKind = "youtube"
	MediaVideo       MediaKind = "video"
	MediaImage       MediaKind = "image"
	MediaPlaceholder MediaKind = "placeholder"
)

// MediaView is the detail media block chosen by priority.
type MediaView struct {
	Kind MediaKind
	// Src is the embed URL, video URL or image URL depending on Kind.
	Src string
	Alt string
}

// AffiliateView is rendered only when Present.
type AffiliateView struct {
	Present     bool
	URL         string
	Label       string
	Description string
	Badge       string
}

// DetailView is the content detail page.
type DetailView struct {
	ID            string
	Title         string
	Category      string
	CategoryColor string
	Year          string
	Duration      string
	Rating        string
	Description   template.HTML
	Tags          []string
	Likes         int64
	Liked         bool
	Media         MediaView
	Affiliate     AffiliateView
	Related       []RelatedView
}

// RelatedView is one sidebar entry on the detail page.
type RelatedView struct {
	ID        string
	Title     string
	Thumbnail string
	Year      string
	Likes     int64
	URL       string
}

// AdminRowView is one row of the admin table.
type AdminRowView struct {
	ID            string
	Title         string
	Thumbnail     string
	Category      string
	CategoryColor string
	Year          string
	Likes         int64
	CreatedAt     string
	ViewURL       string
	EditURL       string
	DeleteURL     string
}

// CategoryOption is one filter button or select option.
type CategoryOption struct {
	Value    string
	Label    string
	Color    string
	Selected bool
}

type viewBuilder struct {
	defaultThumbnail string
	paths            pathBuilder
	markdown         *markdownRenderer
}

func (b viewBuilder) card(c domain.Content, liked bool) CardView {
	tags := c.Tags
	if len(tags) > cardTagLimit {
		tags = tags[:cardTagLimit]
	}
	return CardView{
		ID:            c.ID,
		Title:         c.Title,
		Category:      string(c.Category),
		CategoryColor: c.Category.Color(),
		Thumbnail:     b.thumbnail(c.ThumbnailURL),
		Year:          formatYear(c.Year, notAvailable),
		Duration:      orFallback(c.Duration, notAvailable),
		Rating:        formatRating(c.Rating),
		Description:   truncateRunes(c.Description, descriptionPreviewRunes),
		Tags:          append([]string{}, tags...),
		Likes:         c.Likes,
		Liked:         liked,
		URL:           b.paths.content(c.ID),
	}
}

func (b viewBuilder) detail(c domain.Content, liked bool, related []domain.Content) DetailView {
	tags := make([]string, 0, len(c.Tags))
	for _, tag := range c.Tags {
		tags = append(tags, "#"+tag)
	}
	view := DetailView{
		ID:            c.ID,
		Title:         c.Title,
		Category:      string(c.Category),
		CategoryColor: c.Category.Color(),
		Year:          formatYear(c.Year, notAvailable),
		Duration:      orFallback(c.Duration, notAvailable),
		Rating:        formatRating(c.Rating),
		Description:   b.markdown.Render(c.Description),
		Tags:          tags,
		Likes:         c.Likes,
		Liked:         liked,
		Media:         selectMedia(c),
		Related:       make([]RelatedView, 0, len(related)),
	}
	if c.Affiliate.Present() {
		view.Affiliate = AffiliateView{
			Present:     true,
			URL:         c.Affiliate.URL,
			Label:       c.Affiliate.Label,
			Description: c.Affiliate.Description,
			Badge:       c.Affiliate.Badge,
		}
	}
	for _, r := range related {
		view.Related = append(view.Related, RelatedView{
			ID:        r.ID,
			Title:     r.Title,
			Thumbnail: b.thumbnail(r.ThumbnailURL),
			Year:      formatYear(r.Year, notAvailable),
			Likes:     r.Likes,
			URL:       b.paths.content(r.ID),
		})
	}
	return view
}

func (b viewBuilder) adminRow(c domain.Content) AdminRowView {
	created := "-"
	if !c.CreatedAt.IsZero() {
		created = c.CreatedAt.Format(adminDateLayout)
	}
	return AdminRowView{
		ID:            c.ID,
		Title:         c.Title,
		Thumbnail:     b.thumbnail(c.ThumbnailURL),
		Category:      string(c.Category),
		CategoryColor: c.Category.Color(),
		Year:          formatYear(c.Year, "-"),
		Likes:         c.Likes,
		CreatedAt:     created,
		ViewURL:       b.paths.content(c.ID),
		EditURL:       b.paths.join("admin", "content", c.ID, "edit"),
		DeleteURL:     b.paths.join("admin", "content", c.ID, "delete"),
	}
}

func (b viewBuilder) thumbnail(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return b.defaultThumbnail
	}
	return raw
}

// selectMedia applies the priority YouTube id > direct video > thumbnail > placeholder.
func selectMedia(c domain.Content) MediaView {
	switch {
	case strings.TrimSpace(c.YouTubeID) != "":
		return MediaView{Kind: MediaYouTube, Src: "https://www.youtube.com/embed/" + c.YouTubeID, Alt: c.Title}
	case strings.TrimSpace(c.VideoURL) != "":
		return MediaView{Kind: MediaVideo, Src: c.VideoURL, Alt: c.Title}
	case strings.TrimSpace(c.ThumbnailURL) != "":
		return MediaView{Kind: MediaImage, Src: c.ThumbnailURL, Alt: c.Title}
	default:
		return MediaView{Kind: MediaPlaceholder, Alt: c.Title}
	}
}

func categoryOptions(selected domain.Category, includeAll bool) []CategoryOption {
	var out []CategoryOption
	if includeAll {
		out = append(out, CategoryOption{
			Value:    string(domain.CategoryAll),
			Label:    string(domain.CategoryAll),
			Color:    domain.CategoryAll.Color(),
			Selected: selected == domain.CategoryAll || selected == "",
		})
	}
	for _, c := range domain.Categories() {
		out = append(out, CategoryOption{Value: string(c), Label: string(c), Color: c.Color(), Selected: c == selected})
	}
	return out
}

func truncateRunes(s string, limit int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "…"
}

func formatYear(year *int, fallback string) string {
	if year == nil {
		return fallback
	}
	return strconv.Itoa(*year)
}

func formatRating(rating *float64) string {
	if rating == nil {
		return notAvailable
	}
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.1f", *rating), "0"), ".")
}

func orFallback(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
