package postgrest

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"caritauyuk.id/catalog/internal/domain"
)

// rowID accepts both numeric (bigint) and string (uuid) primary keys.
type rowID string

func (id *rowID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = rowID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = rowID(n.String())
	return nil
}

// lenientInt decodes numbers, numeric strings and null. Anything else reads as absent, since
// rows written by older admin screens stored free text in these columns.
type lenientInt struct {
	value int
	valid bool
}

func (v *lenientInt) UnmarshalJSON(data []byte) error {
	f, ok := decodeLenientNumber(data)
	if ok {
		v.value, v.valid = int(f), true
	}
	return nil
}

func (v lenientInt) ptr() *int {
	if !v.valid {
		return nil
	}
	out := v.value
	return &out
}

type lenientFloat struct {
	value float64
	valid bool
}

func (v *lenientFloat) UnmarshalJSON(data []byte) error {
	f, ok := decodeLenientNumber(data)
	if ok {
		v.value, v.valid = f, true
	}
	return nil
}

func (v lenientFloat) ptr() *float64 {
	if !v.valid {
		return nil
	}
	out := v.value
	return &out
}

func decodeLenientNumber(data []byte) (float64, bool) {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil && n != "" {
		f, err := n.Float64()
		return f, err == nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f, err == nil
}

type contentRow struct {
	ID             rowID        `json:"id"`
	Title          string       `json:"title"`
	Category       string       `json:"category"`
	Year           lenientInt   `json:"year"`
	Duration       *string      `json:"duration"`
	Rating         lenientFloat `json:"rating"`
	Description    *string      `json:"description"`
	Tags           []string     `json:"tags"`
	ThumbnailURL   *string      `json:"thumbnail_url"`
	VideoURL       *string      `json:"video_url"`
	YouTubeID      *string      `json:"youtube_id"`
	AffiliateURL   *string      `json:"affiliate_url"`
	AffiliateLabel *string      `json:"affiliate_label"`
	AffiliateDesc  *string      `json:"affiliate_desc"`
	AffiliateBadge *string      `json:"affiliate_badge"`
	Likes          *int64       `json:"likes"`
	CreatedAt      *time.Time   `json:"created_at"`
	UpdatedAt      *time.Time   `json:"updated_at"`
}

func (r contentRow) toDomain() domain.Content {
	c := domain.Content{
		ID:           string(r.ID),
		Title:        r.Title,
		Category:     domain.Category(r.Category),
		Year:         r.Year.ptr(),
		Duration:     deref(r.Duration),
		Rating:       r.Rating.ptr(),
		Description:  deref(r.Description),
		Tags:         cleanTags(r.Tags),
		ThumbnailURL: deref(r.ThumbnailURL),
		VideoURL:     deref(r.VideoURL),
		YouTubeID:    deref(r.YouTubeID),
		Affiliate: domain.Affiliate{
			URL:         deref(r.AffiliateURL),
			Label:       deref(r.AffiliateLabel),
			Description: deref(r.AffiliateDesc),
			Badge:       deref(r.AffiliateBadge),
		},
	}
	if r.Likes != nil {
		c.Likes = *r.Likes
	}
	if r.CreatedAt != nil {
		c.CreatedAt = r.CreatedAt.UTC()
	}
	if r.UpdatedAt != nil {
		c.UpdatedAt = r.UpdatedAt.UTC()
	}
	return c
}

// contentWrite is the payload for inserts and updates. likes and id are left to the store.
type contentWrite struct {
	Title          string     `json:"title"`
	Category       string     `json:"category"`
	Year           *int       `json:"year"`
	Duration       string     `json:"duration"`
	Rating         *float64   `json:"rating"`
	Description    string     `json:"description"`
	Tags           []string   `json:"tags"`
	ThumbnailURL   string     `json:"thumbnail_url"`
	VideoURL       string     `json:"video_url"`
	YouTubeID      string     `json:"youtube_id"`
	AffiliateURL   string     `json:"affiliate_url"`
	AffiliateLabel string     `json:"affiliate_label"`
	AffiliateDesc  string     `json:"affiliate_desc"`
	AffiliateBadge string     `json:"affiliate_badge"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

func newContentWrite(c domain.Content) contentWrite {
	tags := c.Tags
	if tags == nil {
		tags = []string{}
	}
	w := contentWrite{
		Title:          c.Title,
		Category:       string(c.Category),
		Year:           c.Year,
		Duration:       c.Duration,
		Rating:         c.Rating,
		Description:    c.Description,
		Tags:           tags,
		ThumbnailURL:   c.ThumbnailURL,
		VideoURL:       c.VideoURL,
		YouTubeID:      c.YouTubeID,
		AffiliateURL:   c.Affiliate.URL,
		AffiliateLabel: c.Affiliate.Label,
		AffiliateDesc:  c.Affiliate.Description,
		AffiliateBadge: c.Affiliate.Badge,
	}
	if !c.CreatedAt.IsZero() {
		t := c.CreatedAt.UTC()
		w.CreatedAt = &t
	}
	if !c.UpdatedAt.IsZero() {
		t := c.UpdatedAt.UTC()
		w.UpdatedAt = &t
	}
	return w
}

type counterRow struct {
	ID       rowID  `json:"id"`
	Category string `json:"category"`
	Likes    *int64 `json:"likes"`
}

type likeRow struct {
	ContentID rowID `json:"content_id"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if trimmed := strings.TrimSpace(tag); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
