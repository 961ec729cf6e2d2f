// Package seed loads catalog fixtures from YAML and inserts them through the admin service.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"caritauyuk.id/catalog/internal/domain"
	"caritauyuk.id/catalog/internal/platform/requestctx"
	"caritauyuk.id/catalog/internal/services"
)

// CLIAdminEmail identifies writes made by command line tooling in the logs.
const CLIAdminEmail = "cli@caritauyuk.local"

type fixtureFile struct {
	Content []fixture `yaml:"content"`
}

type fixture struct {
	Title        string            `yaml:"title"`
	Category     string            `yaml:"category"`
	Year         *int              `yaml:"year"`
	Duration     string            `yaml:"duration"`
	Rating       *float64          `yaml:"rating"`
	Description  string            `yaml:"description"`
	Tags         []string          `yaml:"tags"`
	ThumbnailURL string            `yaml:"thumbnail_url"`
	VideoURL     string            `yaml:"video_url"`
	YouTubeID    string            `yaml:"youtube_id"`
	Affiliate    *fixtureAffiliate `yaml:"affiliate"`
}

type fixtureAffiliate struct {
	URL         string `yaml:"url"`
	Label       string `yaml:"label"`
	Description string `yaml:"description"`
	Badge       string `yaml:"badge"`
}

// Load decodes a fixture document. Unknown keys are rejected so typos surface early.
func Load(r io.Reader) ([]services.ContentInput, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file fixtureFile
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return []services.ContentInput{}, nil
		}
		return nil, fmt.Errorf("seed: decode fixtures: %w", err)
	}

	out := make([]services.ContentInput, 0, len(file.Content))
	for _, f := range file.Content {
		input := services.ContentInput{
			Title:        f.Title,
			Category:     f.Category,
			Year:         f.Year,
			Duration:     f.Duration,
			Rating:       f.Rating,
			Description:  f.Description,
			Tags:         f.Tags,
			ThumbnailURL: f.ThumbnailURL,
			VideoURL:     f.VideoURL,
			YouTubeID:    f.YouTubeID,
		}
		if f.Affiliate != nil {
			input.Affiliate = domain.Affiliate{
				URL:         f.Affiliate.URL,
				Label:       f.Affiliate.Label,
				Description: f.Affiliate.Description,
				Badge:       f.Affiliate.Badge,
			}
		}
		out = append(out, input)
	}
	return out, nil
}

// LoadFile reads fixtures from path.
func LoadFile(path string) ([]services.ContentInput, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("seed: fixture path is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("seed: open fixtures: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// RowError records one fixture that failed validation.
type RowError struct {
	Index int
	Title string
	Err   error
}

// Report summarises a seed run.
type Report struct {
	Inserted []domain.Content
	Rejected []RowError
}

// Seeder inserts fixtures with a command line admin session.
type Seeder struct {
	admin services.AdminService
	token string
}

// NewSeeder constructs a Seeder. token is forwarded as the admin access token when set.
func NewSeeder(admin services.AdminService, token string) (*Seeder, error) {
	if admin == nil {
		return nil, errors.New("seed: admin service is required")
	}
	return &Seeder{admin: admin, token: strings.TrimSpace(token)}, nil
}

// Run inserts inputs in order. Invalid rows are reported and skipped; a storage failure stops
// the run and is returned together with what was inserted so far.
func (s *Seeder) Run(ctx context.Context, inputs []services.ContentInput) (Report, error) {
	ctx = services.WithAdminSession(ctx, services.AdminSession{
		UserID:      "cli",
		Email:       CLIAdminEmail,
		FullName:    "Command Line",
		AccessToken: s.token,
	})
	logger := requestctx.Logger(ctx).Named("seed")

	report := Report{Inserted: []domain.Content{}, Rejected: []RowError{}}
	for i, input := range inputs {
		created, err := s.admin.Create(ctx, input)
		if err != nil {
			var verr *services.ValidationError
			if errors.As(err, &verr) {
				logger.Warn("fixture rejected", zap.Int("index", i), zap.String("title", input.Title), zap.Error(err))
				report.Rejected = append(report.Rejected, RowError{Index: i, Title: input.Title, Err: err})
				continue
			}
			return report, fmt.Errorf("seed: insert fixture %d: %w", i, err)
		}
		report.Inserted = append(report.Inserted, created)
	}
	logger.Info("seed completed", zap.Int("inserted", len(report.Inserted)), zap.Int("rejected", len(report.Rejected)))
	return report, nil
}
