package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"caritauyuk.id/catalog/internal/domain"
	"caritauyuk.id/catalog/internal/platform/requestctx"
	"caritauyuk.id/catalog/internal/repositories"
)

// ReconcileServiceDeps groups constructor parameters for the counter reconciler.
type ReconcileServiceDeps struct {
	Content  repositories.ContentRepository
	Likes    repositories.LikeRepository
	Counters repositories.CounterRepository
	Clock    func() time.Time
	// DryRun reports drift without rewriting counters.
	DryRun bool
}

// ReconcileReport summarises one reconcile pass.
type ReconcileReport struct {
	Checked  int
	Repaired int
	Skipped  int
	Drift    []domain.LikeDrift
	Failed   int
	Started  time.Time
	Finished time.Time
}

type reconcileService struct {
	content  repositories.ContentRepository
	likes    repositories.LikeRepository
	counters repositories.CounterRepository
	clock    func() time.Time
	dryRun   bool
}

// NewReconcileService constructs the like-counter reconciler.
func NewReconcileService(deps ReconcileServiceDeps) (ReconcileService, error) {
	if deps.Content == nil || deps.Likes == nil || deps.Counters == nil {
		return nil, ErrRepositoryMissing
	}
	return &reconcileService{
		content:  deps.Content,
		likes:    deps.Likes,
		counters: deps.Counters,
		clock:    clockOrNow(deps.Clock),
		dryRun:   deps.DryRun,
	}, nil
}

// Run compares every stored counter with the number of like records and rewrites mismatches.
// A failure on one row is logged and counted; the pass continues.
func (s *reconcileService) Run(ctx context.Context) (ReconcileReport, error) {
	logger := requestctx.Logger(ctx)
	report := ReconcileReport{Started: s.clock()}

	counters, err := s.content.Counters(ctx)
	if err != nil {
		return report, err
	}
	actual, err := s.likes.CountByContent(ctx)
	if err != nil {
		return report, err
	}

	for _, counter := range counters {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Checked++
		want := actual[counter.ID]
		if counter.Likes == want {
			continue
		}
		drift := domain.LikeDrift{ContentID: counter.ID, Stored: counter.Likes, Actual: want}
		report.Drift = append(report.Drift, drift)
		logger.Warn("like counter drift",
			zap.String("content_id", drift.ContentID),
			zap.Int64("stored", drift.Stored),
			zap.Int64("actual", drift.Actual),
		)
		if s.dryRun {
			continue
		}
		swapped, err := s.counters.CompareAndSet(ctx, counter.ID, counter.Likes, want)
		if err != nil {
			report.Failed++
			logger.Error("like counter repair failed", zap.String("content_id", counter.ID), zap.Error(err))
			continue
		}
		if !swapped {
			// a toggle moved the counter after it was read; the next pass re-checks it
			report.Skipped++
			logger.Info("like counter changed during reconcile", zap.String("content_id", counter.ID))
			continue
		}
		report.Repaired++
	}

	report.Finished = s.clock()
	logger.Info("like counters reconciled",
		zap.Int("checked", report.Checked),
		zap.Int("drifted", len(report.Drift)),
		zap.Int("repaired", report.Repaired),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}
