package services

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"caritauyuk.id/catalog/internal/domain"
	"caritauyuk.id/catalog/internal/platform/requestctx"
	"caritauyuk.id/catalog/internal/repositories"
)

// LikeServiceDeps groups constructor parameters for the like service.
type LikeServiceDeps struct {
	Content  repositories.ContentRepository
	Likes    repositories.LikeRepository
	Counters repositories.CounterRepository
	Clock    func() time.Time
}

type likeService struct {
	content  repositories.ContentRepository
	likes    repositories.LikeRepository
	counters repositories.CounterRepository
	clock    func() time.Time
	inflight singleflight.Group
}

// NewLikeService constructs the like toggle service.
func NewLikeService(deps LikeServiceDeps) (LikeService, error) {
	if deps.Content == nil || deps.Likes == nil || deps.Counters == nil {
		return nil, ErrRepositoryMissing
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &likeService{
		content:  deps.Content,
		likes:    deps.Likes,
		counters: deps.Counters,
		clock:    func() time.Time { return clock().UTC() },
	}, nil
}

// Toggle flips the session's like on contentID and returns the fresh counter. Concurrent
// toggles for the same pair share one execution and one result.
func (s *likeService) Toggle(ctx context.Context, contentID, sessionID string) (domain.LikeResult, error) {
	contentID = strings.TrimSpace(contentID)
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return domain.LikeResult{}, ErrInvalidSession
	}
	if contentID == "" {
		return domain.LikeResult{}, ErrContentNotFound
	}

	key := contentID + "\x00" + sessionID
	v, err, shared := s.inflight.Do(key, func() (any, error) {
		// Detach from the first caller's cancellation so a coalesced caller is not failed by it.
		return s.toggle(context.WithoutCancel(ctx), contentID, sessionID)
	})
	if shared {
		requestctx.Logger(ctx).Debug("like toggle coalesced", zap.String("content_id", contentID))
	}
	if err != nil {
		return domain.LikeResult{}, err
	}
	return v.(domain.LikeResult), nil
}

func (s *likeService) toggle(ctx context.Context, contentID, sessionID string) (domain.LikeResult, error) {
	logger := requestctx.Logger(ctx).With(zap.String("content_id", contentID))

	exists, err := s.likes.Exists(ctx, contentID, sessionID)
	if err != nil {
		logger.Warn("like lookup failed", zap.Error(err))
		return domain.LikeResult{}, mapRepositoryError(err)
	}

	var result domain.LikeResult
	if exists {
		if err := s.likes.Delete(ctx, contentID, sessionID); err != nil {
			logger.Warn("like delete failed", zap.Error(err))
			return domain.LikeResult{}, mapRepositoryError(err)
		}
		if err := s.counters.Decrement(ctx, contentID); err != nil {
			logger.Error("like counter decrement failed after delete", zap.Error(err))
			return domain.LikeResult{}, mapRepositoryError(err)
		}
		result.Liked = false
	} else {
		record := domain.LikeRecord{ContentID: contentID, SessionID: sessionID, CreatedAt: s.clock()}
		err := s.likes.Insert(ctx, record)
		switch {
		case repositories.IsConflict(err):
			// another process inserted the same record first and owns the increment
			logger.Info("like already recorded")
		case err != nil:
			logger.Warn("like insert failed", zap.Error(err))
			return domain.LikeResult{}, mapRepositoryError(err)
		default:
			if err := s.counters.Increment(ctx, contentID); err != nil {
				logger.Error("like counter increment failed after insert", zap.Error(err))
				return domain.LikeResult{}, mapRepositoryError(err)
			}
		}
		result.Liked = true
	}

	content, err := s.content.FindByID(ctx, contentID)
	if err != nil {
		logger.Warn("like counter reload failed", zap.Error(err))
		return domain.LikeResult{}, mapRepositoryError(err)
	}
	result.Likes = content.Likes
	return result, nil
}

func (s *likeService) Status(ctx context.Context, contentID, sessionID string) (bool, error) {
	if strings.TrimSpace(sessionID) == "" || strings.TrimSpace(contentID) == "" {
		return false, nil
	}
	liked, err := s.likes.Exists(ctx, contentID, sessionID)
	if err != nil {
		return false, err
	}
	return liked, nil
}

// LikedIDs returns the set of contentIDs liked by sessionID, using a single lookup.
func (s *likeService) LikedIDs(ctx context.Context, sessionID string, contentIDs []string) (map[string]bool, error) {
	out := make(map[string]bool)
	if strings.TrimSpace(sessionID) == "" || len(contentIDs) == 0 {
		return out, nil
	}
	ids, err := s.likes.LikedContentIDs(ctx, sessionID, contentIDs)
	if err != nil {
		return out, err
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}
