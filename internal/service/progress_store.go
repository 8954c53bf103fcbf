package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"in8/internal/cache"
	"in8/internal/metrics"
	"in8/internal/model"
	"in8/internal/repository"
)

const (
	remoteProgressTimeout = 2 * time.Second
	localProgressTimeout  = 2 * time.Second
)

// ProgressStore keeps one checkpoint per user in both the remote store and
// the local cache. Reads prefer the remote copy.
// Each remote call gets its own deadline; local calls run detached from the
// caller's deadline.
type ProgressStore struct {
	remote  repository.ProgressRepo
	local   cache.ProgressCache
	metrics *metrics.Metrics
	logger  *zap.Logger

	remoteTimeout time.Duration
	localTimeout  time.Duration
}

// NewProgressStore creates a new progress store
func NewProgressStore(remote repository.ProgressRepo, local cache.ProgressCache, m *metrics.Metrics, logger *zap.Logger) *ProgressStore {
	return &ProgressStore{
		remote:  remote,
		local:   local,
		metrics: m,
		logger:  logger.Named("progress"),

		remoteTimeout: remoteProgressTimeout,
		localTimeout:  localProgressTimeout,
	}
}

func (s *ProgressStore) remoteCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.remoteTimeout)
}

func (s *ProgressStore) localCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.localTimeout)
}

// Save overwrites the user's checkpoint. A remote failure is logged and
// dropped; only a failed local write is returned.
func (s *ProgressStore) Save(ctx context.Context, rec *model.ProgressRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	rctx, rcancel := s.remoteCtx(ctx)
	err := s.remote.Put(rctx, rec)
	rcancel()
	if err != nil {
		s.metrics.CheckpointFailed("remote")
		s.logger.Warn("remote checkpoint failed, keeping local copy",
			zap.String("userId", rec.UserID),
			zap.Int("questionIndex", rec.CurrentQuestionIndex),
			zap.Error(err))
	}

	lctx, lcancel := s.localCtx(ctx)
	defer lcancel()
	if err := s.local.Set(lctx, rec); err != nil {
		s.metrics.CheckpointFailed("local")
		return fmt.Errorf("local checkpoint: %w", err)
	}
	return nil
}

// Load returns the remote record when present, else the local one, else nil
func (s *ProgressStore) Load(ctx context.Context, userID string) (*model.ProgressRecord, error) {
	rctx, rcancel := s.remoteCtx(ctx)
	rec, err := s.remote.Get(rctx, userID)
	rcancel()
	if err != nil {
		s.logger.Warn("remote progress read failed, trying local cache",
			zap.String("userId", userID), zap.Error(err))
	} else if rec != nil {
		return rec, nil
	}

	lctx, lcancel := s.localCtx(ctx)
	defer lcancel()
	local, lerr := s.local.Get(lctx, userID)
	if lerr != nil {
		if err != nil {
			return nil, fmt.Errorf("load progress: remote: %v; local: %w", err, lerr)
		}
		return nil, fmt.Errorf("load progress: %w", lerr)
	}
	if local != nil {
		s.logger.Debug("progress served from local cache", zap.String("userId", userID))
	}
	return local, nil
}

// Clear deletes both copies. Both deletes are attempted even if one fails.
func (s *ProgressStore) Clear(ctx context.Context, userID string) error {
	rctx, rcancel := s.remoteCtx(ctx)
	rerr := s.remote.Delete(rctx, userID)
	rcancel()

	lctx, lcancel := s.localCtx(ctx)
	lerr := s.local.Delete(lctx, userID)
	lcancel()

	switch {
	case rerr != nil && lerr != nil:
		return fmt.Errorf("clear progress: remote: %v; local: %w", rerr, lerr)
	case rerr != nil:
		return fmt.Errorf("clear remote progress: %w", rerr)
	case lerr != nil:
		return fmt.Errorf("clear local progress: %w", lerr)
	}
	return nil
}
