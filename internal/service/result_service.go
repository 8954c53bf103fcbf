package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"in8/internal/metrics"
	"in8/internal/model"
	"in8/internal/repository"
)

// ResultService commits finished surveys and serves result history
type ResultService struct {
	results      repository.ResultRepo
	users        repository.UserRepo
	broadcaster  Broadcaster
	metrics      *metrics.Metrics
	logger       *zap.Logger
	now          func() time.Time
	fallbackScan int
	defaultLimit int
}

// NewResultService creates a new result service
func NewResultService(results repository.ResultRepo, users repository.UserRepo, m *metrics.Metrics, logger *zap.Logger) *ResultService {
	return &ResultService{
		results:      results,
		users:        users,
		metrics:      m,
		logger:       logger.Named("results"),
		now:          time.Now,
		fallbackScan: 500,
		defaultLimit: 50,
	}
}

// SetBroadcaster sets the broadcaster for admin events
func (s *ResultService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SetHistoryLimits sets the default page size and the unindexed scan bound
func (s *ResultService) SetHistoryLimits(defaultLimit, fallbackScan int) {
	if defaultLimit > 0 {
		s.defaultLimit = defaultLimit
	}
	if fallbackScan > 0 {
		s.fallbackScan = fallbackScan
	}
}

// Commit appends the result, then updates the user summary. If only the
// summary update fails the result stays committed and its id is returned.
func (s *ResultService) Commit(ctx context.Context, userID string, result *model.RankedResult) (string, error) {
	if userID == "" || result == nil {
		return "", fmt.Errorf("%w: missing user or result", ErrPersistence)
	}

	now := s.now()
	stored := &model.StoredResult{
		UserID:       userID,
		RankedResult: *result,
		CreatedAt:    now,
	}
	stored.Answers = result.Answers.Clone()
	stored.Scores = append([]model.ScoreEntry(nil), result.Scores...)

	id, err := s.results.Add(ctx, stored)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	s.metrics.ResultCommitted()

	if err := s.users.ApplyResult(ctx, userID, result.TopConstitution, now); err != nil {
		s.metrics.SummaryUpdateFailed()
		s.logger.Error("user summary update failed; summary is stale until reconciled",
			zap.String("userId", userID),
			zap.String("resultId", id),
			zap.Error(err))
	}

	s.logger.Info("survey result committed",
		zap.String("userId", userID),
		zap.String("resultId", id),
		zap.String("top", string(result.TopConstitution.Constitution)),
		zap.Float64("score", result.TopConstitution.Score))

	if s.broadcaster != nil {
		s.broadcaster.BroadcastToAdmins(EventSurveyCompleted, map[string]interface{}{
			"resultId":        id,
			"userId":          userID,
			"topConstitution": result.TopConstitution,
			"timestamp":       now,
		})
	}
	return id, nil
}

// History returns the user's results, newest first. When the per-user index
// is missing it scans a bounded page of recent results and filters locally.
func (s *ResultService) History(ctx context.Context, userID string, limit int) ([]*model.StoredResult, error) {
	if limit <= 0 {
		limit = s.defaultLimit
	}

	results, err := s.results.ListByUser(ctx, userID, limit)
	if err == nil {
		return results, nil
	}
	if !errors.Is(err, repository.ErrIndexUnavailable) {
		return nil, fmt.Errorf("history: %w", err)
	}

	s.metrics.HistoryFallback()
	s.logger.Warn("history index unavailable, using unindexed scan",
		zap.String("userId", userID), zap.Int("scan", s.fallbackScan), zap.Error(err))

	page, err := s.results.ListRecent(ctx, s.fallbackScan)
	if err != nil {
		return nil, fmt.Errorf("history fallback: %w", err)
	}

	mine := make([]*model.StoredResult, 0, limit)
	for _, r := range page {
		if r.UserID == userID {
			mine = append(mine, r)
		}
	}
	sortNewestFirst(mine)
	if len(mine) > limit {
		mine = mine[:limit]
	}
	return mine, nil
}

// ReconcileSummary rebuilds the user's summary from stored history
func (s *ResultService) ReconcileSummary(ctx context.Context, userID string) (*model.UserSummary, error) {
	count, err := s.results.CountByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count results: %w", err)
	}
	latest, err := s.results.LatestByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("latest result: %w", err)
	}

	var top *model.ScoreEntry
	var at *time.Time
	if latest != nil {
		top = &latest.TopConstitution
		at = &latest.CreatedAt
	}
	if err := s.users.SetSummary(ctx, userID, count, top, at); err != nil {
		return nil, fmt.Errorf("write summary: %w", err)
	}
	s.logger.Info("user summary reconciled", zap.String("userId", userID), zap.Int64("surveyCount", count))
	return s.users.Get(ctx, userID)
}

func sortNewestFirst(results []*model.StoredResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if !results[i].CreatedAt.Equal(results[j].CreatedAt) {
			return results[i].CreatedAt.After(results[j].CreatedAt)
		}
		return results[i].ID > results[j].ID
	})
}
