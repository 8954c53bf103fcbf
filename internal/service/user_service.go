package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"in8/internal/model"
	"in8/internal/repository"
)

const userCountWorkers = 8

type sessionDiscarder interface {
	Discard(userID string)
}

// UserService manages survey-taker profiles
type UserService struct {
	users       repository.UserRepo
	results     repository.ResultRepo
	progress    *ProgressStore
	sessions    sessionDiscarder
	broadcaster Broadcaster
	logger      *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(users repository.UserRepo, results repository.ResultRepo, progress *ProgressStore, logger *zap.Logger) *UserService {
	return &UserService{
		users:    users,
		results:  results,
		progress: progress,
		logger:   logger.Named("users"),
	}
}

// SetBroadcaster sets the broadcaster for admin events
func (s *UserService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SetSessions sets the live sessions to end when a user is deleted
func (s *UserService) SetSessions(sessions sessionDiscarder) {
	s.sessions = sessions
}

// EnsureProfile creates the user on first sight and merges name and login type
func (s *UserService) EnsureProfile(ctx context.Context, req model.SessionRequest) error {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return ErrMissingUserID
	}
	if err := s.users.UpsertProfile(ctx, userID, strings.TrimSpace(req.Name), req.LoginType); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// Summary returns the user's aggregate, or nil if the user is unknown
func (s *UserService) Summary(ctx context.Context, userID string) (*model.UserSummary, error) {
	return s.users.Get(ctx, userID)
}

// ListUsers returns every user with the number of results actually stored
func (s *UserService) ListUsers(ctx context.Context) ([]*model.UserListEntry, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	entries := make([]*model.UserListEntry, len(users))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(userCountWorkers)
	for i, u := range users {
		i, u := i, u
		entries[i] = &model.UserListEntry{UserSummary: *u}
		g.Go(func() error {
			n, err := s.results.CountByUser(gctx, u.UserID)
			if err != nil {
				return fmt.Errorf("count results for %s: %w", u.UserID, err)
			}
			entries[i].ActualSurveyCount = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

// DeleteUser ends the user's live session, then removes their results,
// progress and summary
func (s *UserService) DeleteUser(ctx context.Context, userID string) (int64, error) {
	if s.sessions != nil {
		s.sessions.Discard(userID)
	}
	deleted, err := s.results.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("delete results: %w", err)
	}
	if err := s.progress.Clear(ctx, userID); err != nil {
		s.logger.Warn("clearing progress of deleted user failed", zap.String("userId", userID), zap.Error(err))
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return deleted, fmt.Errorf("delete user: %w", err)
	}

	s.logger.Info("user deleted", zap.String("userId", userID), zap.Int64("results", deleted))
	if s.broadcaster != nil {
		s.broadcaster.BroadcastToAdmins(EventUserDeleted, map[string]interface{}{
			"userId":         userID,
			"deletedResults": deleted,
		})
	}
	return deleted, nil
}
