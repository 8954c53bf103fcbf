package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"in8/internal/model"
)

type templateFetcher interface {
	Fetch(ctx context.Context) (*model.SurveyTemplate, TemplateSource, error)
}

// SessionService owns the live survey session of each user
type SessionService struct {
	mu       sync.Mutex
	sessions map[string]*Session

	templates templateFetcher
	progress  *ProgressStore
	results   *ResultService
	timeout   time.Duration
	logger    *zap.Logger
}

// NewSessionService creates a new session service. timeout bounds each
// checkpoint and commit issued by a session.
func NewSessionService(templates templateFetcher, progress *ProgressStore, results *ResultService, timeout time.Duration, logger *zap.Logger) *SessionService {
	return &SessionService{
		sessions:  make(map[string]*Session),
		templates: templates,
		progress:  progress,
		results:   results,
		timeout:   timeout,
		logger:    logger,
	}
}

// Open replaces the user's session with a fresh NotStarted one, built on
// the current template and whatever progress the user has saved.
func (s *SessionService) Open(ctx context.Context, userID string) (*Session, error) {
	tpl, source, err := s.templates.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	saved, err := s.progress.Load(ctx, userID)
	if err != nil {
		s.logger.Warn("could not load saved progress, opening without it",
			zap.String("userId", userID), zap.Error(err))
		saved = nil
	}
	if saved != nil && len(saved.Answers) == 0 {
		// Nothing worth resuming.
		saved = nil
	}

	sess := NewSession(userID, tpl, saved, s.progress, s.results, s.timeout, s.logger)
	sess.onCompleted = s.release
	s.logger.Debug("session opened",
		zap.String("userId", userID),
		zap.String("templateSource", string(source)),
		zap.Bool("hasSavedProgress", saved != nil))

	s.mu.Lock()
	prev := s.sessions[userID]
	s.sessions[userID] = sess
	s.mu.Unlock()
	if prev != nil {
		prev.close()
	}
	return sess, nil
}

// Get returns the user's current session
func (s *SessionService) Get(userID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return nil, ErrNoSession
	}
	return sess, nil
}

// Discard closes and forgets the user's session. Saved progress is untouched.
// Once Discard returns the session writes nothing more.
func (s *SessionService) Discard(userID string) {
	s.mu.Lock()
	sess := s.sessions[userID]
	delete(s.sessions, userID)
	s.mu.Unlock()
	if sess != nil {
		sess.close()
	}
}

// Len reports how many sessions are held
func (s *SessionService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// release drops a completed session unless it was already replaced
func (s *SessionService) release(sess *Session) {
	s.mu.Lock()
	if s.sessions[sess.userID] == sess {
		delete(s.sessions, sess.userID)
	}
	s.mu.Unlock()
}

// SavedProgress returns the user's checkpoint, if any
func (s *SessionService) SavedProgress(ctx context.Context, userID string) (*model.ProgressRecord, error) {
	return s.progress.Load(ctx, userID)
}
