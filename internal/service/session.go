package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"in8/internal/model"
	"in8/internal/scoring"
)

// SessionStatus is the lifecycle state of a survey session
type SessionStatus string

const (
	StatusNotStarted SessionStatus = "not_started"
	StatusInProgress SessionStatus = "in_progress"
	StatusCompleted  SessionStatus = "completed"
)

// ResumeChoice is the user's answer to the saved-progress prompt
type ResumeChoice string

const (
	ChoiceUnspecified ResumeChoice = ""
	ChoiceResume      ResumeChoice = "resume"
	ChoiceRestart     ResumeChoice = "restart"
)

type checkpointStore interface {
	Save(ctx context.Context, rec *model.ProgressRecord) error
	Clear(ctx context.Context, userID string) error
}

type resultCommitter interface {
	Commit(ctx context.Context, userID string, result *model.RankedResult) (string, error)
}

// SessionState is a read-only snapshot of a session
type SessionState struct {
	SessionID            string                `json:"sessionId"`
	UserID               string                `json:"userId"`
	Status               SessionStatus         `json:"status"`
	CurrentQuestionIndex int                   `json:"currentQuestionIndex"`
	TotalQuestions       int                   `json:"totalQuestions"`
	AnsweredCount        int                   `json:"answeredCount"`
	Answers              model.AnswerMap       `json:"answers"`
	CurrentQuestion      *model.Question       `json:"currentQuestion,omitempty"`
	SavedProgress        *model.ProgressRecord `json:"savedProgress,omitempty"`
	Result               *model.RankedResult   `json:"result,omitempty"`
	ResultID             string                `json:"resultId,omitempty"`
}

// Session drives one user through one template. All methods are safe for
// concurrent use; mutations are serialized.
type Session struct {
	mu sync.Mutex

	id       string
	userID   string
	template *model.SurveyTemplate
	saved    *model.ProgressRecord

	status   SessionStatus
	current  int
	answers  model.AnswerMap
	result   *model.RankedResult
	resultID string
	closed   bool

	// onCompleted runs once the session reaches Completed, outside mu
	onCompleted func(*Session)

	progress checkpointStore
	results  resultCommitter
	timeout  time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// NewSession creates a NotStarted session over a snapshot of tpl. saved is
// the checkpoint found for the user, if any.
func NewSession(userID string, tpl *model.SurveyTemplate, saved *model.ProgressRecord, progress checkpointStore, results resultCommitter, timeout time.Duration, logger *zap.Logger) *Session {
	id := uuid.New().String()
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Session{
		id:       id,
		userID:   userID,
		template: tpl.Clone(),
		saved:    saved,
		status:   StatusNotStarted,
		answers:  model.AnswerMap{},
		progress: progress,
		results:  results,
		timeout:  timeout,
		now:      time.Now,
		logger:   logger.Named("session").With(zap.String("sessionId", id), zap.String("userId", userID)),
	}
}

// Template returns the session's template snapshot
func (s *Session) Template() *model.SurveyTemplate {
	return s.template.Clone()
}

// State returns a snapshot of the session
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() SessionState {
	st := SessionState{
		SessionID:            s.id,
		UserID:               s.userID,
		Status:               s.status,
		CurrentQuestionIndex: s.current,
		TotalQuestions:       s.template.TotalQuestions(),
		AnsweredCount:        len(s.answers),
		Answers:              s.answers.Clone(),
		Result:               s.result,
		ResultID:             s.resultID,
	}
	if s.status == StatusInProgress {
		q := s.template.Questions[s.current]
		st.CurrentQuestion = &q
	}
	if s.status == StatusNotStarted && s.saved != nil {
		saved := *s.saved
		saved.Answers = s.saved.Answers.Clone()
		st.SavedProgress = &saved
	}
	return st
}

// Start enters InProgress. When saved progress exists the caller must pass
// ChoiceResume or ChoiceRestart; the choice is never guessed.
func (s *Session) Start(ctx context.Context, choice ResumeChoice) (SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return s.stateLocked(), ErrNoSession
	}
	if s.status != StatusNotStarted {
		return s.stateLocked(), fmt.Errorf("%w: session is %s", ErrAlreadyStarted, s.status)
	}

	if s.saved != nil {
		switch choice {
		case ChoiceResume:
			if err := s.saved.FitsTemplate(s.template); err != nil {
				return s.stateLocked(), fmt.Errorf("%w: %v", ErrProgressMismatch, err)
			}
			s.current = s.saved.CurrentQuestionIndex
			s.answers = s.saved.Answers.Clone()
			if s.answers == nil {
				s.answers = model.AnswerMap{}
			}
			s.saved = nil
			s.status = StatusInProgress
			s.logger.Info("session resumed",
				zap.Int("questionIndex", s.current), zap.Int("answered", len(s.answers)))
			return s.stateLocked(), nil
		case ChoiceRestart:
			cctx, cancel := s.detached(ctx)
			defer cancel()
			if err := s.progress.Clear(cctx, s.userID); err != nil {
				s.logger.Warn("clearing stale progress failed", zap.Error(err))
			}
		default:
			return s.stateLocked(), ErrResumeChoiceRequired
		}
	}

	s.current = 0
	s.answers = model.AnswerMap{}
	s.saved = nil
	s.status = StatusInProgress
	s.logger.Info("session started", zap.Int("questions", s.template.TotalQuestions()))
	return s.stateLocked(), nil
}

// SelectOption records an answer for the current question, checkpoints, and
// either advances or, on the last question, completes the survey.
func (s *Session) SelectOption(ctx context.Context, optionIndex int) (SessionState, error) {
	s.mu.Lock()
	st, err := s.selectLocked(ctx, optionIndex)
	s.mu.Unlock()
	s.notifyCompleted(st)
	return st, err
}

func (s *Session) selectLocked(ctx context.Context, optionIndex int) (SessionState, error) {
	if err := s.activeLocked(); err != nil {
		return s.stateLocked(), err
	}
	opts := s.template.Questions[s.current].Options
	if optionIndex < 0 || optionIndex >= len(opts) {
		return s.stateLocked(), fmt.Errorf("%w: option %d of %d on question %d",
			scoring.ErrInvalidIndex, optionIndex, len(opts), s.current)
	}

	s.answers[s.current] = optionIndex
	last := s.current == s.template.TotalQuestions()-1
	if !last {
		s.current++
	}
	s.checkpointLocked(ctx)

	if last {
		return s.completeLocked(ctx)
	}
	return s.stateLocked(), nil
}

// Previous moves back one question; it stays put on the first question
func (s *Session) Previous() (SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.activeLocked(); err != nil {
		return s.stateLocked(), err
	}
	if s.current > 0 {
		s.current--
	}
	return s.stateLocked(), nil
}

// Next moves forward one question. It refuses while the current question is
// unanswered and stays put on the last question.
func (s *Session) Next(ctx context.Context) (SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.activeLocked(); err != nil {
		return s.stateLocked(), err
	}
	if _, ok := s.answers[s.current]; !ok {
		return s.stateLocked(), ErrUnanswered
	}
	if s.current < s.template.TotalQuestions()-1 {
		s.current++
		s.checkpointLocked(ctx)
	}
	return s.stateLocked(), nil
}

// Abandon scores the answers given so far for display and keeps the
// progress resumable. The session stays InProgress.
func (s *Session) Abandon(ctx context.Context) (*model.RankedResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.activeLocked(); err != nil {
		return nil, err
	}
	res, err := scoring.Evaluate(s.template, s.answers, s.now())
	if err != nil {
		return nil, err
	}
	s.checkpointLocked(ctx)
	s.logger.Info("session abandoned with partial result",
		zap.Int("answered", res.AnsweredCount),
		zap.String("top", string(res.TopConstitution.Constitution)))
	return res, nil
}

// Complete commits the final result. Unanswered questions reposition the
// session to the first one and return an *IncompleteError. A commit failure
// leaves the session InProgress so completion can be retried.
func (s *Session) Complete(ctx context.Context) (SessionState, error) {
	s.mu.Lock()
	st, err := s.completeLocked(ctx)
	s.mu.Unlock()
	s.notifyCompleted(st)
	return st, err
}

func (s *Session) completeLocked(ctx context.Context) (SessionState, error) {
	if err := s.activeLocked(); err != nil {
		return s.stateLocked(), err
	}

	if i := scoring.FirstUnanswered(s.template.TotalQuestions(), s.answers); i >= 0 {
		s.current = i
		return s.stateLocked(), &IncompleteError{QuestionIndex: i}
	}

	res, err := scoring.Evaluate(s.template, s.answers, s.now())
	if err != nil {
		return s.stateLocked(), err
	}

	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	id, err := s.results.Commit(cctx, s.userID, res)
	cancel()
	if err != nil {
		s.logger.Error("result commit failed; session remains in progress", zap.Error(err))
		if !errors.Is(err, ErrPersistence) {
			err = fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		return s.stateLocked(), err
	}

	clearCtx, clearCancel := s.detached(ctx)
	if err := s.progress.Clear(clearCtx, s.userID); err != nil {
		s.logger.Warn("clearing progress after completion failed", zap.String("resultId", id), zap.Error(err))
	}
	clearCancel()

	s.status = StatusCompleted
	s.result = res
	s.resultID = id
	s.logger.Info("session completed", zap.String("resultId", id))
	return s.stateLocked(), nil
}

// close ends the session for good. It waits for an in-flight operation, so
// nothing the session writes can land after close returns.
func (s *Session) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *Session) activeLocked() error {
	if s.closed {
		return ErrNoSession
	}
	if s.status != StatusInProgress {
		return ErrNotInProgress
	}
	return nil
}

func (s *Session) notifyCompleted(st SessionState) {
	if st.Status == StatusCompleted && s.onCompleted != nil {
		s.onCompleted(s)
	}
}

// checkpointLocked saves progress; failures are logged, never returned
func (s *Session) checkpointLocked(ctx context.Context) {
	rec := &model.ProgressRecord{
		UserID:               s.userID,
		CurrentQuestionIndex: s.current,
		Answers:              s.answers.Clone(),
		Timestamp:            s.now(),
	}
	cctx, cancel := s.detached(ctx)
	defer cancel()
	if err := s.progress.Save(cctx, rec); err != nil {
		s.logger.Warn("checkpoint failed", zap.Int("questionIndex", s.current), zap.Error(err))
	}
}

// detached bounds best-effort writes without tying them to the caller's
// cancellation, so a dropped request still lands its checkpoint.
func (s *Session) detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
}
