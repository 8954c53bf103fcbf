package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"in8/internal/cache"
	"in8/internal/metrics"
	"in8/internal/model"
	"in8/internal/repository"
)

// TemplateSource names where a fetched template came from
type TemplateSource string

const (
	SourceRemote  TemplateSource = "remote"
	SourceBackup  TemplateSource = "backup"
	SourceDefault TemplateSource = "default"
)

var errNoPublishedTemplate = errors.New("no template published")

// TemplateLoader fetches the current survey template with retries and
// falls back to the backup cache and then the bundled default.
type TemplateLoader struct {
	remote      repository.TemplateRepo
	backup      cache.TemplateBackup
	policy      RetryPolicy
	fallback    func() (*model.SurveyTemplate, error)
	broadcaster Broadcaster
	metrics     *metrics.Metrics
	logger      *zap.Logger
	now         func() time.Time
}

// NewTemplateLoader creates a new template loader
func NewTemplateLoader(
	remote repository.TemplateRepo,
	backup cache.TemplateBackup,
	policy RetryPolicy,
	m *metrics.Metrics,
	logger *zap.Logger,
) *TemplateLoader {
	return &TemplateLoader{
		remote:   remote,
		backup:   backup,
		policy:   policy.withDefaults(),
		fallback: DefaultTemplate,
		metrics:  m,
		logger:   logger.Named("template"),
		now:      time.Now,
	}
}

// SetBroadcaster sets the broadcaster for admin events
func (l *TemplateLoader) SetBroadcaster(b Broadcaster) {
	l.broadcaster = b
}

// SetFallback replaces the bundled default; nil disables it
func (l *TemplateLoader) SetFallback(fn func() (*model.SurveyTemplate, error)) {
	l.fallback = fn
}

// Fetch returns a usable template snapshot or ErrTemplateUnavailable.
// It never returns an empty or structurally invalid template.
func (l *TemplateLoader) Fetch(ctx context.Context) (*model.SurveyTemplate, TemplateSource, error) {
	tpl, remoteErr := l.fetchRemote(ctx)
	if remoteErr == nil {
		if err := l.backup.Save(ctx, tpl); err != nil {
			l.logger.Warn("template backup write failed", zap.Error(err))
		}
		l.metrics.TemplateServed(string(SourceRemote))
		return tpl, SourceRemote, nil
	}
	l.logger.Warn("remote template unavailable, falling back", zap.Error(remoteErr))

	backup, savedAt, err := l.backup.Load(ctx)
	switch {
	case err != nil:
		l.logger.Warn("template backup read failed", zap.Error(err))
	case backup == nil:
		l.logger.Info("no template backup present")
	default:
		if verr := backup.Validate(); verr != nil {
			l.logger.Warn("template backup is invalid", zap.Error(verr))
		} else {
			l.logger.Info("serving template from backup", zap.Time("savedAt", savedAt))
			l.metrics.TemplateServed(string(SourceBackup))
			return backup, SourceBackup, nil
		}
	}

	if l.fallback != nil {
		def, err := l.fallback()
		if err == nil {
			err = def.Validate()
		}
		if err == nil {
			l.logger.Info("serving bundled default template")
			l.metrics.TemplateServed(string(SourceDefault))
			return def, SourceDefault, nil
		}
		l.logger.Error("bundled template unusable", zap.Error(err))
	}

	return nil, "", fmt.Errorf("%w: %v", ErrTemplateUnavailable, remoteErr)
}

func (l *TemplateLoader) fetchRemote(ctx context.Context) (*model.SurveyTemplate, error) {
	var lastErr error
	for attempt := 1; attempt <= l.policy.MaxAttempts; attempt++ {
		tpl, err := l.attempt(ctx)
		if err == nil {
			if tpl == nil {
				return nil, errNoPublishedTemplate
			}
			// Bad data does not improve on retry.
			if verr := tpl.Validate(); verr != nil {
				return nil, verr
			}
			return tpl, nil
		}

		lastErr = err
		l.logger.Warn("template fetch attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", l.policy.MaxAttempts),
			zap.Error(err))

		if attempt < l.policy.MaxAttempts {
			if serr := l.policy.Sleep(ctx, l.policy.Backoff(attempt)); serr != nil {
				return nil, fmt.Errorf("template fetch interrupted: %w", serr)
			}
		}
	}
	return nil, fmt.Errorf("template fetch failed after %d attempts: %w", l.policy.MaxAttempts, lastErr)
}

type templateOutcome struct {
	tpl *model.SurveyTemplate
	err error
}

// attempt races one remote read against the per-attempt timer
func (l *TemplateLoader) attempt(ctx context.Context) (*model.SurveyTemplate, error) {
	actx := ctx
	if l.policy.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, l.policy.AttemptTimeout)
		defer cancel()
	}

	ch := make(chan templateOutcome, 1)
	go func() {
		tpl, err := l.remote.GetCurrent(actx)
		ch <- templateOutcome{tpl: tpl, err: err}
	}()

	select {
	case out := <-ch:
		return out.tpl, out.err
	case <-actx.Done():
		return nil, fmt.Errorf("template fetch attempt: %w", actx.Err())
	}
}

// Publish validates and stores a new current template, refreshing the backup
func (l *TemplateLoader) Publish(ctx context.Context, tpl *model.SurveyTemplate) error {
	if err := tpl.Validate(); err != nil {
		return err
	}
	stored := tpl.Clone()
	stored.UpdatedAt = l.now()

	if err := l.remote.PutCurrent(ctx, stored); err != nil {
		return fmt.Errorf("publish template: %w", err)
	}
	if err := l.backup.Save(ctx, stored); err != nil {
		l.logger.Warn("template backup write failed after publish", zap.Error(err))
	}
	l.logger.Info("template published",
		zap.Int("questions", stored.TotalQuestions()),
		zap.Int("constitutions", len(stored.Constitutions)))

	if l.broadcaster != nil {
		l.broadcaster.BroadcastToAdmins(EventTemplatePublished, map[string]interface{}{
			"questions": stored.TotalQuestions(),
			"updatedAt": stored.UpdatedAt,
		})
	}
	return nil
}
