package service

import (
	"context"
	"time"
)

// RetryPolicy bounds a retried remote call
type RetryPolicy struct {
	MaxAttempts    int
	AttemptTimeout time.Duration
	// Backoff returns the pause after the given failed attempt (1-based).
	Backoff func(attempt int) time.Duration
	// Sleep waits for d or until ctx is done. Tests replace it to avoid real delays.
	Sleep func(ctx context.Context, d time.Duration) error
}

// LinearBackoff pauses attempt*step after each failure
func LinearBackoff(step time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return time.Duration(attempt) * step
	}
}

// DefaultRetryPolicy is three 10s attempts with 1s, 2s pauses between them
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		AttemptTimeout: 10 * time.Second,
		Backoff:        LinearBackoff(time.Second),
		Sleep:          sleepContext,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Backoff == nil {
		p.Backoff = func(int) time.Duration { return 0 }
	}
	if p.Sleep == nil {
		p.Sleep = sleepContext
	}
	return p
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
