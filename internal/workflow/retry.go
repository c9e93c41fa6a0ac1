package workflow

import (
	"context"
	"time"
)

// RetryPolicy is an explicit, visible retry policy for agent-local
// transient errors. The executor never retries; agents opt in by
// wrapping flaky work with WithRetry at the call site.
type RetryPolicy struct {
	MaxAttempts  int           `json:"max_attempts"`
	InitialDelay time.Duration `json:"initial_delay"`
	MaxDelay     time.Duration `json:"max_delay"`
	Multiplier   float64       `json:"multiplier"`
}

// DefaultRetryPolicy returns the default bounded backoff policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// Delay returns the backoff before the given 1-based attempt's retry.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt <= 1 {
		return p.InitialDelay
	}
	delay := p.InitialDelay
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * p.Multiplier)
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	return delay
}

// WithRetry runs fn up to policy.MaxAttempts times, backing off between
// attempts. Only errors reporting themselves retryable are retried;
// anything else surfaces immediately. Context cancellation wins over
// the backoff timer.
func WithRetry(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) error) error {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) || attempt == policy.MaxAttempts {
			return lastErr
		}

		select {
		case <-time.After(policy.Delay(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}
