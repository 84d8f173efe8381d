package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// Retrier handles retry logic
type Retrier struct {
	policy Policy
	logger *zap.Logger
}

// NewRetrier creates a new retrier
func NewRetrier(policy Policy, logger *zap.Logger) *Retrier {
	if err := policy.Validate(); err != nil {
		panic(fmt.Sprintf("invalid retry policy: %v", err))
	}
	return &Retrier{policy: policy, logger: logger}
}

func (r *Retrier) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.policy.InitialInterval
	b.MaxInterval = r.policy.MaxInterval
	b.Multiplier = r.policy.Multiplier
	return b
}

// Do executes operation until it succeeds, returns a non-retryable error or runs out of attempts
func (r *Retrier) Do(ctx context.Context, operation func() error) error {
	_, err := DoWithResult(ctx, r, func() (struct{}, error) {
		return struct{}{}, operation()
	})
	return err
}

// DoWithResult is the generic form of Retrier.Do
func DoWithResult[T any](ctx context.Context, r *Retrier, operation func() (T, error)) (T, error) {
	attempt := 0
	var lastErr error
	result, err := backoff.Retry(ctx, func() (T, error) {
		attempt++
		v, err := operation()
		if err == nil {
			if attempt > 1 {
				r.logger.Info("Operation succeeded after retries", zap.Int("attempt", attempt))
			}
			return v, nil
		}
		lastErr = err
		if r.policy.RetryableFunc != nil && !r.policy.RetryableFunc(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(r.backOff()),
		backoff.WithMaxTries(uint(r.policy.MaxRetries+1)),
		backoff.WithNotify(func(err error, d time.Duration) {
			r.logger.Debug("Retrying operation",
				zap.Error(err),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", d))
		}),
	)
	if err == nil {
		return result, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, ctxErr
	}
	if r.policy.RetryableFunc != nil && !r.policy.RetryableFunc(lastErr) {
		return result, err
	}
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return result, permanent.Unwrap()
	}
	r.logger.Warn("Max retries exceeded", zap.Error(err), zap.Int("attempts", attempt))
	return result, fmt.Errorf("%w: %w", ErrMaxRetriesExceeded, err)
}
