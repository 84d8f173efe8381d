package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fastPolicy(maxRetries int) Policy {
	return Policy{
		MaxRetries:      maxRetries,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		Multiplier:      2,
	}
}

func TestRetrier_SucceedsAfterTransientFailures(t *testing.T) {
	r := NewRetrier(fastPolicy(3), zap.NewNop())
	calls := 0
	err := r.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetrier_ExhaustsAttempts(t *testing.T) {
	r := NewRetrier(fastPolicy(2), zap.NewNop())
	calls := 0
	err := r.Do(context.Background(), func() error {
		calls++
		return errors.New("down")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMaxRetriesExceeded)
	assert.Equal(t, 3, calls)
}

func TestRetrier_StopsOnNonRetryable(t *testing.T) {
	fatal := errors.New("bad request")
	p := fastPolicy(5)
	p.RetryableFunc = func(err error) bool { return !errors.Is(err, fatal) }
	r := NewRetrier(p, zap.NewNop())

	calls := 0
	err := r.Do(context.Background(), func() error {
		calls++
		return fatal
	})
	assert.ErrorIs(t, err, fatal)
	assert.NotErrorIs(t, err, ErrMaxRetriesExceeded)
	assert.Equal(t, 1, calls)
}

func TestDoWithResult(t *testing.T) {
	r := NewRetrier(fastPolicy(1), zap.NewNop())
	v, err := DoWithResult(context.Background(), r, func() (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestPolicy_Validate(t *testing.T) {
	assert.NoError(t, DefaultPolicy().Validate())
	p := DefaultPolicy()
	p.Multiplier = 0.5
	assert.Error(t, p.Validate())
	p = DefaultPolicy()
	p.MaxRetries = -1
	assert.Error(t, p.Validate())
}
