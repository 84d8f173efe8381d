package retry

import (
	"errors"
	"fmt"
	"time"
)

// ErrMaxRetriesExceeded is returned when every attempt failed with a retryable error
var ErrMaxRetriesExceeded = errors.New("max retries exceeded")

// Policy controls how an operation is retried
type Policy struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	// RetryableFunc decides whether err is worth another attempt. Nil retries everything.
	RetryableFunc func(err error) bool
}

// DefaultPolicy is used by the upstream HTTP clients
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      2,
	}
}

// Validate checks the policy for nonsensical values
func (p Policy) Validate() error {
	if p.MaxRetries < 0 {
		return fmt.Errorf("max retries must be >= 0, got %d", p.MaxRetries)
	}
	if p.InitialInterval <= 0 {
		return fmt.Errorf("initial interval must be positive")
	}
	if p.MaxInterval < p.InitialInterval {
		return fmt.Errorf("max interval must be >= initial interval")
	}
	if p.Multiplier < 1 {
		return fmt.Errorf("multiplier must be >= 1")
	}
	return nil
}
