package crawler

import (
	"fmt"
	"math"
	"time"
)

const (
	defaultMaxAttempts    = 5
	defaultInitialBackoff = 500 * time.Millisecond
	defaultMultiplier     = 2.0
)

// ExponentialRetryPolicy describes the bounded, geometric backoff applied to
// each logical fetch.
type ExponentialRetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	Multiplier     float64
}

// NewExponentialRetryPolicy builds a policy with the crawler defaults:
// five attempts, 500ms initial backoff, doubling.
func NewExponentialRetryPolicy() ExponentialRetryPolicy {
	return ExponentialRetryPolicy{
		MaxAttempts:    defaultMaxAttempts,
		InitialBackoff: defaultInitialBackoff,
		Multiplier:     defaultMultiplier,
	}
}

// Validate rejects policies that would never attempt or never grow.
func (p ExponentialRetryPolicy) Validate() error {
	if p.MaxAttempts <= 0 {
		return fmt.Errorf("retry max attempts must be > 0, got %d", p.MaxAttempts)
	}
	if p.InitialBackoff < 0 {
		return fmt.Errorf("retry initial backoff must be >= 0, got %s", p.InitialBackoff)
	}
	if p.Multiplier < 1 {
		return fmt.Errorf("retry multiplier must be >= 1, got %v", p.Multiplier)
	}
	return nil
}

// Backoff returns the wait after the given zero-based failed attempt.
func (p ExponentialRetryPolicy) Backoff(attempt int) time.Duration {
	delay := float64(p.InitialBackoff) * math.Pow(p.Multiplier, float64(attempt))
	if delay > float64(math.MaxInt64) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(delay)
}
