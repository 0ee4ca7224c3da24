package engine

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds the retries applied to transient I/O failures. One
// policy is applied uniformly to downloads and uploads.
type RetryPolicy struct {
	// MaxAttempts is the total attempt ceiling, including the first try.
	MaxAttempts uint64
	// InitialInterval is the first backoff delay.
	InitialInterval time.Duration
	// MaxInterval caps the exponential growth of the delay.
	MaxInterval time.Duration
}

// DefaultRetryPolicy matches the historical three-attempt behavior.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:     3,
	InitialInterval: 500 * time.Millisecond,
	MaxInterval:     10 * time.Second,
}

// Do runs op with exponential backoff until it succeeds, the attempt
// ceiling is exhausted, or ctx is cancelled. Wrap an error with
// backoff.Permanent to stop retrying early.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts == 0 {
		attempts = DefaultRetryPolicy.MaxAttempts
	}

	bo := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		bo.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		bo.MaxInterval = p.MaxInterval
	}

	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, attempts-1), ctx))
}
