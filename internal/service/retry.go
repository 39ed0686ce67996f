package service

import (
	"context"
	"math/rand"
	"net/http"
	"time"
)

// RetryPolicy bounds retries of transient embedding API failures. Every
// transient class shares one attempt budget; the per-class base delays match
// the pacing the inference API asks for.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts per batch, including the
	// first one.
	MaxAttempts int

	// Unit scales all delays. One second in production; tests shrink it so
	// retries complete in milliseconds.
	Unit time.Duration
}

// DefaultRetryPolicy returns the policy used by the ingestion pipeline.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		Unit:        time.Second,
	}
}

// transientError marks a failure worth retrying. Status is the HTTP status
// code, or zero for network-level faults.
type transientError struct {
	status int
	err    error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// delay returns how long to wait before the attempt after `attempt`
// (zero-based), with jitter.
func (p RetryPolicy) delay(e *transientError, attempt int) time.Duration {
	var d time.Duration
	switch {
	case e.status == http.StatusServiceUnavailable:
		// model is loading
		d = 20 * p.Unit
	case e.status == http.StatusTooManyRequests:
		// rate limit hit
		d = 30 * p.Unit
	case e.status >= 500:
		d = 30 * p.Unit * time.Duration(attempt+1)
	default:
		// network-level fault
		d = 10 * p.Unit * time.Duration(attempt+1)
	}
	if d > 0 {
		d += time.Duration(rand.Int63n(int64(d/10) + 1))
	}
	return d
}

// sleep waits for d or until the context is cancelled
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
