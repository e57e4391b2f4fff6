// Package retry wraps a single fallible operation with bounded exponential
// backoff. The policy is a plain value so backoff configuration stays
// decoupled from loop control flow.
package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"sigrun/internal/logger"
)

// Policy describes one backoff schedule. The zero value is not usable; build
// it from config and call Validate at construction time.
type Policy struct {
	MaxAttempts    int           // total attempts including the first
	BaseDelay      time.Duration // delay before the second attempt
	Multiplier     float64       // growth factor per attempt
	JitterFraction float64       // e.g. 0.1 for +/-10%
	MaxDelay       time.Duration // cap applied before jitter
}

// Default mirrors the documented defaults: 3 attempts, 500ms base, doubling,
// +/-10% jitter, 10s cap.
func Default() Policy {
	return Policy{
		MaxAttempts:    3,
		BaseDelay:      500 * time.Millisecond,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		MaxDelay:       10 * time.Second,
	}
}

func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be >= 1")
	}
	if p.BaseDelay <= 0 {
		return fmt.Errorf("retry.base_delay must be > 0")
	}
	if p.Multiplier < 1 {
		return fmt.Errorf("retry.multiplier must be >= 1")
	}
	if p.JitterFraction < 0 || p.JitterFraction >= 1 {
		return fmt.Errorf("retry.jitter_fraction must be in [0, 1)")
	}
	if p.MaxDelay < p.BaseDelay {
		return fmt.Errorf("retry.max_delay must be >= base_delay")
	}
	return nil
}

// Delay returns the wait before attempt n+2 (n is the zero-based index of the
// attempt that just failed). The exponential part is capped at MaxDelay, then
// jitter is applied.
func (p Policy) Delay(n int) time.Duration {
	if n < 0 {
		n = 0
	}
	d := float64(p.BaseDelay)
	for i := 0; i < n; i++ {
		d *= p.Multiplier
		if d >= float64(p.MaxDelay) {
			d = float64(p.MaxDelay)
			break
		}
	}
	if d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	if p.JitterFraction > 0 {
		spread := d * p.JitterFraction
		d = d - spread + rand.Float64()*2*spread
	}
	return time.Duration(d)
}

// ExhaustedError reports that every attempt failed. It wraps the last error.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// Do runs op until it succeeds, the policy is exhausted, or ctx is cancelled.
// Cancellation is only observed between attempts; an in-flight op is never
// preempted.
func (p Policy) Do(ctx context.Context, name string, op func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if err := op(ctx); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if attempt == p.MaxAttempts-1 {
			break
		}
		wait := p.Delay(attempt)
		logger.Debugf("retry: %s attempt=%d/%d failed err=%v next_in=%s",
			name, attempt+1, p.MaxAttempts, lastErr, wait.Truncate(time.Millisecond))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return &ExhaustedError{Attempts: p.MaxAttempts, Last: lastErr}
}
