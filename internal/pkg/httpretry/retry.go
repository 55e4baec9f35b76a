// Package httpretry provides generic retry logic with exponential backoff
// and jitter for upstream API calls.
//
// Unlike a transport-level wrapper, the retry here operates on whole
// operations (a campaign listing, an analytics fetch) so that callers get a
// single typed failure after the budget is exhausted instead of a raw HTTP
// response.
package httpretry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Policy controls the retry schedule for a single operation.
type Policy struct {
	MaxAttempts int           // total attempts, including the first call
	BaseDelay   time.Duration // backoff base; also the jitter range
	MaxDelay    time.Duration // ceiling for a single backoff sleep
}

// DefaultPolicy returns the standard policy for Instantly API calls:
// 5 attempts, 1s base delay, 32s cap. Worst case total wait before a
// failure surfaces is bounded (roughly 1+2+4+8+16 seconds plus jitter).
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		BaseDelay:   1 * time.Second,
		MaxDelay:    32 * time.Second,
	}
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 5
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 1 * time.Second
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 32 * time.Second
	}
	return p
}

// delay returns the backoff before retrying after a failed attempt
// (0-indexed): min(base*2^attempt + jitter, max), jitter uniform in
// [0, base).
func (p Policy) delay(attempt int) time.Duration {
	exp := float64(p.BaseDelay) * math.Pow(2, float64(attempt))
	jitter := rand.Float64() * float64(p.BaseDelay)
	d := time.Duration(exp + jitter)
	if d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// retryableError is implemented by errors that know whether retrying can
// help. Errors that do not implement it are treated as transient and
// retried (network-level failures rarely carry structured classification).
type retryableError interface {
	Retryable() bool
}

// rateLimitedError is implemented by errors caused by upstream throttling.
type rateLimitedError interface {
	RateLimited() bool
}

// IsRetryable reports whether err is worth retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var re retryableError
	if errors.As(err, &re) {
		return re.Retryable()
	}
	return true
}

// IsRateLimited reports whether err was caused by upstream rate limiting.
func IsRateLimited(err error) bool {
	var rl rateLimitedError
	return errors.As(err, &rl) && rl.RateLimited()
}

// ExhaustedError is returned when every attempt of an operation failed.
type ExhaustedError struct {
	Attempts    int
	RateLimited bool // the final failure was an upstream rate limit
	Cause       error
}

func (e *ExhaustedError) Error() string {
	if e.RateLimited {
		return fmt.Sprintf("rate limit retries exhausted after %d attempts: %v", e.Attempts, e.Cause)
	}
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Cause)
}

func (e *ExhaustedError) Unwrap() error { return e.Cause }

// Do runs op until it succeeds, fails permanently, or the attempt budget is
// spent. Rate-limit and transient failures both consume one attempt each.
// The backoff sleep aborts early when ctx is canceled.
func Do[T any](ctx context.Context, policy Policy, op func(context.Context) (T, error)) (T, error) {
	var zero T
	p := policy.withDefaults()

	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return zero, lastErr
			}
			return zero, err
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return zero, err
		}
		if attempt == p.MaxAttempts-1 {
			break
		}

		timer := time.NewTimer(p.delay(attempt))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		}
	}

	return zero, &ExhaustedError{
		Attempts:    p.MaxAttempts,
		RateLimited: IsRateLimited(lastErr),
		Cause:       lastErr,
	}
}
