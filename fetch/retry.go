package fetch

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/rdapkit/rdap/errs"
)

// BackoffStrategy selects the delay growth curve between retry attempts.
type BackoffStrategy string

const (
	BackoffFixed       BackoffStrategy = "fixed"
	BackoffLinear      BackoffStrategy = "linear"
	BackoffExponential BackoffStrategy = "exponential"
)

// RetryConfig controls the Retrier wrapping a Fetcher.
type RetryConfig struct {
	MaxAttempts  int
	Strategy     BackoffStrategy
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Jitter       bool
}

// DefaultRetryConfig returns spec.md §4.5's defaults: 3 attempts,
// exponential backoff, 1s initial, 10s cap, no jitter (deterministic tests).
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		Strategy:     BackoffExponential,
		InitialDelay: time.Second,
		MaxDelay:     10 * time.Second,
		Jitter:       false,
	}
}

// Retrier wraps a Fetcher with retry-with-backoff. Retries occur only
// inside this wrapper: above it, every error is terminal (spec.md §7).
type Retrier struct {
	fetcher *Fetcher
	cfg     RetryConfig
}

// NewRetrier builds a Retrier around fetcher.
func NewRetrier(fetcher *Fetcher, cfg RetryConfig) *Retrier {
	return &Retrier{fetcher: fetcher, cfg: cfg}
}

// Fetch retries fetcher.Fetch according to cfg, honoring any
// Retry-After advice embedded in a RateLimitedError, and stops
// immediately on a non-retryable error or context cancellation.
func (r *Retrier) Fetch(ctx context.Context, url string) (*Result, error) {
	var lastErr error

	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, errs.Cancelled(err)
		}

		result, err := r.fetcher.Fetch(ctx, url)
		if err == nil {
			return result, nil
		}

		lastErr = err

		rdapErr, ok := err.(*errs.Error)
		if !ok || !rdapErr.Retryable() {
			return nil, err
		}

		if attempt == r.cfg.MaxAttempts {
			break
		}

		delay := r.delayFor(attempt, rdapErr)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, errs.Cancelled(ctx.Err())
		}
	}

	return nil, lastErr
}

// delayFor computes the pre-retry delay for the given 1-indexed attempt,
// folding in any server-advised Retry-After per spec.md §4.5
// ("max(advised, computed)").
func (r *Retrier) delayFor(attempt int, err *errs.Error) time.Duration {
	computed := r.computedDelay(attempt)

	if err.Code == errs.CodeRateLimited {
		if advisedSeconds, ok := err.Context["retryAfterSeconds"].(float64); ok && advisedSeconds > 0 {
			advised := time.Duration(advisedSeconds * float64(time.Second))
			if advised > computed {
				computed = advised
			}
		}
	}

	if computed > r.cfg.MaxDelay {
		computed = r.cfg.MaxDelay
	}

	if r.cfg.Jitter {
		return jitter(computed)
	}

	return computed
}

// jitter randomizes delay by +/-50%, using backoff.ExponentialBackOff's
// own randomization rather than hand-rolling one (Multiplier=1 makes
// NextBackOff() a single randomized draw around InitialInterval).
func jitter(delay time.Duration) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = delay
	b.RandomizationFactor = 0.5
	b.Multiplier = 1
	b.MaxInterval = delay * 2
	b.Reset()

	return b.NextBackOff()
}

// computedDelay applies the configured strategy, pre-jitter and
// pre-Retry-After, matching spec.md §4.5's formulas exactly so the
// "retry backoff monotonicity" property holds for the exponential case.
func (r *Retrier) computedDelay(attempt int) time.Duration {
	switch r.cfg.Strategy {
	case BackoffFixed:
		return r.cfg.InitialDelay
	case BackoffLinear:
		return r.cfg.InitialDelay * time.Duration(attempt)
	case BackoffExponential:
		fallthrough
	default:
		multiplier := 1 << uint(attempt-1)
		return r.cfg.InitialDelay * time.Duration(multiplier)
	}
}
