package fetch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rdapkit/rdap/errs"
)

func newTestRetrier(cfg RetryConfig) *Retrier {
	return &Retrier{cfg: cfg}
}

func TestDelayFor_ComputedWinsWhenNoAdvice(t *testing.T) {
	cfg := RetryConfig{Strategy: BackoffExponential, InitialDelay: time.Second, MaxDelay: time.Minute}
	r := newTestRetrier(cfg)

	err := errs.Network("server error", nil, nil)
	assert.Equal(t, time.Second, r.delayFor(1, err))
	assert.Equal(t, 2*time.Second, r.delayFor(2, err))
	assert.Equal(t, 4*time.Second, r.delayFor(3, err))
}

func TestDelayFor_AdvisedWinsWhenLargerThanComputed(t *testing.T) {
	cfg := RetryConfig{Strategy: BackoffExponential, InitialDelay: time.Second, MaxDelay: time.Minute}
	r := newTestRetrier(cfg)

	// attempt 1's computed delay is 1s; a 30s Retry-After advisory must win.
	err := errs.RateLimited("rate limited", 30, nil)
	assert.Equal(t, 30*time.Second, r.delayFor(1, err))
}

func TestDelayFor_ComputedWinsWhenLargerThanAdvice(t *testing.T) {
	cfg := RetryConfig{Strategy: BackoffExponential, InitialDelay: time.Second, MaxDelay: time.Minute}
	r := newTestRetrier(cfg)

	// attempt 3's computed delay is 4s; a 1s Retry-After advisory must lose.
	err := errs.RateLimited("rate limited", 1, nil)
	assert.Equal(t, 4*time.Second, r.delayFor(3, err))
}

func TestDelayFor_ClampedToMaxDelay(t *testing.T) {
	cfg := RetryConfig{Strategy: BackoffExponential, InitialDelay: time.Second, MaxDelay: 5 * time.Second}
	r := newTestRetrier(cfg)

	err := errs.RateLimited("rate limited", 3600, nil)
	assert.Equal(t, 5*time.Second, r.delayFor(1, err), "even an enormous advisory is clamped to MaxDelay")
}

func TestDelayFor_NonRateLimitedErrorIgnoresRetryAfterContext(t *testing.T) {
	cfg := RetryConfig{Strategy: BackoffFixed, InitialDelay: 2 * time.Second, MaxDelay: time.Minute}
	r := newTestRetrier(cfg)

	err := errs.Network("server error", nil, map[string]any{"retryAfterSeconds": 99.0})
	assert.Equal(t, 2*time.Second, r.delayFor(1, err), "retryAfterSeconds is only honored for CodeRateLimited")
}
