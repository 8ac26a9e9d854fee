package ratelimit

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireSucceedsWithinBurst(t *testing.T) {
	opts := DefaultOptions()
	l := New(opts)
	defer l.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for i := 0; i < opts.PerHostBurst; i++ {
		require.NoError(t, l.Acquire(ctx, "example.test"))
	}
}

func TestAcquireHonorsDeadline(t *testing.T) {
	opts := DefaultOptions()
	opts.PerHostRate = 1
	opts.PerHostBurst = 1
	l := New(opts)
	defer l.Close()

	ctx := context.Background()
	require.NoError(t, l.Acquire(ctx, "slow.test"))

	// Bucket is now empty; a near-zero deadline should fail fast.
	shortCtx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	err := l.Acquire(shortCtx, "slow.test")
	assert.Error(t, err)
}

func TestDisabledLimiterNeverBlocks(t *testing.T) {
	opts := DefaultOptions()
	opts.Enabled = false
	l := New(opts)
	defer l.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()

	assert.NoError(t, l.Acquire(ctx, "anything"))
}

func TestAcquireDoesNotLeakGoroutinesOnCancellation(t *testing.T) {
	opts := DefaultOptions()
	opts.PerHostRate = 1
	opts.PerHostBurst = 1
	l := New(opts)
	defer l.Close()

	ctx := context.Background()
	require.NoError(t, l.Acquire(ctx, "leaky.test"))

	before := runtime.NumGoroutine()

	for i := 0; i < 50; i++ {
		shortCtx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
		_ = l.Acquire(shortCtx, "leaky.test")
		cancel()
	}

	// Each cancelled Acquire must not leave behind a goroutine blocked
	// inside the underlying limiter's Take(); only the bucket's single
	// long-lived feed goroutine should still be running.
	after := runtime.NumGoroutine()
	assert.LessOrEqual(t, after, before+2, "cancelled Acquire calls leaked goroutines")
}

func TestBucketsAreIndependentPerHost(t *testing.T) {
	opts := DefaultOptions()
	opts.PerHostRate = 1
	opts.PerHostBurst = 1
	l := New(opts)
	defer l.Close()

	ctx := context.Background()
	require.NoError(t, l.Acquire(ctx, "host-a"))

	shortCtx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.NoError(t, l.Acquire(shortCtx, "host-b"))
}
