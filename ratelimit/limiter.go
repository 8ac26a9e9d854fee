// Package ratelimit implements per-host token-bucket pacing for the RDAP
// fetcher, following the owasp-amass-engine plugin idiom of holding one
// go.uber.org/ratelimit.Limiter per rate-limited target
// (e.g. plugins/api/securitytrails.go: "rlimit: ratelimit.New(2,
// ratelimit.WithoutSlack)"), generalized here to a dynamic set of hosts
// with idle eviction.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/ratelimit"

	"github.com/rdapkit/rdap/errs"
)

// Options configures the limiter.
type Options struct {
	Enabled       bool
	PerHostRate   int           // tokens refilled per second
	PerHostBurst  int           // bucket capacity
	IdleInterval  time.Duration // buckets unused for this long are GC'd
}

// DefaultOptions returns the spec.md §4.3 defaults (capacity 10, refill 5/s).
func DefaultOptions() Options {
	return Options{
		Enabled:      true,
		PerHostRate:  5,
		PerHostBurst: 10,
		IdleInterval: 5 * time.Minute,
	}
}

// bucket owns a single long-lived feed goroutine per host that pulls
// tokens from go.uber.org/ratelimit.Limiter.Take (which has no
// cancellation of its own) and hands them off one at a time over
// tokens. Acquire then just selects between tokens and ctx.Done(),
// so a cancelled caller never leaves behind a goroutine blocked
// inside Take: the feed goroutine is reused by the next caller
// instead, bounded per host rather than per request.
type bucket struct {
	limiter  ratelimit.Limiter
	lastUsed time.Time
	tokens   chan struct{}
	stop     chan struct{}
}

func newBucket(opts Options) *bucket {
	b := &bucket{
		limiter: ratelimit.New(opts.PerHostRate, ratelimit.WithSlack(opts.PerHostBurst), ratelimit.Per(time.Second)),
		tokens:  make(chan struct{}),
		stop:    make(chan struct{}),
	}
	go b.feed(opts.PerHostBurst)
	return b
}

// feed starts the bucket full: the first burst tokens are handed out
// without waiting (the underlying limiter's own first Take returns
// immediately, so only burst-1 of them skip Take here).
func (b *bucket) feed(burst int) {
	for i := 0; ; i++ {
		if i >= burst-1 {
			b.limiter.Take()
		}
		select {
		case b.tokens <- struct{}{}:
		case <-b.stop:
			return
		}
	}
}

// Limiter holds one token bucket per host.
type Limiter struct {
	opts Options

	mu      sync.Mutex
	buckets map[string]*bucket

	stopGC chan struct{}
	gcOnce sync.Once
}

// New creates a Limiter and starts its idle-bucket sweeper.
func New(opts Options) *Limiter {
	l := &Limiter{
		opts:    opts,
		buckets: make(map[string]*bucket),
		stopGC:  make(chan struct{}),
	}

	if opts.Enabled && opts.IdleInterval > 0 {
		go l.sweepLoop()
	}

	return l
}

// Acquire blocks until a token for host is available, or until ctx is
// done, whichever comes first. Per spec.md §4.3, buckets serialize only
// within a host.
func (l *Limiter) Acquire(ctx context.Context, host string) error {
	if !l.opts.Enabled {
		return nil
	}

	b := l.bucketFor(host)

	select {
	case <-b.tokens:
		return nil
	case <-ctx.Done():
		return errs.RateLimited("rate limit wait exceeded the caller's deadline", 0, map[string]any{"host": host})
	case <-b.stop:
		return errs.RateLimited("rate limit bucket was evicted mid-wait", 0, map[string]any{"host": host})
	}
}

func (l *Limiter) bucketFor(host string) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[host]
	if !ok {
		b = newBucket(l.opts)
		l.buckets[host] = b
	}
	b.lastUsed = time.Now()

	return b
}

func (l *Limiter) sweepLoop() {
	ticker := time.NewTicker(l.opts.IdleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.stopGC:
			return
		}
	}
}

func (l *Limiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-l.opts.IdleInterval)
	for host, b := range l.buckets {
		if b.lastUsed.Before(cutoff) {
			close(b.stop)
			delete(l.buckets, host)
		}
	}
}

// Close stops the idle-bucket sweeper and every bucket's feed goroutine.
func (l *Limiter) Close() {
	l.gcOnce.Do(func() {
		close(l.stopGC)
	})

	l.mu.Lock()
	defer l.mu.Unlock()
	for host, b := range l.buckets {
		close(b.stop)
		delete(l.buckets, host)
	}
}
