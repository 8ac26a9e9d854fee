// Package cache implements the RDAP client's response cache: a
// size-bounded LRU of normalized query results with a per-entry TTL,
// plus single-flight coalescing so concurrent identical queries share
// one upstream fetch (spec.md §5, §4.8).
package cache

import (
	"errors"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// ErrNegativeCached signals that Load resolved key to a previously
// cached negative (not-found) result rather than running fn. Callers
// that need the original upstream error reconstruct it themselves;
// Load only remembers that the outcome was negative, not why.
var ErrNegativeCached = errors.New("cache: negative result cached")

// Entry is what the cache stores: an arbitrary payload (the
// orchestrator stores *normalize.NormalizedResponse, type-erased here
// so this package has no dependency on the normalizer) alongside its
// expiry and whether it records a negative (not-found) result.
type Entry struct {
	Value     any
	ExpiresAt time.Time
	Negative  bool
}

func (e Entry) expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// Stats reports cache effectiveness, returned as part of Client.GetStats.
type Stats struct {
	Size      int
	Capacity  int
	Hits      int64
	Misses    int64
	Evictions int64
}

// Options configures the Cache.
type Options struct {
	// Enabled turns caching off entirely when false (spec.md's boolean
	// short-form `Cache: false` maps to Enabled=false upstream).
	Enabled bool

	// Capacity bounds the number of entries the LRU core retains.
	Capacity int

	// TTL is applied to successful (non-negative) entries.
	TTL time.Duration

	// NegativeTTL is applied to NotFound/NoServerFound outcomes; zero
	// disables negative caching (spec.md Open Question decision).
	NegativeTTL time.Duration
}

// DefaultOptions returns spec.md §6's suggested cache defaults.
func DefaultOptions() Options {
	return Options{
		Enabled:     true,
		Capacity:    1000,
		TTL:         time.Hour,
		NegativeTTL: 60 * time.Second,
	}
}

// Cache wraps a golang-lru/v2 core with TTL-on-read semantics (lru/v2
// has no native expiry) and a singleflight.Group so a cache miss for a
// given key triggers exactly one call to the supplied loader even
// under concurrent callers, per spec.md §5's query-coalescing rule.
type Cache struct {
	opts  Options
	lru   *lru.Cache[string, Entry]
	group singleflight.Group

	hits      counter
	misses    counter
	evictions counter
}

// New builds a Cache. When opts.Enabled is false, Get always misses and
// Set is a no-op, so callers can leave the orchestrator's cache-then-
// resolve pipeline unconditional and let Options decide.
func New(opts Options) (*Cache, error) {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultOptions().Capacity
	}

	c := &Cache{opts: opts}

	core, err := lru.NewWithEvict[string, Entry](opts.Capacity, func(string, Entry) {
		c.evictions.add(1)
	})
	if err != nil {
		return nil, err
	}
	c.lru = core

	return c, nil
}

// Get returns the cached value for key if present and unexpired.
func (c *Cache) Get(key string) (Entry, bool) {
	if !c.opts.Enabled {
		c.misses.add(1)
		return Entry{}, false
	}

	entry, ok := c.lru.Get(key)
	if !ok {
		c.misses.add(1)
		return Entry{}, false
	}

	if entry.expired(time.Now()) {
		c.lru.Remove(key)
		c.misses.add(1)
		return Entry{}, false
	}

	c.hits.add(1)
	return entry, true
}

// Set stores value under key. If negative is true, NegativeTTL governs
// expiry (and a zero NegativeTTL means the entry is never actually
// retained: it is stored already-expired, so the next Get misses).
func (c *Cache) Set(key string, value any, negative bool) {
	if !c.opts.Enabled {
		return
	}

	ttl := c.opts.TTL
	if negative {
		ttl = c.opts.NegativeTTL
	}

	c.lru.Add(key, Entry{
		Value:     value,
		ExpiresAt: time.Now().Add(ttl),
		Negative:  negative,
	})
}

// Delete removes a single key, used by ClearCache-by-query callers if
// ever exposed; Clear wipes everything.
func (c *Cache) Delete(key string) {
	c.lru.Remove(key)
}

// Clear empties the cache, implementing Client.ClearCache (spec.md §6).
func (c *Cache) Clear() {
	c.lru.Purge()
}

// Stats reports current size and cumulative hit/miss/eviction counts.
func (c *Cache) Stats() Stats {
	return Stats{
		Size:      c.lru.Len(),
		Capacity:  c.opts.Capacity,
		Hits:      c.hits.get(),
		Misses:    c.misses.get(),
		Evictions: c.evictions.get(),
	}
}

// Load returns the cached entry for key if present, otherwise calls fn
// exactly once across all concurrent callers sharing key (singleflight),
// caches the result, and returns it. fn's negative return value decides
// which TTL class the result is stored under, and is honored even when
// fn also returns an error: a negative result (e.g. an upstream 404) is
// itself the thing worth caching, not a loader failure to discard.
//
// If key already holds a cached negative entry, Load returns
// ErrNegativeCached instead of calling fn.
func (c *Cache) Load(key string, fn func() (value any, negative bool, err error)) (any, error) {
	if entry, ok := c.Get(key); ok {
		if entry.Negative {
			return entry.Value, ErrNegativeCached
		}
		return entry.Value, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// Re-check: another goroutine may have populated the cache
		// between our Get miss above and acquiring the singleflight key.
		if entry, ok := c.Get(key); ok {
			if entry.Negative {
				return entry.Value, ErrNegativeCached
			}
			return entry.Value, nil
		}

		value, negative, fnErr := fn()
		if negative {
			c.Set(key, value, true)
		} else if fnErr == nil {
			c.Set(key, value, false)
		}
		if fnErr != nil {
			return nil, fnErr
		}

		return value, nil
	})

	return v, err
}
