package cache

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_SetGet(t *testing.T) {
	c, err := New(DefaultOptions())
	require.NoError(t, err)

	c.Set("domain:example.com", "payload", false)

	entry, ok := c.Get("domain:example.com")
	require.True(t, ok)
	assert.Equal(t, "payload", entry.Value)
}

func TestCache_MissWhenDisabled(t *testing.T) {
	opts := DefaultOptions()
	opts.Enabled = false
	c, err := New(opts)
	require.NoError(t, err)

	c.Set("k", "v", false)
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestCache_TTLExpiry(t *testing.T) {
	opts := DefaultOptions()
	opts.TTL = 10 * time.Millisecond
	c, err := New(opts)
	require.NoError(t, err)

	c.Set("k", "v", false)
	_, ok := c.Get("k")
	assert.True(t, ok)

	time.Sleep(20 * time.Millisecond)
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestCache_NegativeTTLZeroDisablesCaching(t *testing.T) {
	opts := DefaultOptions()
	opts.NegativeTTL = 0
	c, err := New(opts)
	require.NoError(t, err)

	c.Set("k", "not-found", true)
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestCache_Clear(t *testing.T) {
	c, err := New(DefaultOptions())
	require.NoError(t, err)

	c.Set("a", 1, false)
	c.Set("b", 2, false)
	c.Clear()

	assert.Equal(t, 0, c.Stats().Size)
}

func TestCache_StatsCountsHitsAndMisses(t *testing.T) {
	c, err := New(DefaultOptions())
	require.NoError(t, err)

	c.Set("k", "v", false)
	c.Get("k")
	c.Get("missing")

	stats := c.Stats()
	assert.EqualValues(t, 1, stats.Hits)
	assert.EqualValues(t, 1, stats.Misses)
}

func TestCache_EvictionsTracked(t *testing.T) {
	opts := DefaultOptions()
	opts.Capacity = 1
	c, err := New(opts)
	require.NoError(t, err)

	c.Set("a", 1, false)
	c.Set("b", 2, false)

	assert.EqualValues(t, 1, c.Stats().Evictions)
}

func TestCache_LoadCoalescesConcurrentCallers(t *testing.T) {
	c, err := New(DefaultOptions())
	require.NoError(t, err)

	var calls int64
	var wg sync.WaitGroup

	start := make(chan struct{})
	results := make([]any, 10)

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			<-start
			v, err := c.Load("domain:coalesce.test", func() (any, bool, error) {
				atomic.AddInt64(&calls, 1)
				time.Sleep(10 * time.Millisecond)
				return "resolved", false, nil
			})
			require.NoError(t, err)
			results[idx] = v
		}(i)
	}

	close(start)
	wg.Wait()

	if !assert.EqualValues(t, 1, atomic.LoadInt64(&calls)) {
		t.Logf("coalesced results: %s", spew.Sdump(results))
	}
	for _, r := range results {
		assert.Equal(t, "resolved", r)
	}
}

func TestCache_LoadPropagatesError(t *testing.T) {
	c, err := New(DefaultOptions())
	require.NoError(t, err)

	_, loadErr := c.Load("k", func() (any, bool, error) {
		return nil, false, assert.AnError
	})
	assert.ErrorIs(t, loadErr, assert.AnError)

	_, ok := c.Get("k")
	assert.False(t, ok, "a non-negative failed load must not populate the cache")
}

func TestCache_LoadCachesNegativeResult(t *testing.T) {
	c, err := New(DefaultOptions())
	require.NoError(t, err)

	var calls int64
	_, loadErr := c.Load("k", func() (any, bool, error) {
		atomic.AddInt64(&calls, 1)
		return nil, true, assert.AnError
	})
	assert.ErrorIs(t, loadErr, assert.AnError)

	entry, ok := c.Get("k")
	require.True(t, ok, "a negative result must populate the cache even though fn also errored")
	assert.True(t, entry.Negative)

	_, loadErr = c.Load("k", func() (any, bool, error) {
		atomic.AddInt64(&calls, 1)
		return nil, false, nil
	})
	assert.ErrorIs(t, loadErr, ErrNegativeCached)
	assert.EqualValues(t, 1, atomic.LoadInt64(&calls), "a cached negative entry must not re-invoke fn")
}
