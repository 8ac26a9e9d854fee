package cache

import "sync/atomic"

// counter is a small wrapper around atomic.Int64 so Stats reads are
// race-free without requiring callers to take the Cache's lock (there
// isn't one — the LRU core is already internally synchronized).
type counter struct {
	v atomic.Int64
}

func (c *counter) add(delta int64) {
	c.v.Add(delta)
}

func (c *counter) get() int64 {
	return c.v.Load()
}
