package engine

import (
	"sync"
	"time"
)

// StampCache assigns each logical alert key a timestamp the first time the
// key is seen and returns that same timestamp on every later pass. Alert
// objects are rebuilt from scratch on each recomputation, so this cache is
// what keeps sort order and new-since-viewed detection stable within a
// session. It is the only engine state that survives a recomputation pass.
type StampCache struct {
	mu     sync.Mutex
	stamps map[string]time.Time
}

// NewStampCache creates an empty stamp cache.
func NewStampCache() *StampCache {
	return &StampCache{
		stamps: make(map[string]time.Time),
	}
}

// Stamp returns the first-seen timestamp for key, recording at if the key is
// new. Once assigned, a key's timestamp never changes for the session.
func (c *StampCache) Stamp(key string, at time.Time) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ts, ok := c.stamps[key]; ok {
		return ts
	}
	c.stamps[key] = at
	return at
}

// Seen reports whether the key has already been stamped this session.
func (c *StampCache) Seen(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.stamps[key]
	return ok
}

// Len returns the number of stamped keys.
func (c *StampCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.stamps)
}
