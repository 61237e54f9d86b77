package cache

import (
	"bytes"
	"context"
	"sync"
	"time"
)

// DefaultSweepInterval is how often Set purges expired entries.
const DefaultSweepInterval = time.Minute

// MemoryCache is an in-memory cache implementation. Expired entries are
// dropped when read, and Set purges all of them at most once per sweep
// interval so keys that are never read again do not accumulate.
type MemoryCache struct {
	mu         sync.RWMutex
	entries    map[string]*cacheEntry
	now        func() time.Time
	sweepEvery time.Duration
	lastSweep  time.Time
}

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryCache creates a new in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries:    make(map[string]*cacheEntry),
		now:        time.Now,
		sweepEvery: DefaultSweepInterval,
	}
}

// Get retrieves a copy of the value. Returns (nil, false, nil) on miss or expiry.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}

	if !c.now().Before(entry.expiresAt) {
		c.mu.Lock()
		// Another writer may have replaced it in the meantime.
		if cur, ok := c.entries[key]; ok && cur == entry {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false, nil
	}

	return bytes.Clone(entry.value), true, nil
}

// Set stores a copy of value with the given TTL. TTL<=0 is a no-op.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	now := c.now()
	entry := &cacheEntry{
		value:     bytes.Clone(value),
		expiresAt: now.Add(ttl),
	}

	c.mu.Lock()
	if now.Sub(c.lastSweep) >= c.sweepEvery {
		c.sweepLocked(now)
	}
	c.entries[key] = entry
	c.mu.Unlock()

	return nil
}

// Sweep removes every expired entry and reports how many it removed.
func (c *MemoryCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepLocked(c.now())
}

func (c *MemoryCache) sweepLocked(now time.Time) int {
	removed := 0
	for key, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	c.lastSweep = now
	return removed
}

// Delete removes a value from the cache. Idempotent - no error on miss.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// Len reports the number of stored entries, including expired ones not yet
// swept.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Ping always succeeds.
func (c *MemoryCache) Ping(context.Context) error { return nil }

var (
	_ Cache  = (*MemoryCache)(nil)
	_ Pinger = (*MemoryCache)(nil)
)
