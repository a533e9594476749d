package marketdata

import (
	"errors"
	"sync"
	"time"
)

type cacheEntry[V any] struct {
	value     V
	fetchedAt time.Time
}

// Cache memoizes fetch results with per-call TTLs. Entries are replaced
// atomically: a stale value stays readable until its refetch completes, and
// a reader never observes a partially written entry. TTL is a parameter of
// each key family rather than a cache-wide constant, so price history,
// short-horizon daily tables, and fundamentals can coexist in separate
// Cache instances with different lifetimes.
type Cache[V any] struct {
	mu      sync.Mutex
	entries map[string]cacheEntry[V]
	now     func() time.Time
}

// NewCache creates an empty cache.
func NewCache[V any]() *Cache[V] {
	return &Cache[V]{
		entries: map[string]cacheEntry[V]{},
		now:     time.Now,
	}
}

// GetOrFetch returns the cached value for key when it is younger than ttl,
// otherwise calls fetch and stores the result. When fetch fails with the
// rate-limit kind the entry is purged so the next access is a guaranteed
// miss; the error still propagates and is never retried here.
func (c *Cache[V]) GetOrFetch(key string, ttl time.Duration, fetch func() (V, error)) (V, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok && c.now().Before(e.fetchedAt.Add(ttl)) {
		c.mu.Unlock()
		return e.value, nil
	}
	c.mu.Unlock()

	v, err := fetch()
	if err != nil {
		if errors.Is(err, ErrRateLimited) {
			c.Invalidate(key)
		}
		var zero V
		return zero, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry[V]{value: v, fetchedAt: c.now()}
	c.mu.Unlock()
	return v, nil
}

// Invalidate removes the entry for key so the next GetOrFetch refetches.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len reports the number of live entries (expired ones included until they
// are replaced).
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
