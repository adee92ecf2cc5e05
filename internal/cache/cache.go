package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// TTLCache is a thread-safe, size-bounded LRU cache with per-entry TTL.
// The drift detector uses it to memoize per-feature sorted baseline samples,
// which are immutable for the lifetime of a baseline snapshot.
type TTLCache[K comparable, V any] struct {
	mu     sync.RWMutex
	cache  *lru.Cache[K, entry[V]]
	ttl    time.Duration
	hits   uint64
	misses uint64
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// New creates a TTLCache holding at most size entries. A ttl of 0 disables
// expiration. Entries past their TTL are dropped lazily on Get.
func New[K comparable, V any](size int, ttl time.Duration) (*TTLCache[K, V], error) {
	c, err := lru.New[K, entry[V]](size)
	if err != nil {
		return nil, err
	}
	return &TTLCache[K, V]{cache: c, ttl: ttl}, nil
}

// Get returns the cached value for key, or (zero, false) when missing or
// expired.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.cache.Get(key)
	if !ok || (c.ttl > 0 && time.Now().After(e.expiresAt)) {
		if ok {
			c.cache.Remove(key)
		}
		c.misses++
		var zero V
		return zero, false
	}

	c.hits++
	return e.value, true
}

// Set stores value under key, evicting the least recently used entry when
// the cache is full.
func (c *TTLCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = time.Now().Add(c.ttl)
	}
	c.cache.Add(key, entry[V]{value: value, expiresAt: expiresAt})
}

// Purge drops every entry. Called when the baseline snapshot is refreshed.
func (c *TTLCache[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Purge()
}

// Len returns the number of live entries.
func (c *TTLCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cache.Len()
}

// Stats reports hit/miss counters for observability.
func (c *TTLCache[K, V]) Stats() (hits, misses uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
