package cache

import (
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache is an in-memory cache with per-item TTL and a maximum item
// count. When full, expired items are purged first; if the cache is still
// full it is flushed.
type MemoryCache struct {
	cache    *gocache.Cache
	maxItems int
	flushes  atomic.Int64
}

// NewMemoryCache creates a memory cache. maxItems <= 0 means unbounded.
func NewMemoryCache(defaultTTL, cleanupInterval time.Duration, maxItems int) *MemoryCache {
	return &MemoryCache{
		cache:    gocache.New(defaultTTL, cleanupInterval),
		maxItems: maxItems,
	}
}

// Get retrieves a value from the cache
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	if val, found := c.cache.Get(key); found {
		return val.([]byte), true
	}
	return nil, false
}

// Set stores a value; ttl 0 uses the default TTL
func (c *MemoryCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	if c.maxItems > 0 && c.cache.ItemCount() >= c.maxItems {
		if _, exists := c.cache.Get(key); !exists {
			c.makeRoom()
		}
	}
	c.cache.Set(key, value, ttl)
	return nil
}

func (c *MemoryCache) makeRoom() {
	c.cache.DeleteExpired()
	if c.cache.ItemCount() >= c.maxItems {
		c.cache.Flush()
		c.flushes.Add(1)
	}
}

// Delete removes a value from the cache
func (c *MemoryCache) Delete(key string) error {
	c.cache.Delete(key)
	return nil
}

// Clear removes all values from the cache
func (c *MemoryCache) Clear() error {
	c.cache.Flush()
	return nil
}

// Len returns the number of items, including expired ones not yet purged
func (c *MemoryCache) Len() int {
	return c.cache.ItemCount()
}

// Flushes counts the times the cache was emptied for lack of room
func (c *MemoryCache) Flushes() int64 {
	return c.flushes.Load()
}
