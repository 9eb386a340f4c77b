package catalog

import (
	"sync"
	"time"
)

// Cache provides a simple in-memory cache with TTL support.
// It is safe for concurrent use.
type Cache[V any] struct {
	mu    sync.RWMutex
	items map[string]*cacheItem[V]
	ttl   time.Duration
	now   func() time.Time
}

type cacheItem[V any] struct {
	value     V
	expiresAt time.Time
}

// NewCache creates a new Cache instance with the specified default TTL.
// Items stored without an explicit TTL will use the default TTL provided.
func NewCache[V any](ttl time.Duration) *Cache[V] {
	return &Cache[V]{
		items: make(map[string]*cacheItem[V]),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Get retrieves a value from the cache by key.
// ok is false if the key does not exist or the item has expired.
func (c *Cache[V]) Get(key string) (value V, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, exists := c.items[key]
	if !exists || !c.now().Before(item.expiresAt) {
		return value, false
	}
	return item.value, true
}

// Set stores a value in the cache with the specified key and TTL.
// If TTL is zero, the cache's default TTL is used. A non-positive
// effective TTL stores nothing.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	if ttl == 0 {
		ttl = c.ttl
	}
	if ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = &cacheItem[V]{
		value:     value,
		expiresAt: c.now().Add(ttl),
	}
}

// Delete removes an item from the cache by key.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Clear removes all items from the cache.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*cacheItem[V])
}

// Len returns the number of stored items, expired ones included.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
