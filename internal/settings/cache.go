package settings

import (
	"sync"
	"time"
)

// DefaultTTL is how long cached values stay valid.
const DefaultTTL = 5 * time.Minute

// Cache is the cache-aside store used by Provider. Implementations must be
// safe for concurrent use.
type Cache interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
}

// TTLCache is an in-memory Cache whose entries all expire together, a fixed
// interval after the first entry is written.
type TTLCache struct {
	expiry  time.Time
	now     func() time.Time
	entries map[string]string
	ttl     time.Duration
	mu      sync.RWMutex
}

// NewTTLCache creates an empty cache. A non-positive ttl uses DefaultTTL.
func NewTTLCache(ttl time.Duration) *TTLCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TTLCache{
		entries: make(map[string]string),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached value for key.
func (c *TTLCache) Get(key string) (string, bool) {
	c.mu.RLock()

	if c.now().After(c.expiry) {
		// Upgrade to write lock
		c.mu.RUnlock()
		c.mu.Lock()
		defer c.mu.Unlock()

		// Double-check after acquiring write lock
		if c.now().After(c.expiry) {
			c.entries = make(map[string]string)
		}
		return "", false
	}

	value, ok := c.entries[key]
	c.mu.RUnlock()
	return value, ok
}

// Set stores value for key.
func (c *TTLCache) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) == 0 {
		// Set cache expiry on first entry
		c.expiry = c.now().Add(c.ttl)
	}
	c.entries[key] = value
}

// Delete evicts key.
func (c *TTLCache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}
