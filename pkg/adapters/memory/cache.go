package memory

import (
	"context"
	"slices"
	"sync"
	"time"
)

// Cache implements ports.CategoryCache in memory.
// Safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	categories []string
	present    bool
	expires    time.Time
	now        func() time.Time
}

// NewCache creates a new in-memory cache.
func NewCache() *Cache {
	return &Cache{now: time.Now}
}

// Get returns a copy of the cached list.
func (c *Cache) Get(ctx context.Context) ([]string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.present || (!c.expires.IsZero() && !c.now().Before(c.expires)) {
		return nil, false, nil
	}
	out := slices.Clone(c.categories)
	if out == nil {
		out = []string{}
	}
	return out, true, nil
}

// Set stores a copy of the list. A zero ttl keeps it until overwritten.
func (c *Cache) Set(ctx context.Context, categories []string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.categories = slices.Clone(categories)
	c.present = true
	c.expires = time.Time{}
	if ttl > 0 {
		c.expires = c.now().Add(ttl)
	}
	return nil
}
