package rules

import (
	"sync"
	"time"
)

// InMemoryDiscountsCache is an in-memory DiscountsCache, safe for concurrent use
type InMemoryDiscountsCache struct {
	discounts []*Discount
	cachedAt  time.Time
	config    CacheConfig
	now       func() time.Time
	mu        sync.RWMutex
	isValid   bool
}

// NewInMemoryDiscountsCache creates an empty cache
func NewInMemoryDiscountsCache(config CacheConfig) *InMemoryDiscountsCache {
	return &InMemoryDiscountsCache{
		config: config,
		now:    time.Now,
	}
}

// Get returns a copy of the cached discounts, or nil when the cache is invalid or expired
func (c *InMemoryDiscountsCache) Get() []*Discount {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.fresh() {
		return nil
	}

	out := make([]*Discount, len(c.discounts))
	copy(out, c.discounts)
	return out
}

// Set stores a copy of discounts
func (c *InMemoryDiscountsCache) Set(discounts []*Discount) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.discounts = make([]*Discount, len(discounts))
	copy(c.discounts, discounts)
	c.cachedAt = c.now()
	c.isValid = true
}

// Invalidate clears the cache
func (c *InMemoryDiscountsCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.isValid = false
	c.discounts = nil
}

// IsValid reports whether the cache holds unexpired data
func (c *InMemoryDiscountsCache) IsValid() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fresh()
}

// fresh must be called with mu held
func (c *InMemoryDiscountsCache) fresh() bool {
	if !c.isValid {
		return false
	}
	if c.config.TTL > 0 && c.now().Sub(c.cachedAt) > c.config.TTL {
		return false
	}
	return true
}
