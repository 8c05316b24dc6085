package rules

import "time"

// DiscountsCache caches the active discounts of a project so evaluation
// does not hit the store on every request
type DiscountsCache interface {
	// Get returns the cached discounts, or nil on a miss or after expiry
	Get() []*Discount

	// Set stores discounts in the cache
	Set(discounts []*Discount)

	// Invalidate clears the cache, forcing a refresh on the next Get
	Invalidate()

	// IsValid reports whether the cache holds unexpired data
	IsValid() bool
}

// CacheConfig holds configuration for cache behavior
type CacheConfig struct {
	// TTL is the time-to-live for cached entries.
	// Zero means no expiration (invalidation on mutation only).
	TTL time.Duration
}

// DefaultCacheConfig caches until the next mutation
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{TTL: 0}
}
