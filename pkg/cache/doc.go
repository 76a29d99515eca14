// Package cache provides a generic, thread-safe LRU (Least Recently Used) cache
// with optional per-entry expiry.
//
// The cache evicts the least recently used entry when it reaches its configured
// capacity, and treats entries past their TTL as absent. Expired entries are
// removed lazily on Get or eagerly with Prune, so no background goroutine is
// owned by the cache itself.
//
// # Usage
//
//	c := cache.NewLRUCache[string, []byte](1024, cache.WithTTL(time.Minute))
//
//	c.Put("a", payload)                      // default TTL
//	c.PutWithTTL("b", payload, time.Second)  // explicit TTL
//	v, ok := c.Get("a")
//
//	// periodic janitor owned by the caller
//	removed := c.Prune()
//
// # Eviction callbacks
//
// The callback receives the reason an entry left the cache, which lets callers
// tell capacity pressure apart from expiry or explicit removal:
//
//	c.SetEvictCallback(func(key string, v []byte, reason cache.EvictReason) {
//		if reason == cache.EvictedCapacity {
//			evictions.Inc()
//		}
//	})
//
// The callback runs while the cache lock is held and must not call back into
// the cache.
//
// # Time source
//
// WithClock replaces time.Now, which keeps expiry tests deterministic.
package cache
