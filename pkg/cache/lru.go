package cache

import (
	"container/list"
	"sync"
	"time"
)

// EvictReason tells an eviction callback why an entry left the cache.
type EvictReason uint8

const (
	// EvictedCapacity means the entry was the least recently used one when the cache overflowed.
	EvictedCapacity EvictReason = iota + 1
	// EvictedExpired means the entry outlived its TTL.
	EvictedExpired
	// EvictedRemoved means the entry was removed explicitly.
	EvictedRemoved
	// EvictedCleared means the whole cache was cleared.
	EvictedCleared
)

func (r EvictReason) String() string {
	switch r {
	case EvictedCapacity:
		return "capacity"
	case EvictedExpired:
		return "expired"
	case EvictedRemoved:
		return "removed"
	case EvictedCleared:
		return "cleared"
	default:
		return "unknown"
	}
}

type lruEntry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time // zero means no expiry
}

// Option configures an LRUCache.
type Option func(*options)

type options struct {
	ttl time.Duration
	now func() time.Time
}

// WithTTL sets the default time-to-live applied by Put.
// Zero disables expiry for entries stored without an explicit TTL.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithClock overrides the time source used to evaluate expiry.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// LRUCache is a thread-safe LRU cache with optional per-entry expiry.
// When the cache reaches its capacity, the least recently used item is evicted.
// Expired entries are dropped lazily on access or in bulk by Prune.
type LRUCache[K comparable, V any] struct {
	capacity int
	ttl      time.Duration
	now      func() time.Time
	items    map[K]*list.Element
	eviction *list.List
	mu       sync.Mutex
	onEvict  func(key K, value V, reason EvictReason)
}

// NewLRUCache creates a new LRU cache with the specified capacity.
// The capacity must be positive, otherwise it panics.
func NewLRUCache[K comparable, V any](capacity int, opts ...Option) *LRUCache[K, V] {
	if capacity <= 0 {
		panic("LRU cache capacity must be positive")
	}

	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	return &LRUCache[K, V]{
		capacity: capacity,
		ttl:      o.ttl,
		now:      o.now,
		items:    make(map[K]*list.Element),
		eviction: list.New(),
	}
}

// SetEvictCallback sets a callback invoked for every entry leaving the cache.
// The callback runs with the cache lock held and must not call back into the cache.
func (c *LRUCache[K, V]) SetEvictCallback(fn func(key K, value V, reason EvictReason)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvict = fn
}

// Get retrieves a value from the cache and marks it as recently used.
// Returns the value and true if found and not expired, zero value and false otherwise.
func (c *LRUCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	elem, ok := c.items[key]
	if !ok {
		return zero, false
	}

	entry := elem.Value.(*lruEntry[K, V])
	if c.expired(entry, c.now()) {
		c.removeElement(elem, EvictedExpired)
		return zero, false
	}

	c.eviction.MoveToFront(elem)
	return entry.value, true
}

// Put adds or updates a value using the cache default TTL.
// Returns the previous value if it existed, and a boolean indicating if it existed.
func (c *LRUCache[K, V]) Put(key K, value V) (V, bool) {
	return c.PutWithTTL(key, value, c.ttl)
}

// PutWithTTL adds or updates a value that expires after ttl.
// A non-positive ttl stores the entry without expiry.
func (c *LRUCache[K, V]) PutWithTTL(key K, value V, ttl time.Duration) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.now().Add(ttl)
	}

	if elem, ok := c.items[key]; ok {
		c.eviction.MoveToFront(elem)
		entry := elem.Value.(*lruEntry[K, V])
		oldValue := entry.value
		entry.value = value
		entry.expiresAt = expiresAt
		return oldValue, true
	}

	entry := &lruEntry[K, V]{key: key, value: value, expiresAt: expiresAt}
	elem := c.eviction.PushFront(entry)
	c.items[key] = elem

	if c.eviction.Len() > c.capacity {
		c.evictOldest()
	}

	var zero V
	return zero, false
}

// Remove removes an item from the cache.
// Returns the removed value and true if it existed, zero value and false otherwise.
func (c *LRUCache[K, V]) Remove(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		entry := elem.Value.(*lruEntry[K, V])
		c.removeElement(elem, EvictedRemoved)
		return entry.value, true
	}

	var zero V
	return zero, false
}

// Prune drops every expired entry and returns how many were removed.
func (c *LRUCache[K, V]) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for elem := c.eviction.Back(); elem != nil; {
		prev := elem.Prev()
		if c.expired(elem.Value.(*lruEntry[K, V]), now) {
			c.removeElement(elem, EvictedExpired)
			removed++
		}
		elem = prev
	}
	return removed
}

// Len reports the number of stored entries, including expired ones not yet pruned.
func (c *LRUCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eviction.Len()
}

// Clear removes all items from the cache.
// If an evict callback is set, it's called for each item.
func (c *LRUCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.onEvict != nil {
		for _, elem := range c.items {
			entry := elem.Value.(*lruEntry[K, V])
			c.onEvict(entry.key, entry.value, EvictedCleared)
		}
	}

	c.items = make(map[K]*list.Element)
	c.eviction.Init()
}

func (c *LRUCache[K, V]) expired(entry *lruEntry[K, V], now time.Time) bool {
	return !entry.expiresAt.IsZero() && !now.Before(entry.expiresAt)
}

// Must be called with lock held.
func (c *LRUCache[K, V]) evictOldest() {
	elem := c.eviction.Back()
	if elem != nil {
		c.removeElement(elem, EvictedCapacity)
	}
}

// Must be called with lock held.
func (c *LRUCache[K, V]) removeElement(elem *list.Element, reason EvictReason) {
	c.eviction.Remove(elem)
	entry := elem.Value.(*lruEntry[K, V])
	delete(c.items, entry.key)

	if c.onEvict != nil {
		c.onEvict(entry.key, entry.value, reason)
	}
}
