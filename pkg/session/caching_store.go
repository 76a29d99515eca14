package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"

	"github.com/dmitrymomot/sessionkit/pkg/cache"
)

// cacheEntry is a cached load result. A nil record is a cached ErrNotFound.
type cacheEntry struct {
	record *Record
}

type cacheShard struct {
	// mu orders writes against load publication. gen is bumped by every write
	// so a load that started before the write never publishes its result.
	mu      sync.Mutex
	gen     uint64
	entries *cache.LRUCache[ID, cacheEntry]
	flight  singleflight.Group
}

func (sh *cacheShard) generation() uint64 {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.gen
}

// CachingStore decorates a Store with a bounded local cache.
//
// Concurrent loads of the same ID are coalesced into a single backend call,
// whose result is shared with every waiter. Writes go to the backend first and
// update the cache only once the backend accepted them. Loads racing a write
// never publish stale data.
type CachingStore struct {
	backend Store
	shards  []*cacheShard
	opts    cachingOptions
	metrics *cacheMetrics

	done      chan struct{}
	closeOnce sync.Once
}

type cachingOptions struct {
	shards        int
	capacity      int
	ttl           time.Duration
	negativeTTL   time.Duration
	loadTimeout   time.Duration
	pruneInterval time.Duration
	now           func() time.Time
	registerer    prometheus.Registerer
	namespace     string
}

// CacheOption configures a CachingStore.
type CacheOption func(*cachingOptions)

// WithCacheCapacity bounds the number of cached records across all shards.
func WithCacheCapacity(n int) CacheOption {
	return func(o *cachingOptions) {
		if n > 0 {
			o.capacity = n
		}
	}
}

// WithCacheShards sets how many independently locked shards the cache uses.
func WithCacheShards(n int) CacheOption {
	return func(o *cachingOptions) {
		if n > 0 {
			o.shards = n
		}
	}
}

// WithCacheTTL bounds how long a record may be served without asking the backend.
func WithCacheTTL(ttl time.Duration) CacheOption {
	return func(o *cachingOptions) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithNegativeTTL enables caching of not-found results for ttl. Zero disables it.
func WithNegativeTTL(ttl time.Duration) CacheOption {
	return func(o *cachingOptions) {
		if ttl >= 0 {
			o.negativeTTL = ttl
		}
	}
}

// WithLoadTimeout bounds a coalesced backend load. Zero means no bound beyond the
// backend's own timeouts.
func WithLoadTimeout(d time.Duration) CacheOption {
	return func(o *cachingOptions) {
		if d >= 0 {
			o.loadTimeout = d
		}
	}
}

// WithPruneInterval starts a janitor that drops expired entries. Zero disables it.
func WithPruneInterval(d time.Duration) CacheOption {
	return func(o *cachingOptions) {
		if d >= 0 {
			o.pruneInterval = d
		}
	}
}

// WithCacheClock overrides the time source.
func WithCacheClock(now func() time.Time) CacheOption {
	return func(o *cachingOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// WithMetrics registers the cache collectors on reg under namespace.
func WithMetrics(reg prometheus.Registerer, namespace string) CacheOption {
	return func(o *cachingOptions) {
		o.registerer = reg
		if namespace != "" {
			o.namespace = namespace
		}
	}
}

// NewCachingStore wraps backend with a local cache.
func NewCachingStore(backend Store, opts ...CacheOption) *CachingStore {
	o := cachingOptions{
		shards:      16,
		capacity:    10000,
		ttl:         time.Minute,
		loadTimeout: 5 * time.Second,
		now:         time.Now,
		namespace:   "session",
	}
	for _, opt := range opts {
		opt(&o)
	}

	c := &CachingStore{
		backend: backend,
		shards:  make([]*cacheShard, o.shards),
		opts:    o,
		metrics: newCacheMetrics(o.registerer, o.namespace),
		done:    make(chan struct{}),
	}

	perShard := max(1, (o.capacity+o.shards-1)/o.shards)
	for i := range c.shards {
		entries := cache.NewLRUCache[ID, cacheEntry](perShard, cache.WithClock(o.now))
		entries.SetEvictCallback(func(_ ID, _ cacheEntry, reason cache.EvictReason) {
			c.metrics.evicted(reason)
		})
		c.shards[i] = &cacheShard{entries: entries}
	}

	if o.pruneInterval > 0 {
		go c.pruneLoop(o.pruneInterval)
	}

	return c
}

// NewCachingStoreFromConfig wraps backend using the cache settings of cfg.
func NewCachingStoreFromConfig(backend Store, cfg Config, opts ...CacheOption) *CachingStore {
	configOpts := []CacheOption{
		WithCacheCapacity(cfg.CacheCapacity),
		WithCacheShards(cfg.CacheShards),
		WithCacheTTL(cfg.CacheTTL),
		WithNegativeTTL(cfg.CacheNegativeTTL),
		WithLoadTimeout(cfg.CacheLoadTimeout),
		WithPruneInterval(cfg.CachePruneInterval),
	}
	return NewCachingStore(backend, append(configOpts, opts...)...)
}

func (c *CachingStore) shard(id ID) *cacheShard {
	return c.shards[id.shard(len(c.shards))]
}

// flightResult is what one backend load hands to every caller sharing it.
// gen is the shard generation the load started under.
type flightResult struct {
	record *Record
	gen    uint64
}

// Load returns the cached record or loads it from the backend. Concurrent
// callers for the same ID share one backend load; each caller still honours
// its own context while waiting.
//
// A shared load that started before a write the caller has already observed
// is not trusted: the caller waits for it and then joins or starts a new one.
// So there is never more than one backend load per ID in flight.
func (c *CachingStore) Load(ctx context.Context, id ID) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sh := c.shard(id)
	if rec, hit := c.lookup(sh, id); hit {
		c.metrics.hits.Inc()
		if rec == nil {
			return nil, ErrNotFound
		}
		return rec.Clone(), nil
	}
	c.metrics.misses.Inc()

	want := sh.generation()
	key := id.Encode()
	for {
		ch := sh.flight.DoChan(key, func() (any, error) {
			return c.load(ctx, sh, id)
		})

		var res singleflight.Result
		select {
		case res = <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		fr, _ := res.Val.(flightResult)
		if fr.gen < want {
			continue
		}
		if res.Shared {
			c.metrics.coalesced.Inc()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return fr.record.Clone(), nil
	}
}

// load runs once per flight. It is detached from the caller's cancellation so
// that one impatient caller cannot fail the load for everyone sharing it.
func (c *CachingStore) load(ctx context.Context, sh *cacheShard, id ID) (any, error) {
	gen := sh.generation()

	// A flight that finished just before this one started may have populated the cache.
	if rec, hit := c.lookup(sh, id); hit {
		if rec == nil {
			return flightResult{gen: gen}, ErrNotFound
		}
		return flightResult{record: rec, gen: gen}, nil
	}

	loadCtx := context.WithoutCancel(ctx)
	if c.opts.loadTimeout > 0 {
		var cancel context.CancelFunc
		loadCtx, cancel = context.WithTimeout(loadCtx, c.opts.loadTimeout)
		defer cancel()
	}

	c.metrics.loads.Inc()
	rec, err := c.backend.Load(loadCtx, id)
	switch {
	case err == nil:
		c.publish(sh, gen, id, rec)
		return flightResult{record: rec, gen: gen}, nil
	case errors.Is(err, ErrNotFound):
		if c.opts.negativeTTL > 0 {
			c.publish(sh, gen, id, nil)
		}
		return flightResult{gen: gen}, err
	default:
		c.metrics.loadErrors.Inc()
		return flightResult{gen: gen}, err
	}
}

// lookup returns the cached record (nil for a negative entry) and whether the cache answered.
func (c *CachingStore) lookup(sh *cacheShard, id ID) (*Record, bool) {
	entry, ok := sh.entries.Get(id)
	if !ok {
		return nil, false
	}
	if entry.record != nil && !c.opts.now().Before(entry.record.ExpiresAt) {
		sh.entries.Remove(id)
		return nil, false
	}
	return entry.record, true
}

// publish stores a load result unless a write happened since gen was read.
func (c *CachingStore) publish(sh *cacheShard, gen uint64, id ID, rec *Record) {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if sh.gen != gen {
		return
	}
	if rec == nil {
		sh.entries.PutWithTTL(id, cacheEntry{}, c.opts.negativeTTL)
		return
	}
	if ttl := c.entryTTL(rec.ExpiresAt); ttl > 0 {
		sh.entries.PutWithTTL(id, cacheEntry{record: rec}, ttl)
	}
}

// write applies a successful backend write to the cache.
// A nil record drops the entry.
func (c *CachingStore) write(sh *cacheShard, id ID, rec *Record) {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sh.gen++

	if rec == nil {
		sh.entries.Remove(id)
		return
	}
	if ttl := c.entryTTL(rec.ExpiresAt); ttl > 0 {
		sh.entries.PutWithTTL(id, cacheEntry{record: rec}, ttl)
		return
	}
	sh.entries.Remove(id)
}

func (c *CachingStore) entryTTL(expiresAt time.Time) time.Duration {
	return min(c.opts.ttl, expiresAt.Sub(c.opts.now()))
}

// Create writes through to the backend and caches the new record.
func (c *CachingStore) Create(ctx context.Context, data []byte, expiresAt time.Time) (ID, error) {
	id, err := c.backend.Create(ctx, data, expiresAt)
	if err != nil {
		return ID{}, err
	}
	c.write(c.shard(id), id, &Record{ID: id, Data: bytes.Clone(data), ExpiresAt: expiresAt})
	return id, nil
}

// Update writes through to the backend. The cache entry is replaced on
// success and dropped on any failure, since the backend state is then unknown.
func (c *CachingStore) Update(ctx context.Context, id ID, data []byte, expiresAt time.Time) error {
	sh := c.shard(id)
	if err := c.backend.Update(ctx, id, data, expiresAt); err != nil {
		c.write(sh, id, nil)
		return err
	}
	c.write(sh, id, &Record{ID: id, Data: bytes.Clone(data), ExpiresAt: expiresAt})
	return nil
}

// Delete removes the record from the backend and the cache.
func (c *CachingStore) Delete(ctx context.Context, id ID) error {
	err := c.backend.Delete(ctx, id)
	c.write(c.shard(id), id, nil)
	return err
}

// Touch extends the expiry in the backend and, if cached, in the cache.
func (c *CachingStore) Touch(ctx context.Context, id ID, expiresAt time.Time) error {
	sh := c.shard(id)
	if err := c.backend.Touch(ctx, id, expiresAt); err != nil {
		c.write(sh, id, nil)
		return err
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()

	sh.gen++

	entry, ok := sh.entries.Get(id)
	if !ok || entry.record == nil {
		sh.entries.Remove(id)
		return nil
	}
	if ttl := c.entryTTL(expiresAt); ttl > 0 {
		touched := &Record{ID: id, Data: entry.record.Data, ExpiresAt: expiresAt}
		sh.entries.PutWithTTL(id, cacheEntry{record: touched}, ttl)
		return nil
	}
	sh.entries.Remove(id)
	return nil
}

// Purge drops every cached entry without touching the backend.
func (c *CachingStore) Purge() {
	for _, sh := range c.shards {
		sh.mu.Lock()
		sh.gen++
		sh.entries.Clear()
		sh.mu.Unlock()
	}
}

// Len returns the number of cached entries, including negative ones.
func (c *CachingStore) Len() int {
	n := 0
	for _, sh := range c.shards {
		n += sh.entries.Len()
	}
	return n
}

// DeleteExpired forwards to the first store in the backend chain that supports
// bulk reaping. Reaped records were already invisible, so the cache is kept.
func (c *CachingStore) DeleteExpired(ctx context.Context) (int, error) {
	if d, ok := find[ExpiredDeleter](c.backend); ok {
		return d.DeleteExpired(ctx)
	}
	return 0, nil
}

// Close stops the janitor and closes the first io.Closer in the backend chain.
func (c *CachingStore) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		if closer, ok := find[io.Closer](c.backend); ok {
			err = closer.Close()
		}
	})
	return err
}

// Unwrap returns the decorated store.
func (c *CachingStore) Unwrap() Store {
	return c.backend
}

func (c *CachingStore) pruneLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, sh := range c.shards {
				sh.entries.Prune()
			}
		case <-c.done:
			return
		}
	}
}
