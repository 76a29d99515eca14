package session

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"time"
)

const memoryShards = 64

type memoryRecord struct {
	data      []byte
	expiresAt time.Time
}

type memoryShard struct {
	mu      sync.RWMutex
	records map[ID]memoryRecord
}

// MemoryStore implements Store in process memory.
// Records are spread over independently locked shards, so operations on
// different IDs rarely contend. Expired records are invisible immediately and
// reclaimed lazily or by the periodic sweep.
type MemoryStore struct {
	shards [memoryShards]memoryShard
	now    func() time.Time
	newID  IDGenerator

	ticker    *time.Ticker
	done      chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithMemoryClock overrides the time source used for expiry checks.
func WithMemoryClock(now func() time.Time) MemoryStoreOption {
	return func(m *MemoryStore) {
		if now != nil {
			m.now = now
		}
	}
}

// WithMemoryIDGenerator overrides the ID source used by Create.
func WithMemoryIDGenerator(gen IDGenerator) MemoryStoreOption {
	return func(m *MemoryStore) {
		if gen != nil {
			m.newID = gen
		}
	}
}

// NewMemoryStore creates a new in-memory session store.
// A positive cleanupInterval starts a background sweep of expired records.
func NewMemoryStore(cleanupInterval time.Duration, opts ...MemoryStoreOption) *MemoryStore {
	store := &MemoryStore{
		now:   time.Now,
		newID: NewID,
		done:  make(chan struct{}),
	}
	for i := range store.shards {
		store.shards[i].records = make(map[ID]memoryRecord)
	}
	for _, opt := range opts {
		opt(store)
	}

	if cleanupInterval > 0 {
		store.ticker = time.NewTicker(cleanupInterval)
		go store.cleanupLoop()
	}

	return store
}

func (m *MemoryStore) shard(id ID) *memoryShard {
	return &m.shards[id.shard(memoryShards)]
}

func (m *MemoryStore) check(ctx context.Context) error {
	if m.closed.Load() {
		return ErrStoreClosed
	}
	return ctx.Err()
}

// Create stores a new record under a fresh ID
func (m *MemoryStore) Create(ctx context.Context, data []byte, expiresAt time.Time) (ID, error) {
	if err := m.check(ctx); err != nil {
		return ID{}, err
	}

	for range MaxCreateAttempts {
		id, err := m.newID()
		if err != nil {
			return ID{}, err
		}

		sh := m.shard(id)
		sh.mu.Lock()
		if rec, exists := sh.records[id]; exists && !m.expired(rec) {
			sh.mu.Unlock()
			continue
		}
		sh.records[id] = memoryRecord{data: bytes.Clone(data), expiresAt: expiresAt}
		sh.mu.Unlock()
		return id, nil
	}

	return ID{}, ErrCollision
}

// Load retrieves a live record
func (m *MemoryStore) Load(ctx context.Context, id ID) (*Record, error) {
	if err := m.check(ctx); err != nil {
		return nil, err
	}

	sh := m.shard(id)
	sh.mu.RLock()
	rec, exists := sh.records[id]
	sh.mu.RUnlock()

	if !exists {
		return nil, ErrNotFound
	}
	if m.expired(rec) {
		m.reap(sh, id)
		return nil, ErrNotFound
	}

	return &Record{ID: id, Data: bytes.Clone(rec.data), ExpiresAt: rec.expiresAt}, nil
}

// Update replaces payload and expiry of a live record
func (m *MemoryStore) Update(ctx context.Context, id ID, data []byte, expiresAt time.Time) error {
	if err := m.check(ctx); err != nil {
		return err
	}

	sh := m.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	rec, exists := sh.records[id]
	if !exists {
		return ErrNotFound
	}
	if m.expired(rec) {
		delete(sh.records, id)
		return ErrNotFound
	}

	sh.records[id] = memoryRecord{data: bytes.Clone(data), expiresAt: expiresAt}
	return nil
}

// Touch rewrites the expiry of a live record
func (m *MemoryStore) Touch(ctx context.Context, id ID, expiresAt time.Time) error {
	if err := m.check(ctx); err != nil {
		return err
	}

	sh := m.shard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	rec, exists := sh.records[id]
	if !exists {
		return ErrNotFound
	}
	if m.expired(rec) {
		delete(sh.records, id)
		return ErrNotFound
	}

	rec.expiresAt = expiresAt
	sh.records[id] = rec
	return nil
}

// Delete removes a record by ID
func (m *MemoryStore) Delete(ctx context.Context, id ID) error {
	if err := m.check(ctx); err != nil {
		return err
	}

	sh := m.shard(id)
	sh.mu.Lock()
	delete(sh.records, id)
	sh.mu.Unlock()
	return nil
}

// DeleteExpired removes expired records one shard at a time, so concurrent
// operations on other shards are never blocked by the sweep.
func (m *MemoryStore) DeleteExpired(ctx context.Context) (int, error) {
	removed := 0
	for i := range m.shards {
		if err := ctx.Err(); err != nil {
			return removed, err
		}

		sh := &m.shards[i]
		sh.mu.Lock()
		for id, rec := range sh.records {
			if m.expired(rec) {
				delete(sh.records, id)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed, nil
}

// Len returns the number of stored records, including expired ones not yet reclaimed.
func (m *MemoryStore) Len() int {
	total := 0
	for i := range m.shards {
		sh := &m.shards[i]
		sh.mu.RLock()
		total += len(sh.records)
		sh.mu.RUnlock()
	}
	return total
}

// Close stops the cleanup goroutine. Further operations fail with ErrStoreClosed.
func (m *MemoryStore) Close() error {
	m.closeOnce.Do(func() {
		m.closed.Store(true)
		if m.ticker != nil {
			m.ticker.Stop()
		}
		close(m.done)
	})
	return nil
}

func (m *MemoryStore) expired(rec memoryRecord) bool {
	return !m.now().Before(rec.expiresAt)
}

// reap deletes id if it is still expired once the write lock is held.
func (m *MemoryStore) reap(sh *memoryShard, id ID) {
	sh.mu.Lock()
	if rec, exists := sh.records[id]; exists && m.expired(rec) {
		delete(sh.records, id)
	}
	sh.mu.Unlock()
}

// cleanupLoop runs periodic cleanup of expired records
func (m *MemoryStore) cleanupLoop() {
	for {
		select {
		case <-m.ticker.C:
			_, _ = m.DeleteExpired(context.Background())
		case <-m.done:
			return
		}
	}
}
