package session_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessionkit/pkg/session"
	"github.com/dmitrymomot/sessionkit/pkg/session/storetest"
)

// testClock is a manually advanced time source safe for concurrent use.
type testClock struct {
	now atomic.Int64
}

func newTestClock() *testClock {
	c := &testClock{}
	c.now.Store(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC).UnixNano())
	return c
}

func (c *testClock) Now() time.Time {
	return time.Unix(0, c.now.Load()).UTC()
}

func (c *testClock) Advance(d time.Duration) {
	c.now.Add(int64(d))
}

func TestMemoryStore_CreateLoad(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	store := session.NewMemoryStore(0, session.WithMemoryClock(clock.Now))
	defer store.Close()
	ctx := context.Background()

	data := []byte("payload")
	expiresAt := clock.Now().Add(time.Hour)

	id, err := store.Create(ctx, data, expiresAt)
	require.NoError(t, err)
	assert.False(t, id.IsZero())

	// Caller's buffer is copied.
	data[0] = 'X'

	rec, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, []byte("payload"), rec.Data)
	assert.True(t, expiresAt.Equal(rec.ExpiresAt))

	// Returned record is a copy.
	rec.Data[0] = 'Y'
	again, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), again.Data)
}

func TestMemoryStore_NotFound(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore(0)
	defer store.Close()
	ctx := context.Background()

	id, err := session.NewID()
	require.NoError(t, err)

	_, err = store.Load(ctx, id)
	assert.ErrorIs(t, err, session.ErrNotFound)

	err = store.Update(ctx, id, []byte("x"), time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, session.ErrNotFound)

	err = store.Touch(ctx, id, time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, session.ErrNotFound)

	assert.NoError(t, store.Delete(ctx, id), "deleting a missing record is not an error")
}

func TestMemoryStore_Expiry(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	store := session.NewMemoryStore(0, session.WithMemoryClock(clock.Now))
	defer store.Close()
	ctx := context.Background()

	id, err := store.Create(ctx, []byte("a"), clock.Now().Add(time.Minute))
	require.NoError(t, err)

	clock.Advance(time.Minute)

	t.Run("load", func(t *testing.T) {
		_, err := store.Load(ctx, id)
		assert.ErrorIs(t, err, session.ErrNotFound)
	})

	t.Run("update and touch", func(t *testing.T) {
		id, err := store.Create(ctx, []byte("b"), clock.Now().Add(time.Minute))
		require.NoError(t, err)
		clock.Advance(2 * time.Minute)

		assert.ErrorIs(t, store.Update(ctx, id, []byte("c"), clock.Now().Add(time.Hour)), session.ErrNotFound)
		assert.ErrorIs(t, store.Touch(ctx, id, clock.Now().Add(time.Hour)), session.ErrNotFound)
	})
}

func TestMemoryStore_UpdateTouch(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	store := session.NewMemoryStore(0, session.WithMemoryClock(clock.Now))
	defer store.Close()
	ctx := context.Background()

	id, err := store.Create(ctx, []byte("v1"), clock.Now().Add(time.Minute))
	require.NoError(t, err)

	later := clock.Now().Add(time.Hour)
	require.NoError(t, store.Update(ctx, id, []byte("v2"), later))

	rec, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), rec.Data)
	assert.True(t, later.Equal(rec.ExpiresAt))

	touched := clock.Now().Add(2 * time.Hour)
	require.NoError(t, store.Touch(ctx, id, touched))

	rec, err = store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), rec.Data, "touch keeps the payload")
	assert.True(t, touched.Equal(rec.ExpiresAt))

	require.NoError(t, store.Delete(ctx, id))
	_, err = store.Load(ctx, id)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestMemoryStore_Collision(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := newTestClock()
	taken := session.ID{1}
	fresh := session.ID{2}

	t.Run("retries on live record", func(t *testing.T) {
		store := session.NewMemoryStore(0,
			session.WithMemoryClock(clock.Now),
			session.WithMemoryIDGenerator(sequenceIDs(taken, taken, fresh)),
		)
		defer store.Close()

		id, err := store.Create(ctx, []byte("a"), clock.Now().Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, taken, id)

		id, err = store.Create(ctx, []byte("b"), clock.Now().Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, fresh, id)

		rec, err := store.Load(ctx, taken)
		require.NoError(t, err)
		assert.Equal(t, []byte("a"), rec.Data, "existing record must not be overwritten")
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		ids := make([]session.ID, session.MaxCreateAttempts+1)
		for i := range ids {
			ids[i] = taken
		}
		store := session.NewMemoryStore(0,
			session.WithMemoryClock(clock.Now),
			session.WithMemoryIDGenerator(sequenceIDs(ids...)),
		)
		defer store.Close()

		_, err := store.Create(ctx, []byte("a"), clock.Now().Add(time.Hour))
		require.NoError(t, err)

		_, err = store.Create(ctx, []byte("b"), clock.Now().Add(time.Hour))
		assert.ErrorIs(t, err, session.ErrCollision)
	})

	t.Run("expired record may be reused", func(t *testing.T) {
		store := session.NewMemoryStore(0,
			session.WithMemoryClock(clock.Now),
			session.WithMemoryIDGenerator(sequenceIDs(taken, taken)),
		)
		defer store.Close()

		_, err := store.Create(ctx, []byte("old"), clock.Now().Add(time.Second))
		require.NoError(t, err)
		clock.Advance(time.Second)

		id, err := store.Create(ctx, []byte("new"), clock.Now().Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, taken, id)
	})
}

func TestMemoryStore_DeleteExpired(t *testing.T) {
	t.Parallel()

	clock := newTestClock()
	store := session.NewMemoryStore(0, session.WithMemoryClock(clock.Now))
	defer store.Close()
	ctx := context.Background()

	for range 10 {
		_, err := store.Create(ctx, []byte("short"), clock.Now().Add(time.Minute))
		require.NoError(t, err)
	}
	keep, err := store.Create(ctx, []byte("long"), clock.Now().Add(time.Hour))
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)

	removed, err := store.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, removed)
	assert.Equal(t, 1, store.Len())

	_, err = store.Load(ctx, keep)
	assert.NoError(t, err)
}

func TestMemoryStore_CleanupLoop(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore(10 * time.Millisecond)
	defer store.Close()

	_, err := store.Create(context.Background(), []byte("x"), time.Now().Add(20*time.Millisecond))
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return store.Len() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestMemoryStore_Closed(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore(time.Minute)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close(), "close is idempotent")

	_, err := store.Create(context.Background(), []byte("x"), time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, session.ErrStoreClosed)
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore(0)
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Create(ctx, []byte("x"), time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryStore_Concurrency(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore(5 * time.Millisecond)
	defer store.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				id, err := store.Create(ctx, []byte("x"), time.Now().Add(time.Minute))
				if !assert.NoError(t, err) {
					return
				}
				_, _ = store.Load(ctx, id)
				_ = store.Update(ctx, id, []byte("y"), time.Now().Add(time.Minute))
				_ = store.Touch(ctx, id, time.Now().Add(2*time.Minute))
				_ = store.Delete(ctx, id)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStore_Conformance(t *testing.T) {
	t.Parallel()

	storetest.Run(t, func(t *testing.T, clock *storetest.Clock) session.Store {
		store := session.NewMemoryStore(0, session.WithMemoryClock(clock.Now))
		t.Cleanup(func() { _ = store.Close() })
		return store
	})
}

func TestTracingStore_Conformance(t *testing.T) {
	t.Parallel()

	storetest.Run(t, func(t *testing.T, clock *storetest.Clock) session.Store {
		store := session.NewMemoryStore(0, session.WithMemoryClock(clock.Now))
		t.Cleanup(func() { _ = store.Close() })
		return session.NewTracingStore(store, session.WithBackendName("memory"))
	})
}
