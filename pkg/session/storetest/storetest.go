// Package storetest holds the behaviour every session.Store must share.
//
// Store packages call Run from their tests with a factory that builds a fresh,
// empty store driven by the given Clock:
//
//	func TestConformance(t *testing.T) {
//		storetest.Run(t, func(t *testing.T, clock *storetest.Clock) session.Store {
//			return session.NewMemoryStore(0, session.WithMemoryClock(clock.Now))
//		})
//	}
//
// Run exercises the store as is and wrapped in a session.CachingStore.
package storetest

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessionkit/pkg/session"
)

// Epoch is where every Clock starts.
var Epoch = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

// Clock is a manually advanced time source shared by the suite and the store.
type Clock struct {
	mu    sync.Mutex
	now   time.Time
	hooks []func(now time.Time, d time.Duration)
}

// NewClock returns a clock set to Epoch.
func NewClock() *Clock {
	return &Clock{now: Epoch}
}

// Now returns the current test time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward and runs the OnAdvance hooks.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now, hooks := c.now, c.hooks
	c.mu.Unlock()

	for _, fn := range hooks {
		fn(now, d)
	}
}

// OnAdvance registers fn to run after every Advance, e.g. to move a server
// side clock along.
func (c *Clock) OnAdvance(fn func(now time.Time, d time.Duration)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, fn)
}

// Factory builds a fresh, empty store whose notion of time follows clock.
type Factory func(t *testing.T, clock *Clock) session.Store

// Run checks newStore against the store contract, bare and behind a CachingStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	variants := map[string]Factory{
		"bare": newStore,
		"cached": func(t *testing.T, clock *Clock) session.Store {
			cached := session.NewCachingStore(newStore(t, clock), session.WithCacheClock(clock.Now))
			t.Cleanup(func() { _ = cached.Close() })
			return cached
		},
	}
	for name, factory := range variants {
		t.Run(name, func(t *testing.T) {
			for _, c := range cases {
				t.Run(c.name, func(t *testing.T) {
					clock := NewClock()
					c.run(t, factory(t, clock), clock)
				})
			}
		})
	}
}

type testCase struct {
	name string
	run  func(t *testing.T, store session.Store, clock *Clock)
}

var cases = []testCase{
	{"load after create", testLoadAfterCreate},
	{"create allocates unique ids", testCreateUnique},
	{"load missing", testLoadMissing},
	{"update existing", testUpdateExisting},
	{"update missing", testUpdateMissing},
	{"touch existing", testTouchExisting},
	{"touch missing", testTouchMissing},
	{"expires after create", testExpiresAfterCreate},
	{"expires after update", testExpiresAfterUpdate},
	{"expires after touch", testExpiresAfterTouch},
	{"create with expiry in the past", testCreatePastExpiry},
	{"update with expiry in the past", testUpdatePastExpiry},
	{"update missing with expiry in the past", testUpdateMissingPastExpiry},
	{"touch with expiry in the past", testTouchPastExpiry},
	{"touch extends a session about to expire", testTouchExtends},
	{"touch does not revive an expired session", testTouchDoesNotRevive},
	{"update does not revive an expired session", testUpdateDoesNotRevive},
	{"delete after create", testDeleteAfterCreate},
	{"delete after update", testDeleteAfterUpdate},
	{"delete missing", testDeleteMissing},
	{"sub-second expiry", testSubSecondExpiry},
	{"loaded data is a copy", testLoadedDataIsCopy},
	{"concurrent use", testConcurrent},
	{"delete expired", testDeleteExpired},
}

func create(t *testing.T, store session.Store, data string, expiresAt time.Time) session.ID {
	t.Helper()
	id, err := store.Create(context.Background(), []byte(data), expiresAt)
	require.NoError(t, err)
	return id
}

func requireLoad(t *testing.T, store session.Store, id session.ID, data string, expiresAt time.Time) {
	t.Helper()
	rec, err := store.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, []byte(data), rec.Data)
	assert.WithinDuration(t, expiresAt, rec.ExpiresAt, time.Millisecond)
	assert.False(t, rec.ExpiresAt.After(expiresAt), "a store may round the expiry down, never up")
}

func requireGone(t *testing.T, store session.Store, id session.ID) {
	t.Helper()
	rec, err := store.Load(context.Background(), id)
	assert.ErrorIs(t, err, session.ErrNotFound)
	assert.Nil(t, rec)
}

func missingID(t *testing.T) session.ID {
	t.Helper()
	id, err := session.NewID()
	require.NoError(t, err)
	return id
}

func testLoadAfterCreate(t *testing.T, store session.Store, clock *Clock) {
	expiresAt := clock.Now().Add(time.Hour)
	id := create(t, store, "payload", expiresAt)
	requireLoad(t, store, id, "payload", expiresAt)
}

func testCreateUnique(t *testing.T, store session.Store, clock *Clock) {
	const n = 100
	expiresAt := clock.Now().Add(time.Hour)
	ids := make(map[session.ID]string, n)
	for i := range n {
		data := fmt.Sprintf("data-%d", i)
		id := create(t, store, data, expiresAt)
		require.NotContains(t, ids, id)
		ids[id] = data
	}
	for id, data := range ids {
		requireLoad(t, store, id, data, expiresAt)
	}
}

func testLoadMissing(t *testing.T, store session.Store, _ *Clock) {
	requireGone(t, store, missingID(t))
}

func testUpdateExisting(t *testing.T, store session.Store, clock *Clock) {
	id := create(t, store, "v1", clock.Now().Add(time.Minute))

	expiresAt := clock.Now().Add(2 * time.Hour)
	require.NoError(t, store.Update(context.Background(), id, []byte("v2"), expiresAt))
	requireLoad(t, store, id, "v2", expiresAt)
}

func testUpdateMissing(t *testing.T, store session.Store, clock *Clock) {
	id := missingID(t)
	err := store.Update(context.Background(), id, []byte("v"), clock.Now().Add(time.Hour))
	assert.ErrorIs(t, err, session.ErrNotFound)
	requireGone(t, store, id)
}

func testTouchExisting(t *testing.T, store session.Store, clock *Clock) {
	id := create(t, store, "v", clock.Now().Add(time.Minute))

	expiresAt := clock.Now().Add(3 * time.Hour)
	require.NoError(t, store.Touch(context.Background(), id, expiresAt))
	requireLoad(t, store, id, "v", expiresAt)
}

func testTouchMissing(t *testing.T, store session.Store, clock *Clock) {
	id := missingID(t)
	err := store.Touch(context.Background(), id, clock.Now().Add(time.Hour))
	assert.ErrorIs(t, err, session.ErrNotFound)
	requireGone(t, store, id)
}

func testExpiresAfterCreate(t *testing.T, store session.Store, clock *Clock) {
	id := create(t, store, "v", clock.Now().Add(time.Minute))
	requireLoad(t, store, id, "v", clock.Now().Add(time.Minute))

	clock.Advance(time.Minute)
	requireGone(t, store, id)
}

func testExpiresAfterUpdate(t *testing.T, store session.Store, clock *Clock) {
	id := create(t, store, "v1", clock.Now().Add(time.Hour))
	require.NoError(t, store.Update(context.Background(), id, []byte("v2"), clock.Now().Add(time.Minute)))

	clock.Advance(time.Minute)
	requireGone(t, store, id)
}

func testExpiresAfterTouch(t *testing.T, store session.Store, clock *Clock) {
	id := create(t, store, "v", clock.Now().Add(time.Hour))
	require.NoError(t, store.Touch(context.Background(), id, clock.Now().Add(time.Minute)))

	clock.Advance(time.Minute)
	requireGone(t, store, id)
}

func testCreatePastExpiry(t *testing.T, store session.Store, clock *Clock) {
	id := create(t, store, "dead", clock.Now().Add(-time.Hour))
	requireGone(t, store, id)
}

func testUpdatePastExpiry(t *testing.T, store session.Store, clock *Clock) {
	id := create(t, store, "v", clock.Now().Add(time.Hour))
	require.NoError(t, store.Update(context.Background(), id, []byte("dead"), clock.Now().Add(-time.Hour)))
	requireGone(t, store, id)
}

func testUpdateMissingPastExpiry(t *testing.T, store session.Store, clock *Clock) {
	id := missingID(t)
	err := store.Update(context.Background(), id, []byte("dead"), clock.Now().Add(-time.Hour))
	assert.ErrorIs(t, err, session.ErrNotFound)
	requireGone(t, store, id)
}

func testTouchPastExpiry(t *testing.T, store session.Store, clock *Clock) {
	id := create(t, store, "v", clock.Now().Add(time.Hour))
	require.NoError(t, store.Touch(context.Background(), id, clock.Now().Add(-time.Hour)))
	requireGone(t, store, id)
}

func testTouchExtends(t *testing.T, store session.Store, clock *Clock) {
	id := create(t, store, "v", clock.Now().Add(time.Minute))

	clock.Advance(30 * time.Second)
	expiresAt := clock.Now().Add(time.Hour)
	require.NoError(t, store.Touch(context.Background(), id, expiresAt))

	clock.Advance(time.Minute)
	requireLoad(t, store, id, "v", expiresAt)
}

func testTouchDoesNotRevive(t *testing.T, store session.Store, clock *Clock) {
	id := create(t, store, "v", clock.Now().Add(time.Minute))
	clock.Advance(2 * time.Minute)

	err := store.Touch(context.Background(), id, clock.Now().Add(time.Hour))
	assert.ErrorIs(t, err, session.ErrNotFound)
	requireGone(t, store, id)
}

func testUpdateDoesNotRevive(t *testing.T, store session.Store, clock *Clock) {
	id := create(t, store, "v", clock.Now().Add(time.Minute))
	clock.Advance(2 * time.Minute)

	err := store.Update(context.Background(), id, []byte("v2"), clock.Now().Add(time.Hour))
	assert.ErrorIs(t, err, session.ErrNotFound)
	requireGone(t, store, id)
}

func testDeleteAfterCreate(t *testing.T, store session.Store, clock *Clock) {
	id := create(t, store, "v", clock.Now().Add(time.Hour))
	require.NoError(t, store.Delete(context.Background(), id))
	requireGone(t, store, id)
}

func testDeleteAfterUpdate(t *testing.T, store session.Store, clock *Clock) {
	ctx := context.Background()
	id := create(t, store, "v1", clock.Now().Add(time.Hour))
	require.NoError(t, store.Update(ctx, id, []byte("v2"), clock.Now().Add(2*time.Hour)))
	require.NoError(t, store.Delete(ctx, id))
	requireGone(t, store, id)
}

func testDeleteMissing(t *testing.T, store session.Store, _ *Clock) {
	id := missingID(t)
	assert.NoError(t, store.Delete(context.Background(), id))
	assert.NoError(t, store.Delete(context.Background(), id), "delete is idempotent")
}

func testSubSecondExpiry(t *testing.T, store session.Store, clock *Clock) {
	ctx := context.Background()
	expiresAt := clock.Now().Add(time.Hour + 999_999_999*time.Nanosecond)

	id := create(t, store, "v1", expiresAt)
	requireLoad(t, store, id, "v1", expiresAt)

	require.NoError(t, store.Update(ctx, id, []byte("v2"), expiresAt.Add(time.Hour)))
	requireLoad(t, store, id, "v2", expiresAt.Add(time.Hour))

	require.NoError(t, store.Touch(ctx, id, expiresAt.Add(2*time.Hour)))
	requireLoad(t, store, id, "v2", expiresAt.Add(2*time.Hour))
}

func testLoadedDataIsCopy(t *testing.T, store session.Store, clock *Clock) {
	ctx := context.Background()
	payload := []byte("original")
	expiresAt := clock.Now().Add(time.Hour)

	id, err := store.Create(ctx, payload, expiresAt)
	require.NoError(t, err)
	copy(payload, "mutated!")

	rec, err := store.Load(ctx, id)
	require.NoError(t, err)
	copy(rec.Data, "mutated!")

	requireLoad(t, store, id, "original", expiresAt)
}

func testConcurrent(t *testing.T, store session.Store, clock *Clock) {
	ctx := context.Background()
	expiresAt := clock.Now().Add(time.Hour)

	const workers = 16
	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			data := []byte(fmt.Sprintf("worker-%d", w))
			id, err := store.Create(ctx, data, expiresAt)
			if !assert.NoError(t, err) {
				return
			}
			for range 10 {
				rec, err := store.Load(ctx, id)
				if !assert.NoError(t, err) {
					return
				}
				assert.True(t, bytes.HasPrefix(rec.Data, data))
				assert.NoError(t, store.Update(ctx, id, append(bytes.Clone(data), '+'), expiresAt))
			}
			assert.NoError(t, store.Delete(ctx, id))
		}()
	}
	wg.Wait()
}

func testDeleteExpired(t *testing.T, store session.Store, clock *Clock) {
	reaper, ok := store.(session.ExpiredDeleter)
	if !ok {
		t.Skip("store does not reap in bulk")
	}
	ctx := context.Background()

	expired := create(t, store, "old", clock.Now().Add(time.Minute))
	live := create(t, store, "new", clock.Now().Add(time.Hour))
	clock.Advance(time.Minute)

	// Shared backends may hold other expired rows, so the count is not checked.
	_, err := reaper.DeleteExpired(ctx)
	require.NoError(t, err)

	requireGone(t, store, expired)
	requireLoad(t, store, live, "new", Epoch.Add(time.Hour))
}
