package session_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessionkit/pkg/session"
)

func newTestManager(t *testing.T, opts ...session.Option) *session.Manager {
	t.Helper()
	store := session.NewMemoryStore(0)
	t.Cleanup(func() { _ = store.Close() })

	base := []session.Option{
		session.WithCookieManager(newCookieManager(t)),
		session.WithStore(store),
	}
	return session.New(append(base, opts...)...)
}

// managerFixture wires a manager to a clock-controlled memory store.
type managerFixture struct {
	manager *session.Manager
	store   *session.MemoryStore
	clock   *testClock
	codec   *session.Codec
}

func newManagerFixture(t *testing.T, opts ...session.Option) *managerFixture {
	t.Helper()
	clock := newTestClock()
	store := session.NewMemoryStore(0, session.WithMemoryClock(clock.Now))
	t.Cleanup(func() { _ = store.Close() })

	cm := newCookieManager(t)
	base := []session.Option{
		session.WithCookieManager(cm),
		session.WithStore(store),
		session.WithClock(clock.Now),
		session.WithTTL(time.Hour),
		session.WithSliding(true, 5*time.Minute),
	}
	return &managerFixture{
		manager: session.New(append(base, opts...)...),
		store:   store,
		clock:   clock,
		codec:   session.NewCodec(cm, session.CookiePrivate),
	}
}

// seed stores a session with data and returns its cookie value.
func (f *managerFixture) seed(t *testing.T, data map[string]any) (session.ID, string) {
	t.Helper()
	ctx := context.Background()

	sess, err := f.manager.Load(ctx, "")
	require.NoError(t, err)
	sess.Set("seeded", true)
	for k, v := range data {
		sess.Set(k, v)
	}
	action, err := f.manager.Commit(ctx, sess)
	require.NoError(t, err)
	require.Equal(t, session.CookieSet, action.Kind)

	id, ok := sess.ID()
	require.True(t, ok)
	return id, action.Value
}

func TestNew_Panics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { session.New() }, "no cookie manager")
	assert.Panics(t, func() {
		session.New(session.WithConfig(session.Config{CookieMode: "bogus"}), session.WithCookieManager(newCookieManager(t)))
	})
	assert.NotPanics(t, func() {
		session.New(
			session.WithCodec(session.NewCodec(nil, session.CookiePlain)),
			session.WithTransport(session.NewHeaderTransport("X-Session")),
		)
	})
}

func TestManager_Load(t *testing.T) {
	t.Parallel()

	f := newManagerFixture(t)
	ctx := context.Background()
	_, value := f.seed(t, map[string]any{"user": "alice"})

	t.Run("no token", func(t *testing.T) {
		sess, err := f.manager.Load(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, session.StateAbsent, sess.State())
	})

	t.Run("valid token", func(t *testing.T) {
		sess, err := f.manager.Load(ctx, value)
		require.NoError(t, err)
		assert.Equal(t, session.StateLoaded, sess.State())
		user, _ := sess.GetString("user")
		assert.Equal(t, "alice", user)
		assert.True(t, f.clock.Now().Add(time.Hour).Equal(sess.ExpiresAt()))
	})

	t.Run("forged token", func(t *testing.T) {
		sess, err := f.manager.Load(ctx, "forged-value")
		require.NoError(t, err)
		assert.Equal(t, session.StateAbsent, sess.State())
	})

	t.Run("unknown id", func(t *testing.T) {
		id, err := session.NewID()
		require.NoError(t, err)
		token, err := f.codec.Encode(id)
		require.NoError(t, err)

		sess, err := f.manager.Load(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, session.StateNotFound, sess.State())
	})

	t.Run("expired", func(t *testing.T) {
		f := newManagerFixture(t)
		_, value := f.seed(t, map[string]any{"k": "v"})
		f.clock.Advance(time.Hour)

		sess, err := f.manager.Load(ctx, value)
		require.NoError(t, err)
		assert.Equal(t, session.StateNotFound, sess.State())
	})

	t.Run("store failure", func(t *testing.T) {
		m := newTestManager(t, session.WithStore(failingStore{err: session.BackendError(errors.New("dial tcp: refused"))}))
		token, err := f.codec.Encode(session.ID{1})
		require.NoError(t, err)

		_, err = m.Load(ctx, token)
		assert.ErrorIs(t, err, session.ErrUnavailable)
		assert.NotErrorIs(t, err, session.ErrNotFound)
	})

	t.Run("corrupt payload", func(t *testing.T) {
		id, err := f.store.Create(ctx, []byte{0xc1}, f.clock.Now().Add(time.Hour))
		require.NoError(t, err)
		token, err := f.codec.Encode(id)
		require.NoError(t, err)

		_, err = f.manager.Load(ctx, token)
		assert.ErrorIs(t, err, session.ErrSerialization)
	})
}

func TestManager_Commit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("absent unmodified writes nothing", func(t *testing.T) {
		f := newManagerFixture(t)
		sess, err := f.manager.Load(ctx, "")
		require.NoError(t, err)

		action, err := f.manager.Commit(ctx, sess)
		require.NoError(t, err)
		assert.Equal(t, session.CookieNone, action.Kind)
		assert.Equal(t, 0, f.store.Len())
	})

	t.Run("rejected cookie is cleared", func(t *testing.T) {
		f := newManagerFixture(t)
		sess, err := f.manager.Load(ctx, "garbage")
		require.NoError(t, err)

		action, err := f.manager.Commit(ctx, sess)
		require.NoError(t, err)
		assert.Equal(t, session.CookieClear, action.Kind)
		assert.Equal(t, 0, f.store.Len())
	})

	t.Run("new session is created", func(t *testing.T) {
		f := newManagerFixture(t)
		sess, err := f.manager.Load(ctx, "")
		require.NoError(t, err)
		sess.Set("k", "v")

		action, err := f.manager.Commit(ctx, sess)
		require.NoError(t, err)
		assert.Equal(t, session.CookieSet, action.Kind)
		assert.Equal(t, time.Hour, action.MaxAge)
		assert.True(t, f.clock.Now().Add(time.Hour).Equal(action.ExpiresAt))

		id, err := f.codec.Decode(action.Value)
		require.NoError(t, err)
		got, ok := sess.ID()
		assert.True(t, ok)
		assert.Equal(t, id, got)

		_, err = f.store.Load(ctx, id)
		assert.NoError(t, err)
	})

	t.Run("not found session with data gets a fresh id", func(t *testing.T) {
		f := newManagerFixture(t)
		gone, value := f.seed(t, map[string]any{"k": "v"})
		require.NoError(t, f.store.Delete(ctx, gone))

		sess, err := f.manager.Load(ctx, value)
		require.NoError(t, err)
		require.Equal(t, session.StateNotFound, sess.State())
		sess.Set("k", "again")

		action, err := f.manager.Commit(ctx, sess)
		require.NoError(t, err)
		assert.Equal(t, session.CookieSet, action.Kind)
		id, _ := sess.ID()
		assert.NotEqual(t, gone, id)
	})

	t.Run("not found unmodified clears cookie", func(t *testing.T) {
		f := newManagerFixture(t)
		gone, value := f.seed(t, nil)
		require.NoError(t, f.store.Delete(ctx, gone))

		sess, err := f.manager.Load(ctx, value)
		require.NoError(t, err)

		action, err := f.manager.Commit(ctx, sess)
		require.NoError(t, err)
		assert.Equal(t, session.CookieClear, action.Kind)
	})

	t.Run("modified session is updated in place", func(t *testing.T) {
		f := newManagerFixture(t)
		id, value := f.seed(t, map[string]any{"count": 1})

		sess, err := f.manager.Load(ctx, value)
		require.NoError(t, err)
		sess.Set("count", 2)
		assert.Equal(t, session.StateDirty, sess.State())

		action, err := f.manager.Commit(ctx, sess)
		require.NoError(t, err)
		assert.Equal(t, session.CookieSet, action.Kind)
		got, _ := sess.ID()
		assert.Equal(t, id, got)

		again, err := f.manager.Load(ctx, value)
		require.NoError(t, err)
		count, _ := again.GetInt("count")
		assert.Equal(t, 2, count)
	})

	t.Run("update of vanished record recreates it", func(t *testing.T) {
		f := newManagerFixture(t)
		id, value := f.seed(t, map[string]any{"count": 1})

		sess, err := f.manager.Load(ctx, value)
		require.NoError(t, err)
		require.NoError(t, f.store.Delete(ctx, id))
		sess.Set("count", 2)

		action, err := f.manager.Commit(ctx, sess)
		require.NoError(t, err)
		assert.Equal(t, session.CookieSet, action.Kind)

		newID, _ := sess.ID()
		assert.NotEqual(t, id, newID)
		again, err := f.manager.Load(ctx, action.Value)
		require.NoError(t, err)
		count, _ := again.GetInt("count")
		assert.Equal(t, 2, count)
	})

	t.Run("regenerate moves data to a new id", func(t *testing.T) {
		f := newManagerFixture(t)
		oldID, value := f.seed(t, map[string]any{"cart": "3 items"})

		sess, err := f.manager.Load(ctx, value)
		require.NoError(t, err)
		sess.Regenerate()
		sess.Set("user", "alice")

		action, err := f.manager.Commit(ctx, sess)
		require.NoError(t, err)
		assert.Equal(t, session.CookieSet, action.Kind)

		newID, _ := sess.ID()
		assert.NotEqual(t, oldID, newID)

		_, err = f.store.Load(ctx, oldID)
		assert.ErrorIs(t, err, session.ErrNotFound, "old id must be unusable")

		again, err := f.manager.Load(ctx, action.Value)
		require.NoError(t, err)
		cart, _ := again.GetString("cart")
		user, _ := again.GetString("user")
		assert.Equal(t, "3 items", cart)
		assert.Equal(t, "alice", user)

		stale, err := f.manager.Load(ctx, value)
		require.NoError(t, err)
		assert.Equal(t, session.StateNotFound, stale.State())
	})

	t.Run("destroy deletes record and clears cookie", func(t *testing.T) {
		f := newManagerFixture(t)
		id, value := f.seed(t, map[string]any{"user": "alice"})

		sess, err := f.manager.Load(ctx, value)
		require.NoError(t, err)
		sess.Destroy()

		action, err := f.manager.Commit(ctx, sess)
		require.NoError(t, err)
		assert.Equal(t, session.CookieClear, action.Kind)

		_, err = f.store.Load(ctx, id)
		assert.ErrorIs(t, err, session.ErrNotFound)
	})

	t.Run("destroy of absent session", func(t *testing.T) {
		f := newManagerFixture(t)
		sess, err := f.manager.Load(ctx, "")
		require.NoError(t, err)
		sess.Set("k", "v")
		sess.Destroy()

		action, err := f.manager.Commit(ctx, sess)
		require.NoError(t, err)
		assert.Equal(t, session.CookieNone, action.Kind)
		assert.Equal(t, 0, f.store.Len())
	})
}

func TestManager_SlidingExpiry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("fresh session is not touched", func(t *testing.T) {
		f := newManagerFixture(t)
		_, value := f.seed(t, nil)
		f.clock.Advance(time.Minute)

		sess, err := f.manager.Load(ctx, value)
		require.NoError(t, err)
		action, err := f.manager.Commit(ctx, sess)
		require.NoError(t, err)
		assert.Equal(t, session.CookieNone, action.Kind)
	})

	t.Run("gain above threshold touches", func(t *testing.T) {
		f := newManagerFixture(t)
		id, value := f.seed(t, nil)
		f.clock.Advance(10 * time.Minute)

		sess, err := f.manager.Load(ctx, value)
		require.NoError(t, err)
		action, err := f.manager.Commit(ctx, sess)
		require.NoError(t, err)
		assert.Equal(t, session.CookieSet, action.Kind)

		rec, err := f.store.Load(ctx, id)
		require.NoError(t, err)
		assert.True(t, f.clock.Now().Add(time.Hour).Equal(rec.ExpiresAt))
	})

	t.Run("sliding disabled", func(t *testing.T) {
		f := newManagerFixture(t, session.WithSliding(false, 0))
		_, value := f.seed(t, nil)
		f.clock.Advance(30 * time.Minute)

		sess, err := f.manager.Load(ctx, value)
		require.NoError(t, err)
		action, err := f.manager.Commit(ctx, sess)
		require.NoError(t, err)
		assert.Equal(t, session.CookieNone, action.Kind)
	})

	t.Run("renew forces touch", func(t *testing.T) {
		f := newManagerFixture(t, session.WithSliding(false, 0))
		id, value := f.seed(t, nil)
		f.clock.Advance(time.Second)

		sess, err := f.manager.Load(ctx, value)
		require.NoError(t, err)
		sess.Renew()
		action, err := f.manager.Commit(ctx, sess)
		require.NoError(t, err)
		assert.Equal(t, session.CookieSet, action.Kind)

		rec, err := f.store.Load(ctx, id)
		require.NoError(t, err)
		assert.True(t, f.clock.Now().Add(time.Hour).Equal(rec.ExpiresAt))
	})

	t.Run("touch of vanished record clears cookie", func(t *testing.T) {
		f := newManagerFixture(t)
		id, value := f.seed(t, nil)
		f.clock.Advance(10 * time.Minute)

		sess, err := f.manager.Load(ctx, value)
		require.NoError(t, err)
		require.NoError(t, f.store.Delete(ctx, id))

		action, err := f.manager.Commit(ctx, sess)
		require.NoError(t, err)
		assert.Equal(t, session.CookieClear, action.Kind)
	})
}

func TestManager_ExpiryNeverMovesBackwards(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newManagerFixture(t)

	sess, err := f.manager.Load(ctx, "")
	require.NoError(t, err)
	far := f.clock.Now().Add(48 * time.Hour)
	sess.SetExpiry(far)
	action, err := f.manager.Commit(ctx, sess)
	require.NoError(t, err)
	assert.True(t, far.Equal(action.ExpiresAt), "explicit expiry wins")

	loaded, err := f.manager.Load(ctx, action.Value)
	require.NoError(t, err)
	loaded.Set("k", "v")
	action, err = f.manager.Commit(ctx, loaded)
	require.NoError(t, err)
	assert.True(t, far.Equal(action.ExpiresAt), "a later write keeps the longer expiry")

	loaded, err = f.manager.Load(ctx, action.Value)
	require.NoError(t, err)
	soon := f.clock.Now().Add(time.Minute)
	loaded.SetExpiry(soon)
	action, err = f.manager.Commit(ctx, loaded)
	require.NoError(t, err)
	assert.True(t, soon.Equal(action.ExpiresAt), "explicit expiry may shorten")
}

func TestManager_FailedCommitIsRetryable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := &flakyStore{Store: session.NewMemoryStore(0)}
	m := newTestManager(t, session.WithStore(store))

	sess, err := m.Load(ctx, "")
	require.NoError(t, err)
	sess.Set("k", "v")

	store.fail = session.BackendError(context.DeadlineExceeded)
	_, err = m.Commit(ctx, sess)
	assert.ErrorIs(t, err, session.ErrTimeout)
	assert.False(t, sess.IsCommitted())

	store.fail = nil
	action, err := m.Commit(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, session.CookieSet, action.Kind)
}

func TestManager_RegenerateToleratesDeleteFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := &flakyStore{Store: session.NewMemoryStore(0)}
	m := newTestManager(t, session.WithStore(store))

	sess, err := m.Load(ctx, "")
	require.NoError(t, err)
	sess.Set("k", "v")
	action, err := m.Commit(ctx, sess)
	require.NoError(t, err)

	loaded, err := m.Load(ctx, action.Value)
	require.NoError(t, err)
	loaded.Regenerate()

	store.failDelete = session.BackendError(errors.New("broken pipe"))
	action, err = m.Commit(ctx, loaded)
	require.NoError(t, err, "the new record is already durable")
	assert.Equal(t, session.CookieSet, action.Kind)
}

// failingStore fails every operation with err.
type failingStore struct {
	err error
}

func (s failingStore) Create(context.Context, []byte, time.Time) (session.ID, error) {
	return session.ID{}, s.err
}

func (s failingStore) Load(context.Context, session.ID) (*session.Record, error) {
	return nil, s.err
}

func (s failingStore) Update(context.Context, session.ID, []byte, time.Time) error { return s.err }

func (s failingStore) Delete(context.Context, session.ID) error { return s.err }

func (s failingStore) Touch(context.Context, session.ID, time.Time) error { return s.err }

// flakyStore fails writes while fail is set and deletes while failDelete is set.
type flakyStore struct {
	session.Store
	fail       error
	failDelete error
}

func (s *flakyStore) Create(ctx context.Context, data []byte, expiresAt time.Time) (session.ID, error) {
	if s.fail != nil {
		return session.ID{}, s.fail
	}
	return s.Store.Create(ctx, data, expiresAt)
}

func (s *flakyStore) Delete(ctx context.Context, id session.ID) error {
	if s.failDelete != nil {
		return s.failDelete
	}
	return s.Store.Delete(ctx, id)
}

// countingStore counts backend calls per operation.
type countingStore struct {
	session.Store
	creates, updates, deletes, touches atomic.Int32
}

func (s *countingStore) Create(ctx context.Context, data []byte, expiresAt time.Time) (session.ID, error) {
	s.creates.Add(1)
	return s.Store.Create(ctx, data, expiresAt)
}

func (s *countingStore) Update(ctx context.Context, id session.ID, data []byte, expiresAt time.Time) error {
	s.updates.Add(1)
	return s.Store.Update(ctx, id, data, expiresAt)
}

func (s *countingStore) Delete(ctx context.Context, id session.ID) error {
	s.deletes.Add(1)
	return s.Store.Delete(ctx, id)
}

func (s *countingStore) Touch(ctx context.Context, id session.ID, expiresAt time.Time) error {
	s.touches.Add(1)
	return s.Store.Touch(ctx, id, expiresAt)
}

func (s *countingStore) writes() int32 {
	return s.creates.Load() + s.updates.Load() + s.deletes.Load() + s.touches.Load()
}

func TestManager_LifecycleIdempotence(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	setup := func(t *testing.T) (*managerFixture, *countingStore) {
		clock := newTestClock()
		mem := session.NewMemoryStore(0, session.WithMemoryClock(clock.Now))
		t.Cleanup(func() { _ = mem.Close() })
		counting := &countingStore{Store: mem}
		f := newManagerFixture(t, session.WithStore(counting), session.WithClock(clock.Now))
		f.clock = clock
		return f, counting
	}

	t.Run("destroy twice deletes once", func(t *testing.T) {
		f, counting := setup(t)
		_, value := f.seed(t, nil)

		sess, err := f.manager.Load(ctx, value)
		require.NoError(t, err)
		sess.Destroy()
		sess.Destroy()

		first, err := f.manager.Commit(ctx, sess)
		require.NoError(t, err)
		second, err := f.manager.Commit(ctx, sess)
		require.NoError(t, err)

		assert.Equal(t, session.CookieClear, first.Kind)
		assert.Equal(t, session.CookieNone, second.Kind)
		assert.Equal(t, int32(1), counting.deletes.Load())
	})

	t.Run("replayed destroy with a dead cookie deletes nothing", func(t *testing.T) {
		f, counting := setup(t)
		_, value := f.seed(t, nil)

		sess, err := f.manager.Load(ctx, value)
		require.NoError(t, err)
		sess.Destroy()
		_, err = f.manager.Commit(ctx, sess)
		require.NoError(t, err)
		require.Equal(t, int32(1), counting.deletes.Load())

		replay, err := f.manager.Load(ctx, value)
		require.NoError(t, err)
		assert.Equal(t, session.StateNotFound, replay.State())
		replay.Destroy()

		action, err := f.manager.Commit(ctx, replay)
		require.NoError(t, err)
		assert.Equal(t, session.CookieClear, action.Kind, "the dead cookie is still cleared")
		assert.Equal(t, int32(1), counting.deletes.Load(), "no delete for a record that is already gone")
	})

	t.Run("second commit writes nothing", func(t *testing.T) {
		f, counting := setup(t)
		_, value := f.seed(t, nil)
		require.Equal(t, int32(1), counting.creates.Load())

		sess, err := f.manager.Load(ctx, value)
		require.NoError(t, err)
		sess.Set("k", "v")

		_, err = f.manager.Commit(ctx, sess)
		require.NoError(t, err)
		_, err = f.manager.Commit(ctx, sess)
		require.NoError(t, err)

		assert.Equal(t, int32(1), counting.updates.Load())
		assert.Equal(t, int32(2), counting.writes())
	})

	t.Run("unchanged fresh session writes nothing", func(t *testing.T) {
		f, counting := setup(t)
		_, value := f.seed(t, nil)
		before := counting.writes()

		sess, err := f.manager.Load(ctx, value)
		require.NoError(t, err)
		_, _ = sess.Get("k")

		action, err := f.manager.Commit(ctx, sess)
		require.NoError(t, err)
		assert.Equal(t, session.CookieNone, action.Kind)
		assert.Equal(t, before, counting.writes())
	})
}
