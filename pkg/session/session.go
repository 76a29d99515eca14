package session

import (
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/dmitrymomot/sessionkit/pkg/logger"
)

// State describes where a session handle stands in its lifecycle.
type State uint8

const (
	// StateAbsent means the request carried no usable session and nothing was written yet.
	StateAbsent State = iota
	// StateNotFound means the request referenced a session the store no longer has.
	StateNotFound
	// StateNew means a handle without a stored record received its first write.
	StateNew
	// StateLoaded means the handle mirrors a stored record.
	StateLoaded
	// StateDirty means a loaded handle was modified.
	StateDirty
	// StateDestroyed means the session was destroyed and will be deleted on commit.
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateNotFound:
		return "not_found"
	case StateNew:
		return "new"
	case StateLoaded:
		return "loaded"
	case StateDirty:
		return "dirty"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Session is a per-request handle on session data.
// It is safe for concurrent use by goroutines serving the same request.
// Changes are persisted by Manager.Commit; after that the handle is frozen.
type Session struct {
	mu sync.RWMutex

	id        ID
	hasID     bool
	origin    State
	hadCookie bool

	data      map[string]any
	expiresAt time.Time

	modified       bool
	renewed        bool
	regenerate     bool
	destroyed      bool
	explicitExpiry bool
	committed      bool
	dropped        bool

	log *slog.Logger
}

func newSession(origin State, hadCookie bool) *Session {
	return &Session{
		origin:    origin,
		hadCookie: hadCookie,
		data:      make(map[string]any),
	}
}

func loadedSession(rec *Record, data map[string]any) *Session {
	return &Session{
		id:        rec.ID,
		hasID:     true,
		origin:    StateLoaded,
		hadCookie: true,
		data:      data,
		expiresAt: rec.ExpiresAt,
	}
}

// ID returns the session identifier and whether one has been assigned.
// New sessions get an ID when first committed.
func (s *Session) ID() (ID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id, s.hasID
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state()
}

func (s *Session) state() State {
	switch {
	case s.destroyed:
		return StateDestroyed
	case s.origin == StateLoaded && s.modified:
		return StateDirty
	case s.origin != StateLoaded && s.modified:
		return StateNew
	default:
		return s.origin
	}
}

// ExpiresAt returns the expiry known to the handle. Zero for sessions never stored.
func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// IsModified reports whether data changed since load.
func (s *Session) IsModified() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modified
}

// IsDestroyed reports whether Destroy was called.
func (s *Session) IsDestroyed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.destroyed
}

// IsCommitted reports whether the handle was already persisted.
func (s *Session) IsCommitted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.committed
}

// Dropped reports whether a change arrived after commit and was discarded.
func (s *Session) Dropped() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dropped
}

// Get retrieves a value from session data
func (s *Session) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.data[key]
	return val, ok
}

// GetString retrieves a string value from session data
func (s *Session) GetString(key string) (string, bool) {
	val, ok := s.Get(key)
	if !ok {
		return "", false
	}
	str, ok := val.(string)
	return str, ok
}

// GetInt retrieves an int value from session data.
// Numeric values of any width are accepted since serializers differ in how
// they decode numbers.
func (s *Session) GetInt(key string) (int, bool) {
	val, ok := s.Get(key)
	if !ok {
		return 0, false
	}
	switch v := val.(type) {
	case int:
		return v, true
	case int8:
		return int(v), true
	case int16:
		return int(v), true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case uint8:
		return int(v), true
	case uint16:
		return int(v), true
	case uint32:
		return int(v), true
	case uint64:
		return int(v), true
	case float32:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// GetBool retrieves a bool value from session data
func (s *Session) GetBool(key string) (bool, bool) {
	val, ok := s.Get(key)
	if !ok {
		return false, false
	}
	b, ok := val.(bool)
	return b, ok
}

// Keys returns the stored keys in sorted order.
func (s *Session) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.data))
}

// Values returns a copy of the session data.
func (s *Session) Values() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.data)
}

// Set stores a value in session data
func (s *Session) Set(key string, value any) {
	s.mutate("set", func() {
		s.data[key] = value
	})
}

// Delete removes a value from session data
func (s *Session) Delete(key string) {
	s.mutate("delete", func() {
		delete(s.data, key)
	})
}

// Clear removes all data from the session
func (s *Session) Clear() {
	s.mutate("clear", func() {
		s.data = make(map[string]any)
	})
}

// SetExpiry pins the session expiry to t, overriding the configured TTL.
// This is the only way to move an expiry backwards.
func (s *Session) SetExpiry(t time.Time) {
	s.mutate("set_expiry", func() {
		s.expiresAt = t
		s.explicitExpiry = true
	})
}

// Renew asks for the expiry to be extended on commit even when no data changed.
func (s *Session) Renew() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frozen("renew") {
		return
	}
	s.renewed = true
}

// Regenerate moves the data to a fresh ID on commit and deletes the old record.
// Call it whenever the privilege level changes, e.g. after login.
func (s *Session) Regenerate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frozen("regenerate") {
		return
	}
	s.regenerate = true
	s.modified = true
}

// Destroy discards all data and marks the session for deletion.
// Calling it more than once has no further effect.
func (s *Session) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frozen("destroy") {
		return
	}
	s.destroyed = true
	s.data = make(map[string]any)
	s.modified = false
	s.renewed = false
	s.regenerate = false
}

// mutate applies fn unless the handle is frozen.
func (s *Session) mutate(op string, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frozen(op) {
		return
	}
	fn()
	s.modified = true
}

// frozen reports whether op must be ignored. Changes after commit are
// recorded and logged, since they can no longer reach the store.
// Callers hold s.mu.
func (s *Session) frozen(op string) bool {
	if s.committed {
		s.dropped = true
		if s.log != nil {
			s.log.Warn("session changed after commit, change dropped", logger.Operation(op))
		}
		return true
	}
	return s.destroyed
}
