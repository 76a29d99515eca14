package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/sessionkit/pkg/cookie"
	"github.com/dmitrymomot/sessionkit/pkg/logger"
)

// CookieActionKind tells the transport what to do with the client token.
type CookieActionKind uint8

const (
	// CookieNone leaves the client token untouched.
	CookieNone CookieActionKind = iota
	// CookieSet sends a (possibly refreshed) token.
	CookieSet
	// CookieClear removes the token from the client.
	CookieClear
)

func (k CookieActionKind) String() string {
	switch k {
	case CookieSet:
		return "set"
	case CookieClear:
		return "clear"
	default:
		return "none"
	}
}

// CookieAction is the outcome of a commit, to be applied to the response.
type CookieAction struct {
	Kind      CookieActionKind
	Value     string
	ExpiresAt time.Time
	MaxAge    time.Duration
}

// Manager loads sessions from the store and persists their changes.
type Manager struct {
	store         Store
	transport     Transport
	codec         *Codec
	serializer    Serializer
	config        Config
	cookieManager *cookie.Manager
	cookieOptions []cookie.Option
	logger        *slog.Logger
	now           func() time.Time
}

// New creates a new session manager with the given options.
// It panics when neither a cookie manager nor a custom codec and transport are
// configured, since the manager could not protect session identifiers.
func New(opts ...Option) *Manager {
	m := &Manager{
		config:     DefaultConfig(),
		serializer: MsgpackSerializer{},
		logger:     slog.New(slog.DiscardHandler),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.config.TTL <= 0 {
		m.config.TTL = DefaultTTL
	}

	if m.store == nil {
		m.store = NewMemoryStore(m.config.CleanupInterval)
	}

	if m.codec == nil {
		mode, err := ParseCookieMode(m.config.CookieMode)
		if err != nil {
			panic(err)
		}
		if m.cookieManager == nil && mode != CookiePlain {
			// Fail fast on misconfiguration to prevent insecure runtime behavior
			panic("session: cookie manager is required for signed and private cookies")
		}
		m.codec = NewCodec(m.cookieManager, mode)
	}

	if m.transport == nil {
		if m.cookieManager == nil {
			panic("session: cookie manager is required when using default cookie transport")
		}
		m.transport = NewCookieTransport(m.cookieManager, m.config.CookieName, m.cookieOptions...)
	}

	m.logger = m.logger.With(logger.Component("session"))

	return m
}

// Store returns the store the manager persists to.
func (m *Manager) Store() Store {
	return m.store
}

// Load resolves a raw token into a session handle.
//
// A missing, forged or undecodable token and a record the store no longer has
// all yield an empty handle; the request proceeds as anonymous. Store failures
// other than ErrNotFound are returned and must fail the request.
func (m *Manager) Load(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return m.track(newSession(StateAbsent, false)), nil
	}

	id, err := m.codec.Decode(token)
	if err != nil {
		m.logger.DebugContext(ctx, "rejected session token", logger.Error(err))
		return m.track(newSession(StateAbsent, true)), nil
	}

	rec, err := m.store.Load(ctx, id)
	if errors.Is(err, ErrNotFound) {
		m.logger.DebugContext(ctx, "session not found")
		return m.track(newSession(StateNotFound, true)), nil
	}
	if err != nil {
		return nil, err
	}

	data, err := m.serializer.Unmarshal(rec.Data)
	if err != nil {
		if !errors.Is(err, ErrSerialization) {
			err = errors.Join(ErrSerialization, err)
		}
		return nil, err
	}

	return m.track(loadedSession(rec, data)), nil
}

func (m *Manager) track(s *Session) *Session {
	s.log = m.logger
	return s
}

// Commit persists the changes of s with at most one terminal store action
// and reports what to do with the client token. Calling Commit again on the
// same handle is a no-op. A failed commit leaves the handle uncommitted.
func (m *Manager) Commit(ctx context.Context, s *Session) (CookieAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.committed {
		return CookieAction{}, nil
	}

	now := m.now()

	switch {
	case s.destroyed:
		return m.commitDestroy(ctx, s)

	case !s.hasID:
		if !s.modified {
			s.committed = true
			if s.hadCookie {
				return CookieAction{Kind: CookieClear}, nil
			}
			return CookieAction{}, nil
		}
		return m.commitCreate(ctx, s, now)

	case s.regenerate:
		return m.commitRegenerate(ctx, s, now)

	case s.modified:
		return m.commitUpdate(ctx, s, now)

	case s.renewed || m.shouldTouch(s, now):
		return m.commitTouch(ctx, s, now)

	default:
		s.committed = true
		return CookieAction{}, nil
	}
}

func (m *Manager) commitDestroy(ctx context.Context, s *Session) (CookieAction, error) {
	if s.hasID {
		if err := m.store.Delete(ctx, s.id); err != nil {
			return CookieAction{}, err
		}
	}
	s.committed = true
	if s.hasID || s.hadCookie {
		return CookieAction{Kind: CookieClear}, nil
	}
	return CookieAction{}, nil
}

func (m *Manager) commitCreate(ctx context.Context, s *Session, now time.Time) (CookieAction, error) {
	payload, err := m.serializer.Marshal(s.data)
	if err != nil {
		return CookieAction{}, err
	}
	expiresAt := m.expiry(s, now)

	id, err := m.store.Create(ctx, payload, expiresAt)
	if err != nil {
		return CookieAction{}, err
	}
	return m.persisted(s, id, expiresAt, now)
}

func (m *Manager) commitRegenerate(ctx context.Context, s *Session, now time.Time) (CookieAction, error) {
	oldID := s.id
	payload, err := m.serializer.Marshal(s.data)
	if err != nil {
		return CookieAction{}, err
	}
	expiresAt := m.expiry(s, now)

	id, err := m.store.Create(ctx, payload, expiresAt)
	if err != nil {
		return CookieAction{}, err
	}

	// The new record is durable; a failure here only leaves the old record to expire.
	if err := m.store.Delete(ctx, oldID); err != nil {
		m.logger.WarnContext(ctx, "failed to delete session after regeneration", logger.Operation("regenerate"), logger.Error(err))
	}
	return m.persisted(s, id, expiresAt, now)
}

func (m *Manager) commitUpdate(ctx context.Context, s *Session, now time.Time) (CookieAction, error) {
	payload, err := m.serializer.Marshal(s.data)
	if err != nil {
		return CookieAction{}, err
	}
	expiresAt := m.expiry(s, now)

	err = m.store.Update(ctx, s.id, payload, expiresAt)
	if errors.Is(err, ErrNotFound) {
		// The record expired or was deleted while the request ran; keep the
		// user's changes under a fresh ID.
		m.logger.DebugContext(ctx, "session vanished during request, recreating")
		id, cerr := m.store.Create(ctx, payload, expiresAt)
		if cerr != nil {
			return CookieAction{}, cerr
		}
		return m.persisted(s, id, expiresAt, now)
	}
	if err != nil {
		return CookieAction{}, err
	}
	return m.persisted(s, s.id, expiresAt, now)
}

func (m *Manager) commitTouch(ctx context.Context, s *Session, now time.Time) (CookieAction, error) {
	expiresAt := m.expiry(s, now)

	err := m.store.Touch(ctx, s.id, expiresAt)
	if errors.Is(err, ErrNotFound) {
		s.committed = true
		return CookieAction{Kind: CookieClear}, nil
	}
	if err != nil {
		return CookieAction{}, err
	}
	return m.persisted(s, s.id, expiresAt, now)
}

// persisted records a successful write on the handle and builds the cookie.
func (m *Manager) persisted(s *Session, id ID, expiresAt, now time.Time) (CookieAction, error) {
	value, err := m.codec.Encode(id)
	if err != nil {
		return CookieAction{}, err
	}

	s.id = id
	s.hasID = true
	s.expiresAt = expiresAt
	s.committed = true

	return CookieAction{
		Kind:      CookieSet,
		Value:     value,
		ExpiresAt: expiresAt,
		MaxAge:    expiresAt.Sub(now),
	}, nil
}

// expiry never moves a session's expiry backwards unless the application
// pinned it explicitly.
func (m *Manager) expiry(s *Session, now time.Time) time.Time {
	if s.explicitExpiry {
		return s.expiresAt
	}
	next := now.Add(m.config.TTL)
	if s.expiresAt.After(next) {
		return s.expiresAt
	}
	return next
}

func (m *Manager) shouldTouch(s *Session, now time.Time) bool {
	if !m.config.Sliding || s.explicitExpiry {
		return false
	}
	return now.Add(m.config.TTL).Sub(s.expiresAt) >= m.config.TouchThreshold
}
