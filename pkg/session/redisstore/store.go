package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/sessionkit/pkg/session"
)

// DefaultKeyPrefix namespaces session keys.
const DefaultKeyPrefix = "session:"

// Store implements session.Store on Redis. Each record is one string key
// holding the payload, with the session expiry as the key's TTL.
type Store struct {
	client     redis.UniversalClient
	prefix     string
	defaultTTL time.Duration
	newID      session.IDGenerator
	now        func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithKeyPrefix overrides DefaultKeyPrefix.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithDefaultTTL sets the expiry applied to keys found without a TTL, e.g.
// written by another tool. Defaults to session.DefaultTTL.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.defaultTTL = ttl
		}
	}
}

// WithIDGenerator overrides the ID source used by Create.
func WithIDGenerator(gen session.IDGenerator) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithClock overrides the time source used to turn expiries into TTLs.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New returns a store backed by client. The client is owned by the caller.
func New(client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{
		client:     client,
		prefix:     DefaultKeyPrefix,
		defaultTTL: session.DefaultTTL,
		newID:      session.NewID,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(id session.ID) string {
	return s.prefix + id.Encode()
}

func (s *Store) due(expiresAt time.Time) bool {
	return !expiresAt.After(s.now())
}

// set writes data with an absolute millisecond expiry. mode is NX or XX;
// a failed condition is reported as redis.Nil.
func (s *Store) set(ctx context.Context, key string, data []byte, expiresAt time.Time, mode string) error {
	return s.client.Do(ctx, "set", key, data, "pxat", expiresAt.UnixMilli(), mode).Err()
}

// Create stores data under a fresh ID with SET NX PXAT, retrying on collisions.
// A record that is already due gets an ID but is never written.
func (s *Store) Create(ctx context.Context, data []byte, expiresAt time.Time) (session.ID, error) {
	for range session.MaxCreateAttempts {
		id, err := s.newID()
		if err != nil {
			return session.ID{}, err
		}
		if s.due(expiresAt) {
			return id, nil
		}

		err = s.set(ctx, s.key(id), data, expiresAt, "nx")
		switch {
		case err == nil:
			return id, nil
		case errors.Is(err, redis.Nil):
			continue
		default:
			return session.ID{}, session.BackendError(err)
		}
	}
	return session.ID{}, session.ErrCollision
}

// Load reads the payload and its remaining TTL in one round trip.
func (s *Store) Load(ctx context.Context, id session.ID) (*session.Record, error) {
	key := s.key(id)

	var (
		get  *redis.StringCmd
		pttl *redis.DurationCmd
	)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		get = pipe.Get(ctx, key)
		pttl = pipe.PTTL(ctx, key)
		return nil
	})
	if errors.Is(err, redis.Nil) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, session.BackendError(err)
	}

	data, err := get.Bytes()
	if err != nil {
		return nil, session.BackendError(err)
	}

	now := s.now()
	remaining := pttl.Val()
	switch {
	case remaining == -2:
		// Expired between GET and PTTL.
		return nil, session.ErrNotFound
	case remaining < 0:
		// No TTL on the key: it was not written by this store. Bound it.
		if err := s.client.PExpire(ctx, key, s.defaultTTL).Err(); err != nil {
			return nil, session.BackendError(err)
		}
		remaining = s.defaultTTL
	}

	return &session.Record{ID: id, Data: data, ExpiresAt: now.Add(remaining)}, nil
}

// Update replaces payload and expiry of an existing key with SET XX PXAT.
// Moving the expiry into the past removes the key.
func (s *Store) Update(ctx context.Context, id session.ID, data []byte, expiresAt time.Time) error {
	if s.due(expiresAt) {
		n, err := s.client.Del(ctx, s.key(id)).Result()
		if err != nil {
			return session.BackendError(err)
		}
		if n == 0 {
			return session.ErrNotFound
		}
		return nil
	}

	err := s.set(ctx, s.key(id), data, expiresAt, "xx")
	if errors.Is(err, redis.Nil) {
		return session.ErrNotFound
	}
	return session.BackendError(err)
}

// Delete removes the key. Missing keys are not an error.
func (s *Store) Delete(ctx context.Context, id session.ID) error {
	return session.BackendError(s.client.Del(ctx, s.key(id)).Err())
}

// Touch moves the key's expiry to expiresAt. Redis drops the key at once
// when expiresAt has already passed.
func (s *Store) Touch(ctx context.Context, id session.ID, expiresAt time.Time) error {
	ok, err := s.client.PExpireAt(ctx, s.key(id), expiresAt).Result()
	if err != nil {
		return session.BackendError(err)
	}
	if !ok {
		return session.ErrNotFound
	}
	return nil
}
