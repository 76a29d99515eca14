package session

import (
	"bytes"
	"context"
	"time"
)

// MaxCreateAttempts bounds how many fresh IDs Create draws before giving up with ErrCollision.
const MaxCreateAttempts = 8

// Record is a persisted session: an opaque payload and its absolute expiry.
type Record struct {
	ID        ID
	Data      []byte
	ExpiresAt time.Time
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	return &Record{ID: r.ID, Data: bytes.Clone(r.Data), ExpiresAt: r.ExpiresAt}
}

// Store defines the interface for session persistence.
// Implementations must be safe for concurrent use and treat Data as opaque.
type Store interface {
	// Create stores data under a freshly allocated ID and returns it.
	// Fails with ErrCollision when MaxCreateAttempts IDs were all taken.
	Create(ctx context.Context, data []byte, expiresAt time.Time) (ID, error)

	// Load returns the record, or ErrNotFound when it is absent or expired.
	Load(ctx context.Context, id ID) (*Record, error)

	// Update replaces payload and expiry. ErrNotFound when the record is gone.
	Update(ctx context.Context, id ID, data []byte, expiresAt time.Time) error

	// Delete removes the record. Deleting a missing record is not an error.
	Delete(ctx context.Context, id ID) error

	// Touch rewrites only the expiry. ErrNotFound when the record is gone.
	Touch(ctx context.Context, id ID, expiresAt time.Time) error
}

// ExpiredDeleter is implemented by stores that can reap expired records in bulk.
type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context) (int, error)
}

// find walks a chain of decorators exposing Unwrap() Store and returns the
// first store implementing T.
func find[T any](s Store) (T, bool) {
	for s != nil {
		if v, ok := s.(T); ok {
			return v, true
		}
		u, ok := s.(interface{ Unwrap() Store })
		if !ok {
			break
		}
		s = u.Unwrap()
	}
	var zero T
	return zero, false
}
