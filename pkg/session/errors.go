package session

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates the record is absent or expired
	ErrNotFound = errors.New("session.not_found")

	// ErrUnavailable indicates the backing store could not be reached
	ErrUnavailable = errors.New("session.store_unavailable")

	// ErrTimeout indicates the backing store did not answer in time
	ErrTimeout = errors.New("session.store_timeout")

	// ErrSerialization indicates the payload could not be encoded or decoded
	ErrSerialization = errors.New("session.serialization_failed")

	// ErrCollision indicates every attempt to allocate a fresh ID hit an existing record
	ErrCollision = errors.New("session.id_collision")

	// ErrIDGeneration indicates the random source failed
	ErrIDGeneration = errors.New("session.id_generation_failed")

	// ErrInvalidID indicates a malformed identifier
	ErrInvalidID = errors.New("session.invalid_id")

	// ErrInvalidCookie indicates the cookie value failed verification or decryption
	ErrInvalidCookie = errors.New("session.invalid_cookie")

	// ErrStoreClosed indicates the store was used after Close
	ErrStoreClosed = errors.New("session.store_closed")

	// ErrNoToken indicates the request carries no session token
	ErrNoToken = errors.New("session.no_token")

	// ErrCommitFailed indicates the response was replaced because the session could not be saved
	ErrCommitFailed = errors.New("session.commit_failed")
)

// BackendError classifies a failure reported by a store client.
// Deadline errors become ErrTimeout, caller cancellation is returned as is and
// everything else becomes ErrUnavailable. The original error stays in the chain.
func BackendError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return errors.Join(ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return errors.Join(ErrUnavailable, err)
	}
}

// IsRecoverable reports whether err means "no usable session" rather than a
// failure: the manager answers such errors with a fresh session.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidCookie) || errors.Is(err, ErrInvalidID)
}
