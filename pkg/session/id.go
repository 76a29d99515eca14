package session

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
)

const (
	// IDSize is the number of random bytes in a session identifier.
	IDSize = 16
	// EncodedIDLen is the length of an ID in its text form.
	EncodedIDLen = 22

	redactedID = "session.ID(..)"
)

var idEncoding = base64.RawURLEncoding.Strict()

// ID is a 128-bit random session identifier. The zero value is not a valid ID.
// IDs are comparable with == and can be used as map keys.
//
// String, GoString and LogValue are redacted so an ID never ends up in logs by
// accident. Use Encode to obtain the text form.
type ID [IDSize]byte

// IDGenerator produces fresh identifiers. Stores use it in Create.
type IDGenerator func() (ID, error)

// NewID returns a random non-zero ID drawn from crypto/rand.
func NewID() (ID, error) {
	return ReadID(rand.Reader)
}

// ReadID reads an ID from r, drawing again if the result is all zeros.
func ReadID(r io.Reader) (ID, error) {
	var id ID
	for {
		if _, err := io.ReadFull(r, id[:]); err != nil {
			return ID{}, errors.Join(ErrIDGeneration, err)
		}
		if !id.IsZero() {
			return id, nil
		}
	}
}

// ParseID decodes the text form produced by Encode.
func ParseID(s string) (ID, error) {
	var id ID
	if len(s) != EncodedIDLen {
		return id, ErrInvalidID
	}
	n, err := idEncoding.Decode(id[:], []byte(s))
	if err != nil || n != IDSize {
		return ID{}, ErrInvalidID
	}
	if id.IsZero() {
		return ID{}, ErrInvalidID
	}
	return id, nil
}

// Encode returns the unpadded URL-safe base64 form of the ID.
func (id ID) Encode() string {
	return idEncoding.EncodeToString(id[:])
}

// IsZero reports whether id is the invalid all-zero value.
func (id ID) IsZero() bool {
	return id == ID{}
}

// Compare orders IDs byte-wise. It returns -1, 0 or +1.
func (id ID) Compare(other ID) int {
	return bytes.Compare(id[:], other[:])
}

func (id ID) String() string {
	return redactedID
}

func (id ID) GoString() string {
	return redactedID
}

func (id ID) LogValue() slog.Value {
	return slog.StringValue(redactedID)
}

// shard maps the ID onto one of n buckets. IDs are uniformly random, so the
// leading bytes are enough.
func (id ID) shard(n int) int {
	return int(binary.LittleEndian.Uint64(id[:8]) % uint64(n))
}
