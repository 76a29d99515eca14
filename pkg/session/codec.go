package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrymomot/sessionkit/pkg/cookie"
)

// CookieMode selects how the session ID is protected inside the cookie.
type CookieMode uint8

const (
	// CookiePrivate encrypts and authenticates the ID. The client can neither read nor forge it.
	CookiePrivate CookieMode = iota
	// CookieSigned authenticates the ID. The client can read it but not forge it.
	CookieSigned
	// CookiePlain stores the bare ID. Only an unguessable ID protects the session.
	CookiePlain
)

func (m CookieMode) String() string {
	switch m {
	case CookiePrivate:
		return "private"
	case CookieSigned:
		return "signed"
	case CookiePlain:
		return "plain"
	default:
		return "unknown"
	}
}

// ParseCookieMode maps a textual mode to its constant.
func ParseCookieMode(s string) (CookieMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "private", "encrypted":
		return CookiePrivate, nil
	case "signed":
		return CookieSigned, nil
	case "plain":
		return CookiePlain, nil
	default:
		return 0, fmt.Errorf("session: unknown cookie mode %q", s)
	}
}

// Codec turns session IDs into cookie values and back.
type Codec struct {
	keys *cookie.Manager
	mode CookieMode
}

// NewCodec returns a codec using keys for signing or encryption.
// keys may be nil only in CookiePlain mode.
func NewCodec(keys *cookie.Manager, mode CookieMode) *Codec {
	if keys == nil && mode != CookiePlain {
		panic("session: cookie manager is required for signed and private cookies")
	}
	return &Codec{keys: keys, mode: mode}
}

// Mode returns the protection mode.
func (c *Codec) Mode() CookieMode {
	return c.mode
}

// Encode produces the cookie value for id.
func (c *Codec) Encode(id ID) (string, error) {
	switch c.mode {
	case CookieSigned:
		return c.keys.Sign(id[:]), nil
	case CookiePlain:
		return id.Encode(), nil
	default:
		value, err := c.keys.Encrypt(id[:])
		if err != nil {
			return "", err
		}
		return value, nil
	}
}

// Decode authenticates a cookie value and extracts the ID.
// Every failure is reported as ErrInvalidCookie.
func (c *Codec) Decode(value string) (ID, error) {
	if value == "" {
		return ID{}, ErrInvalidCookie
	}

	var (
		raw []byte
		err error
	)
	switch c.mode {
	case CookieSigned:
		raw, err = c.keys.Verify(value)
	case CookiePlain:
		id, perr := ParseID(value)
		if perr != nil {
			return ID{}, errors.Join(ErrInvalidCookie, perr)
		}
		return id, nil
	default:
		raw, err = c.keys.Decrypt(value)
	}
	if err != nil {
		return ID{}, errors.Join(ErrInvalidCookie, err)
	}

	var id ID
	if len(raw) != IDSize {
		return ID{}, errors.Join(ErrInvalidCookie, ErrInvalidID)
	}
	copy(id[:], raw)
	if id.IsZero() {
		return ID{}, errors.Join(ErrInvalidCookie, ErrInvalidID)
	}
	return id, nil
}
