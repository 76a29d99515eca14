package cookie

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"golang.org/x/crypto/hkdf"
)

const (
	minSecretLength = 32
	subkeySize      = 32

	signInfo    = "sessionkit-cookie-sign-v1"
	encryptInfo = "sessionkit-cookie-encrypt-v1"

	signatureSeparator = "|"
)

// encoding rejects non-canonical trailing bits so a flipped bit can never decode
// to the same bytes.
var encoding = base64.RawURLEncoding.Strict()

// keyset holds the material derived from one configured secret.
type keyset struct {
	sign []byte
	aead cipher.AEAD
}

// Manager signs, encrypts and writes cookies.
// Keys are derived once in New and never change afterwards, so a Manager is
// safe for concurrent use.
type Manager struct {
	keys     []keyset
	order    KeyOrder
	defaults Options
}

// New creates a Manager from an ordered list of secrets, newest first.
// The first secret is used to produce values; every secret is accepted when
// reading them back, which allows rotating keys without logging users out.
func New(secrets []string, opts ...Option) (*Manager, error) {
	if len(secrets) == 0 {
		return nil, ErrNoSecret
	}

	secrets = slices.DeleteFunc(slices.Clone(secrets), func(s string) bool { return s == "" })
	if len(secrets) == 0 {
		return nil, ErrNoSecret
	}

	keys := make([]keyset, 0, len(secrets))
	for i, s := range secrets {
		if len(s) < minSecretLength {
			return nil, fmt.Errorf("%w: secret %d has %d chars, need at least %d", ErrSecretTooShort, i, len(s), minSecretLength)
		}
		ks, err := deriveKeyset([]byte(s))
		if err != nil {
			return nil, errors.Join(ErrKeyDerivation, err)
		}
		keys = append(keys, ks)
	}

	defaults := Options{
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	defaults = applyOptions(defaults, opts)

	return &Manager{
		keys:     keys,
		order:    defaults.keyOrder,
		defaults: defaults,
	}, nil
}

func deriveKeyset(secret []byte) (keyset, error) {
	signKey := make([]byte, subkeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(signInfo)), signKey); err != nil {
		return keyset{}, err
	}

	encKey := make([]byte, subkeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(encryptInfo)), encKey); err != nil {
		return keyset{}, err
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return keyset{}, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return keyset{}, err
	}

	return keyset{sign: signKey, aead: aead}, nil
}

// Set writes a plain cookie.
func (m *Manager) Set(w http.ResponseWriter, name, value string, opts ...Option) error {
	options := applyOptions(m.defaults, opts)

	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     options.Path,
		Domain:   options.Domain,
		MaxAge:   options.MaxAge,
		Secure:   options.Secure,
		HttpOnly: options.HttpOnly,
		SameSite: options.SameSite,
	}
	if options.MaxAge > 0 {
		cookie.Expires = time.Now().Add(time.Duration(options.MaxAge) * time.Second).UTC()
	}

	http.SetCookie(w, cookie)
	return nil
}

// Get reads a plain cookie value.
func (m *Manager) Get(r *http.Request, name string) (string, error) {
	cookie, err := r.Cookie(name)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return "", ErrCookieNotFound
		}
		return "", err
	}
	return cookie.Value, nil
}

// Delete expires the cookie on the client.
// Path and domain must match the ones the cookie was written with.
func (m *Manager) Delete(w http.ResponseWriter, name string, opts ...Option) {
	options := applyOptions(m.defaults, opts)

	cookie := &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     options.Path,
		Domain:   options.Domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: options.HttpOnly,
		SameSite: options.SameSite,
		Secure:   options.Secure,
	}
	http.SetCookie(w, cookie)
}

func (m *Manager) SetSigned(w http.ResponseWriter, name, value string, opts ...Option) error {
	return m.Set(w, name, m.Sign([]byte(value)), opts...)
}

func (m *Manager) GetSigned(r *http.Request, name string) (string, error) {
	signed, err := m.Get(r, name)
	if err != nil {
		return "", err
	}

	value, err := m.Verify(signed)
	if err != nil {
		return "", err
	}
	return string(value), nil
}

func (m *Manager) SetEncrypted(w http.ResponseWriter, name, value string, opts ...Option) error {
	encrypted, err := m.Encrypt([]byte(value))
	if err != nil {
		return err
	}
	return m.Set(w, name, encrypted, opts...)
}

func (m *Manager) GetEncrypted(r *http.Request, name string) (string, error) {
	encrypted, err := m.Get(r, name)
	if err != nil {
		return "", err
	}

	value, err := m.Decrypt(encrypted)
	if err != nil {
		return "", err
	}
	return string(value), nil
}

// Sign returns value and its HMAC-SHA256 tag, both base64 encoded, using the newest key.
func (m *Manager) Sign(value []byte) string {
	return encoding.EncodeToString(value) + signatureSeparator + encoding.EncodeToString(mac(m.keys[0].sign, value))
}

// Verify checks a value produced by Sign against every configured key.
func (m *Manager) Verify(signed string) ([]byte, error) {
	encodedValue, encodedSig, ok := strings.Cut(signed, signatureSeparator)
	if !ok {
		return nil, ErrInvalidFormat
	}

	value, err := encoding.DecodeString(encodedValue)
	if err != nil {
		return nil, ErrInvalidFormat
	}
	signature, err := encoding.DecodeString(encodedSig)
	if err != nil || len(signature) != sha256.Size {
		return nil, ErrInvalidFormat
	}

	// Every key is tried even after a match so the work does not depend on
	// which key signed the value.
	valid := false
	for _, i := range m.trialOrder() {
		if hmac.Equal(signature, mac(m.keys[i].sign, value)) {
			valid = true
		}
	}
	if !valid {
		return nil, ErrInvalidSignature
	}

	return value, nil
}

// Encrypt seals value with AES-256-GCM under the newest key.
// The random nonce is prepended to the ciphertext.
func (m *Manager) Encrypt(value []byte) (string, error) {
	aead := m.keys[0].aead

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(value)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", errors.Join(ErrEncryptionFailed, err)
	}

	return encoding.EncodeToString(aead.Seal(nonce, nonce, value, nil)), nil
}

// Decrypt opens a value produced by Encrypt, trying each configured key.
func (m *Manager) Decrypt(encrypted string) ([]byte, error) {
	data, err := encoding.DecodeString(encrypted)
	if err != nil {
		return nil, ErrInvalidFormat
	}

	for _, i := range m.trialOrder() {
		aead := m.keys[i].aead
		if len(data) < aead.NonceSize()+aead.Overhead() {
			return nil, ErrInvalidFormat
		}

		nonce, ciphertext := data[:aead.NonceSize()], data[aead.NonceSize():]
		if plaintext, err := aead.Open(nil, nonce, ciphertext, nil); err == nil {
			return plaintext, nil
		}
	}

	return nil, ErrDecryptionFailed
}

// KeyCount reports how many keys the manager accepts.
func (m *Manager) KeyCount() int {
	return len(m.keys)
}

func (m *Manager) trialOrder() []int {
	idx := make([]int, len(m.keys))
	for i := range idx {
		if m.order == OldestFirst {
			idx[i] = len(m.keys) - 1 - i
		} else {
			idx[i] = i
		}
	}
	return idx
}

func mac(key, value []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(value)
	return h.Sum(nil)
}
