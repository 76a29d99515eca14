// Package cookie provides HTTP cookie helpers with signing and authenticated
// encryption, built for carrying opaque identifiers such as session keys.
//
// # Overview
//
// A Manager is created from one or more secrets (newest first, at least 32
// bytes each) and a set of default cookie Options. For every secret two
// independent subkeys are derived with HKDF-SHA256: one for HMAC-SHA256
// signatures and one for AES-256-GCM. Keys are derived once, at construction,
// and are immutable afterwards.
//
// Values are always produced with the newest secret. When reading, every secret
// is accepted, which lets you rotate keys without invalidating cookies already
// handed out. The order in which keys are tried is configurable with
// WithKeyOrder (NewestFirst by default).
//
//   - Sign / Verify: integrity only, "b64(value)|b64(tag)"
//   - Encrypt / Decrypt: integrity and confidentiality, "b64(nonce||ciphertext)"
//   - Set / Get / Delete: raw cookies using the manager defaults
//   - SetSigned / GetSigned, SetEncrypted / GetEncrypted: both at once
//
// All encodings use strict unpadded URL-safe base64, so any modification of a
// produced value, down to a single bit, is rejected.
//
// # Usage
//
//	man, err := cookie.New([]string{newSecret, oldSecret}, cookie.WithSecure(true))
//	if err != nil {
//		return err
//	}
//
//	_ = man.SetEncrypted(w, "id", sessionKey, cookie.WithMaxAge(3600))
//	key, err := man.GetEncrypted(r, "id")
//
// # Configuration
//
// Config can be populated from environment variables (COOKIE_SECRETS,
// COOKIE_KEY_ORDER, COOKIE_SECURE, ...) and turned into a Manager with
// NewFromConfig.
//
// # Errors
//
// ErrNoSecret and ErrSecretTooShort are returned by New. Reads fail with
// ErrCookieNotFound, ErrInvalidFormat, ErrInvalidSignature or
// ErrDecryptionFailed; none of them reveal which key, if any, came close.
package cookie
