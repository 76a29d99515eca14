package cookie

import "errors"

// Construction errors.
var (
	ErrNoSecret       = errors.New("cookie.no_secret")
	ErrSecretTooShort = errors.New("cookie.secret_too_short")
	ErrKeyDerivation  = errors.New("cookie.key_derivation_failed")
)

// Read and write errors. Everything a tampered or foreign cookie can cause
// surfaces as ErrInvalidFormat, ErrInvalidSignature or ErrDecryptionFailed.
var (
	ErrCookieNotFound   = errors.New("cookie.not_found")
	ErrInvalidFormat    = errors.New("cookie.invalid_format")
	ErrInvalidSignature = errors.New("cookie.invalid_signature")
	ErrDecryptionFailed = errors.New("cookie.decryption_failed")
	ErrEncryptionFailed = errors.New("cookie.encryption_failed")
)
