package session

import (
	"net/http"
	"time"
)

// Transport carries the encoded session token on requests and responses.
// The token is already sealed by the Codec when it reaches a Transport.
type Transport interface {
	// GetToken returns ErrNoToken when the request has no token.
	GetToken(r *http.Request) (string, error)
	// SetToken writes token so the client keeps it for ttl.
	SetToken(w http.ResponseWriter, token string, ttl time.Duration) error
	ClearToken(w http.ResponseWriter) error
}
