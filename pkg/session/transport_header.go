package session

import (
	"net/http"
	"strings"
	"time"
)

// HeaderTransport implements Transport using HTTP headers.
// Useful for API clients that cannot keep cookies.
type HeaderTransport struct {
	headerName string
	prefix     string
	now        func() time.Time
}

// HeaderOption is a functional option for HeaderTransport
type HeaderOption func(*HeaderTransport)

// WithHeaderPrefix sets a custom prefix for the header value
func WithHeaderPrefix(prefix string) HeaderOption {
	return func(t *HeaderTransport) {
		t.prefix = prefix
	}
}

// NewHeaderTransport creates a new header-based transport
func NewHeaderTransport(headerName string, opts ...HeaderOption) *HeaderTransport {
	t := &HeaderTransport{
		headerName: headerName,
		prefix:     "Bearer ",
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// GetToken extracts the session token from the header
func (t *HeaderTransport) GetToken(r *http.Request) (string, error) {
	value := r.Header.Get(t.headerName)
	if t.prefix != "" {
		value = strings.TrimPrefix(value, t.prefix)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", ErrNoToken
	}
	return value, nil
}

// SetToken sends the session token and its expiry in response headers
func (t *HeaderTransport) SetToken(w http.ResponseWriter, token string, ttl time.Duration) error {
	w.Header().Set(t.headerName, t.prefix+token)

	if ttl > 0 {
		w.Header().Set(t.headerName+"-Expires", t.now().Add(ttl).UTC().Format(time.RFC3339))
	}

	return nil
}

// ClearToken tells the client to forget its token by sending empty headers
func (t *HeaderTransport) ClearToken(w http.ResponseWriter) error {
	w.Header().Set(t.headerName, "")
	w.Header().Set(t.headerName+"-Expires", time.Unix(0, 0).UTC().Format(time.RFC3339))
	return nil
}
