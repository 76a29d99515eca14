package session

import (
	"net/http"
	"time"

	"github.com/dmitrymomot/sessionkit/pkg/cookie"
)

// CookieTransport implements Transport using cookies.
// Session cookies are HttpOnly, Secure and SameSite=Strict unless opts say otherwise.
type CookieTransport struct {
	cookieMgr  *cookie.Manager
	cookieName string
	options    []cookie.Option
}

// NewCookieTransport creates a new cookie-based transport
func NewCookieTransport(cookieMgr *cookie.Manager, cookieName string, opts ...cookie.Option) *CookieTransport {
	if cookieMgr == nil {
		panic("session: cookie manager is required for the cookie transport")
	}
	defaults := []cookie.Option{
		cookie.WithHTTPOnly(true),
		cookie.WithSecure(true),
		cookie.WithSameSite(http.SameSiteStrictMode),
	}
	return &CookieTransport{
		cookieMgr:  cookieMgr,
		cookieName: cookieName,
		options:    append(defaults, opts...),
	}
}

// GetToken extracts the raw session token from the cookie
func (t *CookieTransport) GetToken(r *http.Request) (string, error) {
	token, err := t.cookieMgr.Get(r, t.cookieName)
	if err != nil || token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// SetToken stores the session token in a cookie that expires together with the session
func (t *CookieTransport) SetToken(w http.ResponseWriter, token string, ttl time.Duration) error {
	opts := make([]cookie.Option, 0, len(t.options)+1)
	opts = append(opts, t.options...)
	opts = append(opts, cookie.WithMaxAge(max(1, int(ttl.Seconds()))))

	return t.cookieMgr.Set(w, t.cookieName, token, opts...)
}

// ClearToken expires the session cookie
func (t *CookieTransport) ClearToken(w http.ResponseWriter) error {
	t.cookieMgr.Delete(w, t.cookieName, t.options...)
	return nil
}
