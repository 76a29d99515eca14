package session_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessionkit/pkg/cookie"
	"github.com/dmitrymomot/sessionkit/pkg/session"
)

func TestCookieTransport(t *testing.T) {
	t.Parallel()

	transport := session.NewCookieTransport(newCookieManager(t), "sid")

	t.Run("missing cookie", func(t *testing.T) {
		_, err := transport.GetToken(httptest.NewRequest(http.MethodGet, "/", nil))
		assert.ErrorIs(t, err, session.ErrNoToken)
	})

	t.Run("set and get", func(t *testing.T) {
		rec := httptest.NewRecorder()
		require.NoError(t, transport.SetToken(rec, "token-value", 90*time.Minute))

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		c := cookies[0]
		assert.Equal(t, "sid", c.Name)
		assert.Equal(t, "token-value", c.Value)
		assert.Equal(t, 5400, c.MaxAge)
		assert.True(t, c.HttpOnly)
		assert.True(t, c.Secure)
		assert.Equal(t, http.SameSiteStrictMode, c.SameSite)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(c)
		token, err := transport.GetToken(req)
		require.NoError(t, err)
		assert.Equal(t, "token-value", token)
	})

	t.Run("clear", func(t *testing.T) {
		rec := httptest.NewRecorder()
		require.NoError(t, transport.ClearToken(rec))

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Negative(t, cookies[0].MaxAge)
		assert.Empty(t, cookies[0].Value)
	})

	t.Run("overrides", func(t *testing.T) {
		lax := session.NewCookieTransport(newCookieManager(t), "sid",
			cookie.WithSecure(false),
			cookie.WithSameSite(http.SameSiteLaxMode),
		)
		rec := httptest.NewRecorder()
		require.NoError(t, lax.SetToken(rec, "v", time.Hour))

		c := rec.Result().Cookies()[0]
		assert.False(t, c.Secure)
		assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	})

	assert.Panics(t, func() { session.NewCookieTransport(nil, "sid") })
}

func TestHeaderTransport(t *testing.T) {
	t.Parallel()

	transport := session.NewHeaderTransport("Authorization")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := transport.GetToken(req)
	assert.ErrorIs(t, err, session.ErrNoToken)

	req.Header.Set("Authorization", "Bearer abc")
	token, err := transport.GetToken(req)
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	rec := httptest.NewRecorder()
	require.NoError(t, transport.SetToken(rec, "xyz", time.Hour))
	assert.Equal(t, "Bearer xyz", rec.Header().Get("Authorization"))
	assert.NotEmpty(t, rec.Header().Get("Authorization-Expires"))

	rec = httptest.NewRecorder()
	require.NoError(t, transport.ClearToken(rec))
	assert.Empty(t, rec.Header().Get("Authorization"))

	raw := session.NewHeaderTransport("X-Session", session.WithHeaderPrefix(""))
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Session", "plain-token")
	token, err = raw.GetToken(req)
	require.NoError(t, err)
	assert.Equal(t, "plain-token", token)
}

func TestCompositeTransport(t *testing.T) {
	t.Parallel()

	header := session.NewHeaderTransport("X-Session", session.WithHeaderPrefix(""))
	cookies := session.NewCookieTransport(newCookieManager(t), "sid")
	transport := session.NewCompositeTransport(header, cookies)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := transport.GetToken(req)
	assert.ErrorIs(t, err, session.ErrNoToken)

	req.AddCookie(&http.Cookie{Name: "sid", Value: "from-cookie"})
	token, err := transport.GetToken(req)
	require.NoError(t, err)
	assert.Equal(t, "from-cookie", token)

	req.Header.Set("X-Session", "from-header")
	token, err = transport.GetToken(req)
	require.NoError(t, err)
	assert.Equal(t, "from-header", token, "first transport wins")

	rec := httptest.NewRecorder()
	require.NoError(t, transport.SetToken(rec, "t", time.Hour))
	assert.Equal(t, "t", rec.Header().Get("X-Session"))
	assert.Len(t, rec.Result().Cookies(), 1)
}
