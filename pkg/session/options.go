package session

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/sessionkit/pkg/cookie"
)

// Option is a functional option for configuring the Manager
type Option func(*Manager)

// WithStore sets a custom session store
func WithStore(store Store) Option {
	return func(m *Manager) {
		m.store = store
	}
}

// WithTransport sets a custom session transport
func WithTransport(transport Transport) Option {
	return func(m *Manager) {
		m.transport = transport
	}
}

// WithConfig sets custom configuration
func WithConfig(config Config) Option {
	return func(m *Manager) {
		m.config = config
	}
}

// WithCookieName sets the session cookie name
func WithCookieName(name string) Option {
	return func(m *Manager) {
		m.config.CookieName = name
	}
}

// WithTTL sets the session lifetime
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.config.TTL = ttl
	}
}

// WithSliding enables or disables sliding expiry and sets the minimum gain
// that triggers a touch
func WithSliding(enabled bool, threshold time.Duration) Option {
	return func(m *Manager) {
		m.config.Sliding = enabled
		m.config.TouchThreshold = threshold
	}
}

// WithCookieManager sets the key material used by the codec and the cookie
// manager used by the default transport
func WithCookieManager(cookieMgr *cookie.Manager, opts ...cookie.Option) Option {
	return func(m *Manager) {
		m.cookieManager = cookieMgr
		m.cookieOptions = opts
	}
}

// WithCodec sets a custom codec, overriding the one built from the cookie manager
func WithCodec(codec *Codec) Option {
	return func(m *Manager) {
		m.codec = codec
	}
}

// WithSerializer sets the payload serializer (MessagePack by default)
func WithSerializer(s Serializer) Option {
	return func(m *Manager) {
		if s != nil {
			m.serializer = s
		}
	}
}

// WithLogger sets the logger used for recoverable failures
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}
