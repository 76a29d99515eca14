package session

import "time"

// DefaultTTL is how long a session lives without activity.
const DefaultTTL = 14 * 24 * time.Hour

// Config holds session configuration
type Config struct {
	// CookieName is the name of the session cookie (default: "id")
	CookieName string `env:"SESSION_COOKIE_NAME" envDefault:"id"`
	// CookieMode is one of private, signed or plain
	CookieMode string `env:"SESSION_COOKIE_MODE" envDefault:"private"`

	TTL time.Duration `env:"SESSION_TTL" envDefault:"336h"`

	// Sliding extends the expiry of sessions that are read but not modified
	Sliding bool `env:"SESSION_SLIDING" envDefault:"true"`
	// TouchThreshold is the minimum expiry gain worth a store round trip
	TouchThreshold time.Duration `env:"SESSION_TOUCH_THRESHOLD" envDefault:"5m"`

	// CleanupInterval for expired sessions in the memory store (0 to disable)
	CleanupInterval time.Duration `env:"SESSION_CLEANUP_INTERVAL" envDefault:"5m"`

	CacheCapacity      int           `env:"SESSION_CACHE_CAPACITY" envDefault:"10000"`
	CacheShards        int           `env:"SESSION_CACHE_SHARDS" envDefault:"16"`
	CacheTTL           time.Duration `env:"SESSION_CACHE_TTL" envDefault:"1m"`
	CacheNegativeTTL   time.Duration `env:"SESSION_CACHE_NEGATIVE_TTL" envDefault:"0s"`
	CacheLoadTimeout   time.Duration `env:"SESSION_CACHE_LOAD_TIMEOUT" envDefault:"5s"`
	CachePruneInterval time.Duration `env:"SESSION_CACHE_PRUNE_INTERVAL" envDefault:"1m"`
}

// DefaultConfig returns default session configuration
func DefaultConfig() Config {
	return Config{
		CookieName:         "id",
		CookieMode:         "private",
		TTL:                DefaultTTL,
		Sliding:            true,
		TouchThreshold:     5 * time.Minute,
		CleanupInterval:    5 * time.Minute,
		CacheCapacity:      10000,
		CacheShards:        16,
		CacheTTL:           time.Minute,
		CacheNegativeTTL:   0,
		CacheLoadTimeout:   5 * time.Second,
		CachePruneInterval: time.Minute,
	}
}

// NewFromConfig creates a new Manager from the provided Config.
// A cookie manager is required via options unless a custom codec and transport are supplied.
func NewFromConfig(cfg Config, opts ...Option) *Manager {
	configOpts := []Option{
		WithConfig(cfg),
	}

	configOpts = append(configOpts, opts...)

	return New(configOpts...)
}
