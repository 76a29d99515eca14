package cookie

import (
	"net/http"
	"strings"
	"time"
)

// Config is the environment form of the manager settings. Secrets are comma
// separated and the first one signs and encrypts. KeyOrder only sets the order
// in which keys are tried when reading.
type Config struct {
	Secrets  []string      `env:"COOKIE_SECRETS" envSeparator:","`
	KeyOrder string        `env:"COOKIE_KEY_ORDER" envDefault:"newest_first"`
	Path     string        `env:"COOKIE_PATH" envDefault:"/"`
	Domain   string        `env:"COOKIE_DOMAIN"`
	MaxAge   time.Duration `env:"COOKIE_MAX_AGE"`
	Secure   bool          `env:"COOKIE_SECURE" envDefault:"true"`
	HttpOnly bool          `env:"COOKIE_HTTP_ONLY" envDefault:"true"`
	SameSite string        `env:"COOKIE_SAME_SITE" envDefault:"strict"`
}

// DefaultConfig mirrors the envDefault tags.
func DefaultConfig() Config {
	return Config{
		KeyOrder: "newest_first",
		Path:     "/",
		Secure:   true,
		HttpOnly: true,
		SameSite: "strict",
	}
}

// ParseKeyOrder maps "oldest_first" (or "oldest") to OldestFirst. Anything
// else is NewestFirst.
func ParseKeyOrder(s string) KeyOrder {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "oldest_first", "oldest":
		return OldestFirst
	default:
		return NewestFirst
	}
}

// ParseSameSite maps lax, none and strict to their http.SameSite values.
// Empty or unknown input gives SameSiteStrictMode.
func ParseSameSite(s string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteStrictMode
	}
}

// NewFromConfig builds a Manager from cfg. Options in opts are applied after
// the ones derived from cfg.
func NewFromConfig(cfg Config, opts ...Option) (*Manager, error) {
	secrets := make([]string, 0, len(cfg.Secrets))
	for _, s := range cfg.Secrets {
		secrets = append(secrets, strings.TrimSpace(s))
	}

	base := []Option{
		WithKeyOrder(ParseKeyOrder(cfg.KeyOrder)),
		WithSecure(cfg.Secure),
		WithHTTPOnly(cfg.HttpOnly),
		WithSameSite(ParseSameSite(cfg.SameSite)),
	}
	if cfg.Path != "" {
		base = append(base, WithPath(cfg.Path))
	}
	if cfg.Domain != "" {
		base = append(base, WithDomain(cfg.Domain))
	}
	if cfg.MaxAge > 0 {
		base = append(base, WithMaxAge(int(cfg.MaxAge.Seconds())))
	}

	return New(secrets, append(base, opts...)...)
}
