package logger

import (
	"fmt"
	"log/slog"
	"strings"
)

// Config holds logger settings read from the environment. Empty fields keep
// whatever the environment preset chose.
type Config struct {
	Level  string `env:"LOG_LEVEL"`
	Format string `env:"LOG_FORMAT"`
	// Redact lists attribute keys whose values are never written
	Redact []string `env:"LOG_REDACT" envSeparator:"," envDefault:"token,cookie,authorization"`
}

// ParseLevel accepts debug, info, warn, error and offsets such as "warn+2".
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return l, nil
}

// NewFromConfig builds a logger from opts and then applies cfg on top, so an
// explicit LOG_LEVEL or LOG_FORMAT overrides environment presets.
// Invalid values return an error instead of panicking.
func NewFromConfig(cfg Config, opts ...Option) (*slog.Logger, error) {
	configOpts := append([]Option{}, opts...)

	if cfg.Level != "" {
		level, err := ParseLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		configOpts = append(configOpts, WithLevel(level))
	}

	switch f := Format(strings.ToLower(cfg.Format)); f {
	case "":
	case FormatJSON, FormatText:
		configOpts = append(configOpts, WithFormat(f))
	default:
		return nil, fmt.Errorf("invalid log format %q: must be %q or %q", cfg.Format, FormatJSON, FormatText)
	}

	if len(cfg.Redact) > 0 {
		configOpts = append(configOpts, WithRedactedKeys(cfg.Redact...))
	}

	return New(configOpts...), nil
}
