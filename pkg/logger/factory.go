package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
)

// Deployment environment names recognised by WithEnvironment.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Format selects the slog handler.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Option configures logger creation.
type Option func(*config)

func WithLevel(l slog.Level) Option {
	return func(c *config) { c.level = l }
}

// WithFormat sets the output format. It panics on unknown formats.
func WithFormat(f Format) Option {
	return func(c *config) {
		switch f {
		case FormatJSON, FormatText:
			c.format = f
		default:
			panic(fmt.Errorf("invalid log format %q: must be %q or %q", f, FormatJSON, FormatText))
		}
	}
}

func WithTextFormatter() Option { return WithFormat(FormatText) }

func WithJSONFormatter() Option { return WithFormat(FormatJSON) }

// WithOutput sets the destination. A nil writer keeps stdout.
func WithOutput(w io.Writer) Option {
	return func(c *config) {
		if w != nil {
			c.output = w
		}
	}
}

// WithHandlerOptions replaces the handler options built from WithLevel and
// WithRedactedKeys.
func WithHandlerOptions(opts *slog.HandlerOptions) Option {
	return func(c *config) {
		if opts != nil {
			c.handlerOptions = opts
		}
	}
}

// WithAttr adds static attributes to every record.
func WithAttr(attrs ...slog.Attr) Option {
	return func(c *config) { c.attrs = append(c.attrs, attrs...) }
}

// Redacted replaces the value of every attribute named by WithRedactedKeys.
const Redacted = "[REDACTED]"

// WithRedactedKeys replaces the values of attributes with these keys (case
// insensitive, at any group depth) with Redacted. Ignored when custom handler
// options are supplied.
func WithRedactedKeys(keys ...string) Option {
	return func(c *config) {
		for _, k := range keys {
			if k = strings.TrimSpace(k); k != "" {
				c.redact = append(c.redact, strings.ToLower(k))
			}
		}
	}
}

// WithContextExtractors registers extractors run on every record.
// NewLogHandlerDecorator drops nil entries.
func WithContextExtractors(extractors ...ContextExtractor) Option {
	return func(c *config) { c.extractors = append(c.extractors, extractors...) }
}

// WithContextValue logs ctx.Value(key) under name whenever it is set.
func WithContextValue(name string, key any) Option {
	return func(c *config) {
		if name == "" || key == nil {
			return
		}
		c.extractors = append(c.extractors, func(ctx context.Context) (slog.Attr, bool) {
			if v := ctx.Value(key); v != nil {
				return slog.Any(name, v), true
			}
			return slog.Attr{}, false
		})
	}
}

type preset struct {
	level  slog.Level
	format Format
}

var presets = map[string]preset{
	EnvDevelopment: {slog.LevelDebug, FormatText},
	EnvStaging:     {slog.LevelInfo, FormatJSON},
	EnvProduction:  {slog.LevelInfo, FormatJSON},
}

func withPreset(env, service string) Option {
	return func(c *config) {
		if service == "" {
			return
		}
		p := presets[env]
		c.level, c.format = p.level, p.format
		c.attrs = append(c.attrs, slog.String("service", service), slog.String("env", env))
	}
}

// WithDevelopment logs text at debug level, tagged with service.
func WithDevelopment(service string) Option { return withPreset(EnvDevelopment, service) }

// WithStaging logs JSON at info level, tagged with service.
func WithStaging(service string) Option { return withPreset(EnvStaging, service) }

// WithProduction logs JSON at info level, tagged with service.
func WithProduction(service string) Option { return withPreset(EnvProduction, service) }

// WithEnvironment applies the preset for env. Unknown names get the
// development preset; "prod" and "stage" are accepted as aliases.
func WithEnvironment(env string, service string) Option {
	switch env {
	case EnvProduction, "prod":
		return WithProduction(service)
	case EnvStaging, "stage":
		return WithStaging(service)
	default:
		return WithDevelopment(service)
	}
}

func SetAsDefault(l *slog.Logger) {
	slog.SetDefault(l)
}

type config struct {
	level          slog.Level
	format         Format
	output         io.Writer
	attrs          []slog.Attr
	handlerOptions *slog.HandlerOptions
	extractors     []ContextExtractor
	redact         []string
}

// New returns a logger writing JSON at info level to stdout unless options
// say otherwise.
func New(opts ...Option) *slog.Logger {
	cfg := &config{level: slog.LevelInfo, format: FormatJSON, output: os.Stdout}
	for _, opt := range opts {
		opt(cfg)
	}

	hopts := cfg.handlerOptions
	if hopts == nil {
		hopts = &slog.HandlerOptions{Level: cfg.level, ReplaceAttr: redactor(cfg.redact)}
	}

	var h slog.Handler = slog.NewJSONHandler(cfg.output, hopts)
	if cfg.format == FormatText {
		h = slog.NewTextHandler(cfg.output, hopts)
	}
	if len(cfg.attrs) > 0 {
		h = h.WithAttrs(cfg.attrs)
	}
	return slog.New(NewLogHandlerDecorator(h, cfg.extractors...))
}

func redactor(keys []string) func([]string, slog.Attr) slog.Attr {
	if len(keys) == 0 {
		return nil
	}
	return func(_ []string, a slog.Attr) slog.Attr {
		if slices.Contains(keys, strings.ToLower(a.Key)) {
			return slog.String(a.Key, Redacted)
		}
		return a
	}
}
