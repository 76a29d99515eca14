package httpserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Option configures a Server. Options given invalid values panic at
// construction so misconfiguration fails before the listener opens.
type Option func(*config)

func positive(name string, d time.Duration) {
	if d <= 0 {
		panic(fmt.Sprintf("httpserver: %s must be > 0, got %s", name, d))
	}
}

// WithAddr sets the listen address. ":0" picks a free port; see Server.Addr.
func WithAddr(addr string) Option {
	if addr == "" {
		panic("httpserver: empty addr")
	}
	return func(c *config) { c.addr = addr }
}

func WithReadTimeout(d time.Duration) Option {
	positive("read timeout", d)
	return func(c *config) { c.readTimeout = d }
}

func WithReadHeaderTimeout(d time.Duration) Option {
	positive("read header timeout", d)
	return func(c *config) { c.readHeaderTimeout = d }
}

func WithWriteTimeout(d time.Duration) Option {
	positive("write timeout", d)
	return func(c *config) { c.writeTimeout = d }
}

func WithIdleTimeout(d time.Duration) Option {
	positive("idle timeout", d)
	return func(c *config) { c.idleTimeout = d }
}

// WithShutdownTimeout bounds how long Run waits for in-flight requests.
func WithShutdownTimeout(d time.Duration) Option {
	positive("shutdown timeout", d)
	return func(c *config) { c.shutdownTimeout = d }
}

// WithServer runs srv instead of a fresh http.Server. Its Handler is
// replaced; timeouts and Addr already set on srv win over options.
func WithServer(srv *http.Server) Option {
	if srv == nil {
		panic("httpserver: nil server")
	}
	return func(c *config) { c.server = srv }
}

// WithLogger sets the lifecycle logger. Nil discards.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithStartHook runs h once the listener is bound.
func WithStartHook(h func(*slog.Logger)) Option {
	if h == nil {
		panic("httpserver: nil start hook")
	}
	return func(c *config) { c.startHooks = append(c.startHooks, h) }
}

// WithStopHook runs h after shutdown completes.
func WithStopHook(h func(*slog.Logger)) Option {
	if h == nil {
		panic("httpserver: nil stop hook")
	}
	return func(c *config) { c.stopHooks = append(c.stopHooks, h) }
}
