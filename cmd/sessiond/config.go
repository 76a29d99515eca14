package main

import (
	"fmt"
	"strings"

	"github.com/dmitrymomot/sessionkit/pkg/cookie"
	"github.com/dmitrymomot/sessionkit/pkg/httpserver"
	"github.com/dmitrymomot/sessionkit/pkg/logger"
	"github.com/dmitrymomot/sessionkit/pkg/session"
)

// Store backends selectable with SESSION_STORE.
const (
	storeMemory   = "memory"
	storeRedis    = "redis"
	storePostgres = "postgres"
)

// appConfig is everything serve needs regardless of the selected backend.
// Backend settings (redis.Config, pg.Config) are loaded only when selected
// because their connection URLs are required.
type appConfig struct {
	Env              string `env:"APP_ENV" envDefault:"development"`
	Service          string `env:"APP_NAME" envDefault:"sessiond"`
	Store            string `env:"SESSION_STORE" envDefault:"memory"`
	MetricsNamespace string `env:"METRICS_NAMESPACE" envDefault:"sessiond"`

	Log     logger.Config
	Session session.Config
	Cookie  cookie.Config
	HTTP    httpserver.Config
}

func (c appConfig) validate() error {
	switch strings.ToLower(c.Store) {
	case storeMemory, storeRedis, storePostgres:
		return nil
	default:
		return fmt.Errorf("unknown SESSION_STORE %q: want memory, redis or postgres", c.Store)
	}
}
