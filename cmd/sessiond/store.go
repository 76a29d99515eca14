package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/sessionkit/pkg/config"
	"github.com/dmitrymomot/sessionkit/pkg/httpserver"
	"github.com/dmitrymomot/sessionkit/pkg/logger"
	"github.com/dmitrymomot/sessionkit/pkg/pg"
	"github.com/dmitrymomot/sessionkit/pkg/redis"
	"github.com/dmitrymomot/sessionkit/pkg/session"
	"github.com/dmitrymomot/sessionkit/pkg/session/pgstore"
	"github.com/dmitrymomot/sessionkit/pkg/session/redisstore"
)

// backend is an opened session store with its operational hooks.
type backend struct {
	name string
	// store is the cached, traced store handed to the manager.
	store *session.CachingStore
	// reap is set for backends without native expiry.
	reap bool
	checks []httpserver.Check
	close  func()
}

// openBackend connects the selected store and wraps it as
// CachingStore(TracingStore(backend)) so cache hits never reach the tracer.
func openBackend(ctx context.Context, cfg appConfig, reg prometheus.Registerer, log *slog.Logger) (*backend, error) {
	b := &backend{name: strings.ToLower(cfg.Store), close: func() {}}

	var raw session.Store
	switch b.name {
	case storeMemory:
		raw = session.NewMemoryStore(cfg.Session.CleanupInterval)

	case storeRedis:
		var rcfg redis.Config
		if err := config.Load(&rcfg); err != nil {
			return nil, fmt.Errorf("load redis config: %w", err)
		}
		client, err := redis.Connect(ctx, rcfg)
		if err != nil {
			return nil, err
		}
		raw = redisstore.New(client, redisstore.WithDefaultTTL(cfg.Session.TTL))
		b.checks = append(b.checks, httpserver.Check{Name: storeRedis, Fn: redis.Healthcheck(client)})
		b.close = func() { _ = client.Close() }

	case storePostgres:
		var pcfg pg.Config
		if err := config.Load(&pcfg); err != nil {
			return nil, fmt.Errorf("load postgres config: %w", err)
		}
		pool, err := pg.Connect(ctx, pcfg)
		if err != nil {
			return nil, err
		}
		if err := pg.MigrateFS(ctx, pool, pgstore.Migrations, pgstore.MigrationsDir, pcfg, log); err != nil {
			pool.Close()
			return nil, err
		}
		raw = pgstore.New(pool)
		b.reap = true
		b.checks = append(b.checks, httpserver.Check{Name: storePostgres, Fn: pg.Healthcheck(pool)})
		b.close = pool.Close

	default:
		return nil, errors.New("unknown session store " + cfg.Store)
	}

	traced := session.NewTracingStore(raw, session.WithBackendName(b.name))
	b.store = session.NewCachingStoreFromConfig(traced, cfg.Session,
		session.WithMetrics(reg, cfg.MetricsNamespace),
	)

	// Closing the cache reaches the memory store through the tracing layer.
	closeBackend := b.close
	b.close = func() {
		_ = b.store.Close()
		closeBackend()
	}

	log.InfoContext(ctx, "session store ready", logger.Store(b.name))
	return b, nil
}
