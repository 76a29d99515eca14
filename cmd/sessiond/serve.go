package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/sessionkit/pkg/config"
	"github.com/dmitrymomot/sessionkit/pkg/cookie"
	"github.com/dmitrymomot/sessionkit/pkg/httpserver"
	"github.com/dmitrymomot/sessionkit/pkg/logger"
	"github.com/dmitrymomot/sessionkit/pkg/requestid"
	"github.com/dmitrymomot/sessionkit/pkg/session"
)

func serveCmd() *cobra.Command {
	var envFiles []string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server.

Routes:
  GET  /         visit counter stored in the session
  POST /rotate   move the session to a fresh ID
  POST /logout   destroy the session
  GET  /livez    liveness probe
  GET  /healthz  readiness probe (pings the session backend)
  GET  /metrics  Prometheus metrics

Examples:
  SESSION_STORE=redis REDIS_URL=redis://localhost:6379/0 sessiond serve
  sessiond serve --env-file .env.local`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(envFiles) > 0 {
				if err := config.LoadEnv(envFiles...); err != nil {
					return err
				}
			}

			var cfg appConfig
			if err := config.Load(&cfg); err != nil {
				return err
			}
			if err := cfg.validate(); err != nil {
				return err
			}

			log, err := logger.NewFromConfig(cfg.Log,
				logger.WithEnvironment(cfg.Env, cfg.Service),
				logger.WithContextExtractors(
					requestid.LoggerExtractor(),
					session.LoggerExtractor(),
				),
			)
			if err != nil {
				return err
			}
			logger.SetAsDefault(log)

			return runServe(cmd.Context(), cfg, log)
		},
	}

	cmd.Flags().StringSliceVar(&envFiles, "env-file", nil, "Load variables from these .env files first")

	return cmd
}

func runServe(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cookies, err := cookie.NewFromConfig(cfg.Cookie)
	if err != nil {
		return fmt.Errorf("cookie manager: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	b, err := openBackend(ctx, cfg, reg, log)
	if err != nil {
		return err
	}
	defer b.close()

	if b.reap {
		go session.RunJanitor(ctx, b.store, cfg.Session.CleanupInterval, log)
	}

	manager := session.NewFromConfig(cfg.Session,
		session.WithStore(b.store),
		session.WithCookieManager(cookies),
		session.WithLogger(log),
	)

	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
	return srv.Run(ctx, newRouter(routerDeps{
		manager:  manager,
		gatherer: reg,
		checks:   b.checks,
		log:      log,
	}))
}
