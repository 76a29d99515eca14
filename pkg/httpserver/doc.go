// Package httpserver runs an http.Handler with graceful shutdown.
//
// Server.Run binds the listener first, so a failure to bind is returned as
// ErrStart and Addr reports the real port when ":0" was requested. It then
// serves until ctx is cancelled or the process receives SIGINT or SIGTERM,
// and shuts down within the configured timeout. Shutdown errors wrap
// ErrShutdown.
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, router); err != nil {
//		return err
//	}
//
// LivenessHandler and ReadinessHandler are meant for orchestrator probes.
// Readiness runs every Check concurrently under one timeout and answers 503
// when any of them fails:
//
//	r.Get("/healthz", httpserver.ReadinessHandler(log, 0,
//		httpserver.Check{Name: "redis", Fn: redis.Healthcheck(client)},
//	))
package httpserver
