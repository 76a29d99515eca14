package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/sessionkit/pkg/httpserver"
	"github.com/dmitrymomot/sessionkit/pkg/logger"
	"github.com/dmitrymomot/sessionkit/pkg/requestid"
	"github.com/dmitrymomot/sessionkit/pkg/session"
)

type routerDeps struct {
	manager  *session.Manager
	gatherer prometheus.Gatherer
	checks   []httpserver.Check
	log      *slog.Logger
}

// newRouter mounts the operational endpoints outside the session middleware
// so probes and scrapes never create sessions.
func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(middleware.Recoverer)

	r.Get("/livez", httpserver.LivenessHandler())
	r.Get("/healthz", httpserver.ReadinessHandler(d.log, 0, d.checks...))
	r.Handle("/metrics", promhttp.HandlerFor(d.gatherer, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(accessLog(d.log))
		r.Use(d.manager.Middleware)

		r.Get("/", countHandler)
		r.Post("/rotate", rotateHandler)
		r.With(d.manager.RequireSession).Post("/logout", logoutHandler)
	})

	return r
}

type countResponse struct {
	Count int `json:"count"`
}

// countHandler reports how many times the session visited before this request.
func countHandler(w http.ResponseWriter, r *http.Request) {
	sess := session.MustFromContext(r.Context())
	n, _ := sess.GetInt("count")
	sess.Set("count", n+1)

	writeJSON(w, http.StatusOK, countResponse{Count: n})
}

// rotateHandler moves the session to a new ID, keeping its data.
func rotateHandler(w http.ResponseWriter, r *http.Request) {
	sess := session.MustFromContext(r.Context())
	sess.Regenerate()
	n, _ := sess.GetInt("count")

	writeJSON(w, http.StatusOK, countResponse{Count: n})
}

func logoutHandler(w http.ResponseWriter, r *http.Request) {
	session.MustFromContext(r.Context()).Destroy()
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func accessLog(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.DebugContext(r.Context(), "request served",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				logger.Duration(time.Since(start)),
			)
		})
	}
}
