package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrymomot/sessionkit/pkg/logger"
)

// CheckFunc reports whether a dependency is usable.
type CheckFunc func(context.Context) error

// Check names a dependency probed by the readiness handler.
type Check struct {
	Name string
	Fn   CheckFunc
}

// DefaultCheckTimeout bounds a single readiness check.
const DefaultCheckTimeout = 2 * time.Second

// LivenessHandler answers 200 OK with body "ALIVE".
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ALIVE"))
	}
}

// ReadinessHandler runs every check concurrently with the request context
// bounded by timeout (DefaultCheckTimeout when zero). It answers 200 "READY" when all
// succeed and 503 "NOT_READY" otherwise. Failures are logged by name.
func ReadinessHandler(log *slog.Logger, timeout time.Duration, checks ...Check) http.HandlerFunc {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if timeout <= 0 {
		timeout = DefaultCheckTimeout
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := runChecks(ctx, checks); err != nil {
			log.WarnContext(ctx, "readiness check failed", logger.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("NOT_READY"))
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("READY"))
	}
}

func runChecks(ctx context.Context, checks []Check) error {
	errs := make([]error, len(checks))
	var wg sync.WaitGroup
	for i, c := range checks {
		if c.Fn == nil {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.Fn(ctx); err != nil {
				errs[i] = errors.Join(ErrNotReady, fmt.Errorf("%s: %w", c.Name, err))
			}
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}
