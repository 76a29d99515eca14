package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/sessionkit/pkg/logger"
)

// RunJanitor calls DeleteExpired every interval until ctx is done.
// Failures are logged and retried on the next tick.
func RunJanitor(ctx context.Context, store ExpiredDeleter, interval time.Duration, log *slog.Logger) {
	if interval <= 0 {
		return
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed, err := store.DeleteExpired(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.WarnContext(ctx, "failed to delete expired sessions", logger.Operation("delete_expired"), logger.Error(err))
				continue
			}
			if removed > 0 {
				log.DebugContext(ctx, "deleted expired sessions", slog.Int("count", removed))
			}
		case <-ctx.Done():
			return
		}
	}
}
