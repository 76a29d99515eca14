package session

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/sessionkit/pkg/logger"
)

type sessionContextKey struct{}

// WithSession adds a session to the context
func WithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, session)
}

// FromContext retrieves a session from the context
func FromContext(ctx context.Context) (*Session, bool) {
	if ctx == nil {
		return nil, false
	}
	session, ok := ctx.Value(sessionContextKey{}).(*Session)
	return session, ok && session != nil
}

// MustFromContext retrieves a session from the context or panics.
// Use it only in handlers mounted behind Manager.Middleware.
func MustFromContext(ctx context.Context) *Session {
	session, ok := FromContext(ctx)
	if !ok {
		panic("session: not found in context, is Manager.Middleware installed?")
	}
	return session
}

// LoggerExtractor returns a logger.ContextExtractor that records the state of
// the request's session under "session_state". The ID is never logged.
func LoggerExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		s, ok := FromContext(ctx)
		if !ok {
			return slog.Attr{}, false
		}
		return slog.String("session_state", s.State().String()), true
	}
}
