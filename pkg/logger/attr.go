package logger

import (
	"log/slog"
	"strconv"
	"time"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Error returns err under "error", or an empty Attr for nil so callers can
// log unconditionally.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Errors groups the non-nil errors under "errors", keyed by position.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return Group("errors", as...)
}

// RequestID returns id under "request_id"; empty ids produce an empty Attr.
func RequestID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("request_id", id)
}

func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Store names the session backend (memory, redis, postgres).
func Store(name string) slog.Attr {
	return slog.String("store", name)
}

// Operation names the session operation being logged (load, commit, ...).
func Operation(op string) slog.Attr {
	return slog.String("operation", op)
}

func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}
