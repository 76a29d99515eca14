package httpserver

import "errors"

var (
	// ErrStart indicates that the server failed to start.
	ErrStart = errors.New("httpserver.start")
	// ErrAlreadyRunning is joined with ErrStart when Run is called twice.
	ErrAlreadyRunning = errors.New("httpserver.already_running")
	// ErrShutdown indicates that graceful shutdown failed.
	ErrShutdown = errors.New("httpserver.shutdown")
	// ErrNotReady is reported by the readiness handler when a check fails.
	ErrNotReady = errors.New("httpserver.not_ready")
)
