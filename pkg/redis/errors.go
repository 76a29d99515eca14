package redis

import "errors"

var (
	// ErrFailedToParseRedisConnString wraps URL parsing failures in Connect.
	ErrFailedToParseRedisConnString = errors.New("redis.invalid_url")
	// ErrRedisNotReady is returned when every connection attempt failed.
	ErrRedisNotReady = errors.New("redis.not_ready")
	// ErrEmptyConnectionURL is returned when Config.ConnectionURL is blank.
	ErrEmptyConnectionURL = errors.New("redis.empty_url")
	// ErrHealthcheckFailed is returned by Healthcheck when PING fails.
	ErrHealthcheckFailed = errors.New("redis.healthcheck_failed")
	// ErrPoolExhausted is joined with ErrHealthcheckFailed when no pooled
	// connection became free in time.
	ErrPoolExhausted = errors.New("redis.pool_exhausted")
)
