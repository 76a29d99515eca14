package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// Healthcheck returns a readiness probe that sends PING.
// A saturated pool is reported as ErrPoolExhausted so it can be told apart
// from an unreachable server.
func Healthcheck(client redis.UniversalClient) func(context.Context) error {
	return func(ctx context.Context) error {
		err := client.Ping(ctx).Err()
		switch {
		case err == nil:
			return nil
		case errors.Is(err, redis.ErrPoolTimeout):
			return errors.Join(ErrHealthcheckFailed, ErrPoolExhausted, err)
		default:
			return errors.Join(ErrHealthcheckFailed, err)
		}
	}
}
