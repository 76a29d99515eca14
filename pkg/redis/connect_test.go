package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessionkit/pkg/redis"
)

func TestConnect(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)

	client, err := redis.Connect(context.Background(), redis.Config{
		ConnectionURL:  "redis://" + mr.Addr() + "/0",
		RetryAttempts:  1,
		ConnectTimeout: time.Second,
		ReadTimeout:    100 * time.Millisecond,
		PoolSize:       4,
	})
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, 100*time.Millisecond, client.Options().ReadTimeout)
	assert.Equal(t, 4, client.Options().PoolSize)
	assert.NoError(t, redis.Healthcheck(client)(context.Background()))

	mr.Close()
	assert.ErrorIs(t, redis.Healthcheck(client)(context.Background()), redis.ErrHealthcheckFailed)
}

func TestConnect_Errors(t *testing.T) {
	t.Parallel()

	_, err := redis.Connect(context.Background(), redis.Config{})
	assert.ErrorIs(t, err, redis.ErrEmptyConnectionURL)

	_, err = redis.Connect(context.Background(), redis.Config{ConnectionURL: "mysql://nope"})
	assert.ErrorIs(t, err, redis.ErrFailedToParseRedisConnString)

	_, err = redis.Connect(context.Background(), redis.Config{
		ConnectionURL:  "redis://127.0.0.1:1/0",
		RetryAttempts:  2,
		RetryInterval:  10 * time.Millisecond,
		ConnectTimeout: time.Second,
	})
	assert.ErrorIs(t, err, redis.ErrRedisNotReady)
}

func TestHealthcheck_PoolExhausted(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{
		Addr:        mr.Addr(),
		PoolSize:    1,
		PoolTimeout: 20 * time.Millisecond,
	})
	defer client.Close()

	ctx := context.Background()
	conn := client.Conn()
	defer conn.Close()
	require.NoError(t, conn.Ping(ctx).Err(), "sticky connection holds the only pool slot")

	err := redis.Healthcheck(client)(ctx)
	assert.ErrorIs(t, err, redis.ErrHealthcheckFailed)
	assert.ErrorIs(t, err, redis.ErrPoolExhausted)
}
