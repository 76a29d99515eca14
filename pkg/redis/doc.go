// Package redis opens go-redis clients from environment config.
//
// Connect parses REDIS_URL, applies the per-command timeouts and pool size,
// and only returns once PING succeeds. Healthcheck wraps PING for readiness
// probes and reports an exhausted pool with ErrPoolExhausted, which usually
// means the pool is undersized for the request rate rather than that Redis
// is down.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//	store := redisstore.New(client, redisstore.WithDefaultTTL(24*time.Hour))
package redis
