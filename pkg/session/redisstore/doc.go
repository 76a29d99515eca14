// Package redisstore persists sessions in Redis.
//
// Every session is a single string key "<prefix><id>" holding the opaque
// payload. The session expiry is the key's TTL, so Redis reclaims expired
// sessions on its own.
//
//	client, _ := redis.Connect(ctx, cfg)
//	store := redisstore.New(client)
//	manager := session.New(
//	    session.WithCookieManager(keys),
//	    session.WithStore(session.NewCachingStore(store)),
//	)
//
// Create uses SET NX so a fresh ID never overwrites a live session; Update
// uses SET XX so a vanished session is reported as session.ErrNotFound instead
// of being resurrected. Connection failures surface as session.ErrUnavailable
// and deadlines as session.ErrTimeout.
package redisstore
