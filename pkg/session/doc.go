// Package session provides server-side HTTP sessions: an opaque random ID in
// a protected cookie, with the session data kept in a pluggable store.
//
// # Architecture
//
// A Manager loads a session handle at the start of a request and commits its
// changes once, before the response headers are sent. A Codec protects the ID
// inside the cookie (private, signed or plain), a Transport moves the token
// between client and server and a Store persists records.
//
//	┌────────┐  token  ┌───────────┐  ID  ┌─────────┐
//	│ Client │ ──────► │ Transport │ ───► │  Codec  │
//	└────────┘         └───────────┘      └─────────┘
//	                                           │
//	                                           ▼
//	                   ┌─────────────────────────────┐
//	                   │           Manager           │
//	                   └─────────────────────────────┘
//	                                  │
//	                                  ▼
//	              ┌──────────────┐       ┌──────────────────┐
//	              │ CachingStore │ ────► │ memory, redis, pg │
//	              └──────────────┘       └──────────────────┘
//
// Stores deal only in opaque byte payloads. Session data is encoded with a
// Serializer (MessagePack by default).
//
// # Lifecycle
//
// A handle starts Absent, NotFound or Loaded. Commit issues at most one
// terminal store write:
//
//   - destroyed handles are deleted and the cookie is cleared
//   - new handles with data are created under a fresh ID
//   - regenerated handles are created under a fresh ID and the old record is deleted
//   - modified handles are updated (recreated if the record vanished)
//   - unmodified handles are touched when sliding expiry gains enough time
//
// Expiry never moves backwards unless set with Session.SetExpiry.
//
// # Usage
//
//	keys, _ := cookie.New([]string{os.Getenv("SESSION_SECRET")})
//	store := session.NewCachingStore(redisstore.New(client))
//	manager := session.New(
//	    session.WithCookieManager(keys),
//	    session.WithStore(store),
//	)
//
//	mux.Handle("/", manager.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
//	    sess := session.MustFromContext(r.Context())
//	    n, _ := sess.GetInt("count")
//	    sess.Set("count", n+1)
//	})))
//
// After login call Session.Regenerate; on logout call Session.Destroy.
//
// # Caching
//
// CachingStore keeps recently used records in a sharded LRU with a short local
// TTL. Concurrent loads of one ID share a single backend round trip. Writes go
// to the backend first and then refresh or invalidate the local entry, and a
// load that raced with a write never publishes its stale result.
//
// # Errors
//
// ErrNotFound is an expected outcome. ErrUnavailable and ErrTimeout report
// backend failures and are returned to the caller, never treated as a missing
// session. Use errors.Is for classification.
package session
