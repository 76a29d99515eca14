// Package requestid tags every request with a correlation id.
//
// The middleware reuses a well-formed X-Request-ID header from the client or
// generates a UUIDv4, stores the id in the request context and echoes it on
// the response. Malformed client ids are replaced rather than rejected.
//
//	r := chi.NewRouter()
//	r.Use(requestid.Middleware)
//
// Services behind a proxy that sets its own header can switch header name,
// stop trusting client ids, or plug in another generator:
//
//	r.Use(requestid.New(
//		requestid.WithHeader("X-Amzn-Trace-Id"),
//		requestid.WithTrustIncoming(false),
//	))
//
// FromContext reads the id back. LoggerExtractor adds it as request_id to
// every record logged with the request context.
package requestid
