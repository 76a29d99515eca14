package requestid

import (
	"context"
	"net/http"
	"regexp"

	"github.com/google/uuid"
)

const (
	Header      = "X-Request-ID"
	maxIDLength = 128
)

var validID = regexp.MustCompile("^[a-zA-Z0-9_-]+$")

// Option configures the middleware returned by New.
type Option func(*options)

type options struct {
	header   string
	generate func() string
	trust    bool
}

// WithHeader sets the header read from the request and echoed in the response.
func WithHeader(name string) Option {
	return func(o *options) {
		if name != "" {
			o.header = http.CanonicalHeaderKey(name)
		}
	}
}

// WithGenerator replaces the UUIDv4 generator used for new identifiers.
func WithGenerator(fn func() string) Option {
	return func(o *options) {
		if fn != nil {
			o.generate = fn
		}
	}
}

// WithTrustIncoming controls whether a well-formed client supplied ID is reused.
// Enabled by default; disable on edges facing untrusted clients.
func WithTrustIncoming(trust bool) Option {
	return func(o *options) {
		o.trust = trust
	}
}

// New returns middleware that attaches a request ID to the request context
// and the response headers.
func New(opts ...Option) func(http.Handler) http.Handler {
	o := options{
		header:   Header,
		generate: uuid.NewString,
		trust:    true,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if o.trust {
				id = r.Header.Get(o.header)
			}
			if !isValid(id) {
				id = o.generate()
			}
			w.Header().Set(o.header, id)
			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), id)))
		})
	}
}

// Middleware is New with default options.
func Middleware(next http.Handler) http.Handler {
	return New()(next)
}

func isValid(id string) bool {
	if id == "" || len(id) > maxIDLength {
		return false
	}
	return validID.MatchString(id)
}

type contextKey struct{}

// WithContext stores id in ctx.
func WithContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the request ID stored in ctx, or "".
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}
