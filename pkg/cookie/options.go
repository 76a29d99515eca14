package cookie

import "net/http"

// KeyOrder is the sequence in which rotated keys are tried on read.
// Writes always use the newest key.
type KeyOrder uint8

const (
	// NewestFirst suits steady state, when most cookies carry the current key.
	NewestFirst KeyOrder = iota
	// OldestFirst suits the window right after a rotation.
	OldestFirst
)

// Options are the attributes written on every cookie. Manager-wide values
// come from New; per-call options passed to Set or Delete override them.
type Options struct {
	Path     string
	Domain   string
	MaxAge   int // seconds; zero writes a browser-session cookie
	Secure   bool
	HttpOnly bool
	SameSite http.SameSite

	keyOrder KeyOrder
}

type Option func(*Options)

func WithPath(path string) Option         { return func(o *Options) { o.Path = path } }
func WithDomain(domain string) Option     { return func(o *Options) { o.Domain = domain } }
func WithMaxAge(seconds int) Option       { return func(o *Options) { o.MaxAge = seconds } }
func WithSecure(secure bool) Option       { return func(o *Options) { o.Secure = secure } }
func WithHTTPOnly(httpOnly bool) Option   { return func(o *Options) { o.HttpOnly = httpOnly } }
func WithSameSite(s http.SameSite) Option { return func(o *Options) { o.SameSite = s } }

// WithKeyOrder only has an effect when passed to New.
func WithKeyOrder(order KeyOrder) Option {
	return func(o *Options) { o.keyOrder = order }
}

func applyOptions(base Options, opts []Option) Options {
	for _, opt := range opts {
		opt(&base)
	}
	return base
}
