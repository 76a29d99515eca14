package session

import (
	"errors"
	"net/http"
	"time"
)

// CompositeTransport reads the token from the first transport that carries
// one and writes it through all of them. A typical pairing is a cookie for
// browsers and a header for API clients.
type CompositeTransport struct {
	transports []Transport
}

func NewCompositeTransport(transports ...Transport) *CompositeTransport {
	return &CompositeTransport{transports: transports}
}

func (t *CompositeTransport) GetToken(r *http.Request) (string, error) {
	for _, tr := range t.transports {
		if token, err := tr.GetToken(r); err == nil && token != "" {
			return token, nil
		}
	}
	return "", ErrNoToken
}

func (t *CompositeTransport) SetToken(w http.ResponseWriter, token string, ttl time.Duration) error {
	return t.each(func(tr Transport) error { return tr.SetToken(w, token, ttl) })
}

func (t *CompositeTransport) ClearToken(w http.ResponseWriter) error {
	return t.each(func(tr Transport) error { return tr.ClearToken(w) })
}

// each applies fn to every transport and joins the failures.
func (t *CompositeTransport) each(fn func(Transport) error) error {
	errs := make([]error, 0, len(t.transports))
	for _, tr := range t.transports {
		errs = append(errs, fn(tr))
	}
	return errors.Join(errs...)
}
