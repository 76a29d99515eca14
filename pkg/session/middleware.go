package session

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/dmitrymomot/sessionkit/pkg/logger"
)

// LoadRequest reads the token carried by r and resolves it into a session.
func (m *Manager) LoadRequest(r *http.Request) (*Session, error) {
	token, err := m.transport.GetToken(r)
	if err != nil && !errors.Is(err, ErrNoToken) {
		return nil, err
	}
	return m.Load(r.Context(), token)
}

// CommitResponse commits s and applies the resulting cookie action to w.
// It must run before the response headers are written.
func (m *Manager) CommitResponse(ctx context.Context, w http.ResponseWriter, s *Session) error {
	action, err := m.Commit(ctx, s)
	if err != nil {
		return err
	}
	return m.apply(w, action)
}

func (m *Manager) apply(w http.ResponseWriter, action CookieAction) error {
	switch action.Kind {
	case CookieSet:
		return m.transport.SetToken(w, action.Value, action.MaxAge)
	case CookieClear:
		return m.transport.ClearToken(w)
	default:
		return nil
	}
}

// maxBufferedBody is how much response body Middleware holds back before it
// commits early and streams the rest.
const maxBufferedBody = 1 << 20

// Middleware loads the session before the handler runs and commits it after
// the handler returns. The status and body are held back until then, so
// changes made after WriteHeader or Write still reach the store.
//
// Flush, Hijack and bodies larger than 1 MiB commit early. Changes made after
// that are dropped and logged; see Session.Dropped.
//
// A store failure while loading answers 500 without calling the handler.
// A failed commit replaces the handler's response with a 500.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := m.LoadRequest(r)
		if err != nil {
			m.logger.ErrorContext(r.Context(), "failed to load session", logger.Operation("load"), logger.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		cw := &commitWriter{
			ResponseWriter: w,
			manager:        m,
			session:        s,
			// Commit must complete even if the client disconnects mid-request.
			ctx: context.WithoutCancel(r.Context()),
		}

		next.ServeHTTP(cw, r.WithContext(WithSession(r.Context(), s)))
		cw.commit()
	})
}

// RequireSession answers 401 unless the request carries a persisted session.
// It must be mounted after Middleware.
func (m *Manager) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := FromContext(r.Context())
		if !ok || s.State() != StateLoaded && s.State() != StateDirty {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// commitWriter holds the status and body back until the session is committed.
type commitWriter struct {
	http.ResponseWriter
	manager *Manager
	session *Session
	ctx     context.Context

	status    int
	body      bytes.Buffer
	committed bool
	failed    bool
}

// commit persists the session once, then sends what the handler wrote so far.
func (w *commitWriter) commit() {
	if w.committed {
		return
	}
	w.committed = true

	if err := w.manager.CommitResponse(w.ctx, w.ResponseWriter, w.session); err != nil {
		w.failed = true
		w.body.Reset()
		w.manager.logger.ErrorContext(w.ctx, "failed to commit session",
			logger.Operation("commit"),
			logger.Error(errors.Join(ErrCommitFailed, err)))
		http.Error(w.ResponseWriter, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if w.status != 0 {
		w.ResponseWriter.WriteHeader(w.status)
	}
	if w.body.Len() > 0 {
		_, _ = w.ResponseWriter.Write(w.body.Bytes())
		w.body.Reset()
	}
}

func (w *commitWriter) WriteHeader(code int) {
	switch {
	case w.failed:
	case w.committed, code < http.StatusOK:
		w.ResponseWriter.WriteHeader(code)
	case w.status == 0:
		w.status = code
	}
}

func (w *commitWriter) Write(b []byte) (int, error) {
	if !w.committed {
		if w.status == 0 {
			w.status = http.StatusOK
		}
		if w.body.Len()+len(b) <= maxBufferedBody {
			return w.body.Write(b)
		}
		w.commit()
	}
	if w.failed {
		return 0, ErrCommitFailed
	}
	return w.ResponseWriter.Write(b)
}

func (w *commitWriter) Flush() {
	w.commit()
	if w.failed {
		return
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *commitWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	w.commit()
	if h, ok := w.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *commitWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
