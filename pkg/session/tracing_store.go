package session

import (
	"context"
	"errors"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/dmitrymomot/sessionkit/pkg/session"

// TracingStore wraps a Store and records a span per operation.
// ErrNotFound is an expected outcome and does not mark the span as failed.
type TracingStore struct {
	next    Store
	tracer  trace.Tracer
	backend string
}

// TracingOption configures a TracingStore.
type TracingOption func(*TracingStore)

// WithTracer sets the tracer. Defaults to the global tracer provider.
func WithTracer(t trace.Tracer) TracingOption {
	return func(s *TracingStore) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithBackendName labels spans with the backend kind, e.g. "redis".
func WithBackendName(name string) TracingOption {
	return func(s *TracingStore) {
		s.backend = name
	}
}

// NewTracingStore wraps next with tracing.
func NewTracingStore(next Store, opts ...TracingOption) *TracingStore {
	s := &TracingStore{
		next:    next,
		backend: "unknown",
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	return s
}

func (s *TracingStore) start(ctx context.Context, op string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "session.store."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("session.store.backend", s.backend),
			attribute.String("session.store.operation", op),
		),
	)
}

func finish(span trace.Span, err error) {
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		span.SetAttributes(attribute.Bool("session.not_found", true))
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *TracingStore) Create(ctx context.Context, data []byte, expiresAt time.Time) (ID, error) {
	ctx, span := s.start(ctx, "create")
	span.SetAttributes(attribute.Int("session.payload_bytes", len(data)))
	id, err := s.next.Create(ctx, data, expiresAt)
	finish(span, err)
	return id, err
}

func (s *TracingStore) Load(ctx context.Context, id ID) (*Record, error) {
	ctx, span := s.start(ctx, "load")
	rec, err := s.next.Load(ctx, id)
	if rec != nil {
		span.SetAttributes(attribute.Int("session.payload_bytes", len(rec.Data)))
	}
	finish(span, err)
	return rec, err
}

func (s *TracingStore) Update(ctx context.Context, id ID, data []byte, expiresAt time.Time) error {
	ctx, span := s.start(ctx, "update")
	span.SetAttributes(attribute.Int("session.payload_bytes", len(data)))
	err := s.next.Update(ctx, id, data, expiresAt)
	finish(span, err)
	return err
}

func (s *TracingStore) Delete(ctx context.Context, id ID) error {
	ctx, span := s.start(ctx, "delete")
	err := s.next.Delete(ctx, id)
	finish(span, err)
	return err
}

func (s *TracingStore) Touch(ctx context.Context, id ID, expiresAt time.Time) error {
	ctx, span := s.start(ctx, "touch")
	err := s.next.Touch(ctx, id, expiresAt)
	finish(span, err)
	return err
}

// DeleteExpired reaps through the decorated chain. Stores without bulk
// reaping report zero removals.
func (s *TracingStore) DeleteExpired(ctx context.Context) (int, error) {
	d, ok := find[ExpiredDeleter](s.next)
	if !ok {
		return 0, nil
	}
	ctx, span := s.start(ctx, "delete_expired")
	removed, err := d.DeleteExpired(ctx)
	span.SetAttributes(attribute.Int("session.removed", removed))
	finish(span, err)
	return removed, err
}

// Close closes the first io.Closer in the decorated chain.
func (s *TracingStore) Close() error {
	if c, ok := find[io.Closer](s.next); ok {
		return c.Close()
	}
	return nil
}

// Unwrap returns the decorated store.
func (s *TracingStore) Unwrap() Store {
	return s.next
}
