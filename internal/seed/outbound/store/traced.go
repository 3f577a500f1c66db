package store

import (
	"context"
	"errors"

	"github.com/shandysiswandi/seedotp/internal/pkg/goerror"
	"github.com/shandysiswandi/seedotp/internal/pkg/instrument"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Traced opens a span around every call of the wrapped store.
type Traced struct {
	next   Store
	ins    instrument.Instrumentation
	driver string
}

// NewTraced wraps next; driver is recorded as a span attribute.
func NewTraced(next Store, ins instrument.Instrumentation, driver string) *Traced {
	return &Traced{next: next, ins: ins, driver: driver}
}

// Write implements Store.
func (t *Traced) Write(ctx context.Context, seed string) (err error) {
	ctx, span := t.startSpan(ctx, "Write")
	defer func() { t.endSpan(span, err) }()

	err = t.next.Write(ctx, seed)
	return err
}

// Read implements Store.
func (t *Traced) Read(ctx context.Context) (seed string, err error) {
	ctx, span := t.startSpan(ctx, "Read")
	defer func() { t.endSpan(span, err) }()

	seed, err = t.next.Read(ctx)
	return seed, err
}

// Close implements io.Closer.
func (t *Traced) Close() error {
	return t.next.Close()
}

func (t *Traced) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return t.ins.Tracer("seed.outbound.store").Start(ctx, name,
		trace.WithAttributes(attribute.String("seed.store.driver", t.driver)))
}

func (*Traced) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
