package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/ajitpratap0/snowlink"

// HandlerTracer provides handler-specific tracing utilities. It resolves the
// tracer from the global provider on every span, so spans are no-ops until
// InitTracing has run.
type HandlerTracer struct {
	engine  string
	handler string
}

// NewHandlerTracer creates a new handler tracer
func NewHandlerTracer(engine, handler string) *HandlerTracer {
	return &HandlerTracer{engine: engine, handler: handler}
}

// StartSpan starts a handler-specific span
func (ht *HandlerTracer) StartSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	base := []attribute.KeyValue{
		attribute.String("handler.engine", ht.engine),
		attribute.String("handler.name", ht.handler),
		attribute.String("handler.operation", operation),
	}
	return otel.Tracer(instrumentationName).Start(ctx, ht.engine+"."+operation,
		trace.WithAttributes(append(base, attrs...)...))
}

// Trace runs fn inside a span and records its error status.
func (ht *HandlerTracer) Trace(ctx context.Context, operation string, fn func(ctx context.Context) error, attrs ...attribute.KeyValue) error {
	ctx, span := ht.StartSpan(ctx, operation, attrs...)
	defer span.End()

	err := fn(ctx)
	End(span, err)
	return err
}

// End sets the span status from err. It does not end the span.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}
