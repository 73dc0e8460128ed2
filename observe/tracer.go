package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// OperationMeta describes a guarded operation for telemetry purposes.
type OperationMeta struct {
	Kind   string // read|write|search|heavy (required)
	Name   string // Upstream operation name, e.g. "sendMessage" (required)
	Policy string // Rate-limit policy applied (optional)
	Caller string // Authenticated principal (optional)
}

// SpanName returns the deterministic span name for this operation.
// Format: guard.<kind>.<name>, or guard.<name> when Kind is empty.
func (m OperationMeta) SpanName() string {
	if m.Kind != "" {
		return "guard." + m.Kind + "." + m.Name
	}
	return "guard." + m.Name
}

// Validate reports whether the metadata is usable.
func (m OperationMeta) Validate() error {
	if m.Name == "" {
		return ErrMissingOperationName
	}
	return nil
}

func (m OperationMeta) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("guard.operation", m.Name),
	}
	if m.Kind != "" {
		attrs = append(attrs, attribute.String("guard.kind", m.Kind))
	}
	if m.Policy != "" {
		attrs = append(attrs, attribute.String("guard.policy", m.Policy))
	}
	return attrs
}

// Tracer wraps OpenTelemetry tracing with guard-specific span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for a guarded operation.
	StartSpan(ctx context.Context, meta OperationMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer wrapping the given OpenTelemetry tracer.
// A nil tracer yields a no-op implementation.
func NewTracer(t trace.Tracer) Tracer {
	if t == nil {
		return NopTracer()
	}
	return &tracerImpl{tracer: t}
}

// StartSpan starts a new span with operation metadata as attributes.
// The caller principal is recorded only on the span, never on metrics.
func (t *tracerImpl) StartSpan(ctx context.Context, meta OperationMeta) (context.Context, trace.Span) {
	attrs := append(meta.attributes(), attribute.Bool("guard.denied", false))
	if meta.Caller != "" {
		attrs = append(attrs, attribute.String("guard.caller", meta.Caller))
	}

	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpan ends the span and records the error status if present.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("guard.denied", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

type noopTracer struct {
	noop trace.Tracer
}

// NopTracer returns a Tracer that records nothing.
func NopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta OperationMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, _ error) {
	span.End()
}
