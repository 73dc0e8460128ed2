package observe

import (
	"context"
	"time"
)

// ExecuteFunc is the signature for guarded operation functions.
// This is the standard function signature that Middleware wraps.
type ExecuteFunc func(ctx context.Context, op OperationMeta, input any) (any, error)

// Middleware wraps guarded operations with observability (tracing, metrics, logging).
//
// Contract:
//   - Concurrency: Wrap() returns a thread-safe ExecuteFunc.
//   - Context: Propagates context through tracing spans.
//   - Errors: Errors from wrapped function are recorded and propagated unchanged.
//   - Ownership: Input/output values are passed through without modification.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware with the given observability components.
// Nil components are replaced with no-op implementations.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NopTracer()
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// Wrap wraps an ExecuteFunc with tracing, metrics, and logging.
func (m *Middleware) Wrap(fn ExecuteFunc) ExecuteFunc {
	return func(ctx context.Context, op OperationMeta, input any) (any, error) {
		ctx, span := m.tracer.StartSpan(ctx, op)
		start := time.Now()

		result, err := fn(ctx, op, input)

		duration := time.Since(start)
		m.tracer.EndSpan(span, err)
		m.metrics.RecordExecution(ctx, op, duration, err)

		fields := []Field{
			F("operation", op.Name),
			F("kind", op.Kind),
			F("duration_ms", float64(duration.Microseconds())/1000),
		}
		if op.Policy != "" {
			fields = append(fields, F("policy", op.Policy))
		}

		if err != nil {
			fields = append(fields, F("error", err.Error()))
			m.logger.Warn(ctx, "guarded operation rejected", fields...)
		} else {
			m.logger.Debug(ctx, "guarded operation completed", fields...)
		}

		return result, err
	}
}

// Metrics returns the recorder used by the middleware.
func (m *Middleware) Metrics() Metrics {
	return m.metrics
}

// MiddlewareFromObserver creates a Middleware from an Observer.
// This is a convenience function for common use cases.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger().WithComponent("pipeline")), nil
}
