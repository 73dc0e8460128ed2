package observe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/jonwraymond/chatguard/observe/exporters"
)

// Observer hands out the telemetry primitives every guard component shares.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: Shutdown must honor cancellation/deadlines.
// - Errors: Shutdown is idempotent; later calls return the first result.
type Observer interface {
	Tracer() trace.Tracer
	Meter() metric.Meter
	Logger() Logger

	// Shutdown flushes and stops the trace and metric providers.
	Shutdown(ctx context.Context) error
}

// Logger is a minimal structured logging interface.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: logging must be best-effort and must not panic.
// - Ownership: With and WithComponent return derived loggers; the receiver
//   is unchanged.
type Logger interface {
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
	Debug(ctx context.Context, msg string, fields ...Field)
	With(fields ...Field) Logger
	WithComponent(name string) Logger
}

// Field is one structured log attribute.
type Field struct {
	Key   string
	Value any
}

// F builds a Field.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// ObserverOption tunes NewObserver.
type ObserverOption func(*observerOptions)

type observerOptions struct {
	logWriter io.Writer
	exporters []exporters.Option
	global    bool
}

// WithLogWriter sends log lines to w instead of stderr.
func WithLogWriter(w io.Writer) ObserverOption {
	return func(o *observerOptions) {
		if w != nil {
			o.logWriter = w
		}
	}
}

// WithExporterOptions forwards options to the exporter factory, for example a
// private Prometheus registry.
func WithExporterOptions(opts ...exporters.Option) ObserverOption {
	return func(o *observerOptions) {
		o.exporters = append(o.exporters, opts...)
	}
}

// WithoutGlobalProviders keeps the providers out of the otel globals.
func WithoutGlobalProviders() ObserverOption {
	return func(o *observerOptions) {
		o.global = false
	}
}

type observer struct {
	tracer trace.Tracer
	meter  metric.Meter
	logger Logger

	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider

	shutdownOnce sync.Once
	shutdownErr  error
}

// NewObserver builds an Observer from cfg. Disabled signals get no-op
// implementations, so a zero Config apart from ServiceName costs nothing.
func NewObserver(ctx context.Context, cfg Config, opts ...ObserverOption) (Observer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := observerOptions{logWriter: os.Stderr, global: true}
	for _, opt := range opts {
		opt(&o)
	}

	obs := &observer{
		tracer: tracenoop.NewTracerProvider().Tracer(cfg.ServiceName),
		meter:  noop.NewMeterProvider().Meter(cfg.ServiceName),
		logger: NopLogger(),
	}
	if cfg.Logging.Enabled {
		obs.logger = NewLoggerWithWriter(cfg.Logging.Level, o.logWriter).With(F("service", cfg.ServiceName))
	}
	if !cfg.Tracing.Enabled && !cfg.Metrics.Enabled {
		return obs, nil
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.Version),
	))
	if err != nil {
		return nil, fmt.Errorf("observe: resource: %w", err)
	}

	if cfg.Tracing.Enabled {
		exp, err := exporters.NewTracingExporter(ctx, cfg.Tracing.Exporter, o.exporters...)
		if err != nil {
			return nil, fmt.Errorf("observe: tracing: %w", err)
		}
		obs.tp = sdktrace.NewTracerProvider(
			sdktrace.WithResource(res),
			sdktrace.WithSampler(samplerFor(cfg.Tracing.SamplePct)),
			sdktrace.WithBatcher(exp),
		)
		obs.tracer = obs.tp.Tracer(cfg.ServiceName)
		if o.global {
			otel.SetTracerProvider(obs.tp)
		}
	}

	if cfg.Metrics.Enabled {
		reader, err := exporters.NewMetricsReader(ctx, cfg.Metrics.Exporter, o.exporters...)
		if err != nil {
			// Tracing may already be running.
			return nil, errors.Join(fmt.Errorf("observe: metrics: %w", err), obs.Shutdown(ctx))
		}
		obs.mp = sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(reader),
		)
		obs.meter = obs.mp.Meter(cfg.ServiceName)
		if o.global {
			otel.SetMeterProvider(obs.mp)
		}
	}

	return obs, nil
}

// samplerFor maps a sampling fraction to a sampler. The ratio sampler is
// parent-based so a traced upstream request keeps its guard spans.
func samplerFor(pct float64) sdktrace.Sampler {
	switch {
	case pct >= MaxSamplePct:
		return sdktrace.AlwaysSample()
	case pct <= MinSamplePct:
		return sdktrace.NeverSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(pct))
	}
}

func (o *observer) Tracer() trace.Tracer { return o.tracer }
func (o *observer) Meter() metric.Meter  { return o.meter }
func (o *observer) Logger() Logger       { return o.logger }

func (o *observer) Shutdown(ctx context.Context) error {
	o.shutdownOnce.Do(func() {
		var errs []error
		if o.tp != nil {
			if err := o.tp.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
			}
		}
		if o.mp != nil {
			if err := o.mp.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("meter shutdown: %w", err))
			}
		}
		o.shutdownErr = errors.Join(errs...)
	})
	return o.shutdownErr
}

type noopLogger struct{}

// NopLogger returns a Logger that discards everything.
func NopLogger() Logger { return noopLogger{} }

func (noopLogger) Info(context.Context, string, ...Field)  {}
func (noopLogger) Warn(context.Context, string, ...Field)  {}
func (noopLogger) Error(context.Context, string, ...Field) {}
func (noopLogger) Debug(context.Context, string, ...Field) {}
func (l noopLogger) With(...Field) Logger                  { return l }
func (l noopLogger) WithComponent(string) Logger           { return l }
