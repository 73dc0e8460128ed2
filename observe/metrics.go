package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records guard decisions and pipeline executions.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordExecution records a pipeline run with duration and outcome.
	RecordExecution(ctx context.Context, meta OperationMeta, duration time.Duration, err error)

	// RecordCacheLookup records a cache hit or miss for an operation.
	RecordCacheLookup(ctx context.Context, operation string, hit bool)

	// RecordCacheEviction records an entry leaving the cache.
	RecordCacheEviction(ctx context.Context, reason string)

	// RecordRateLimit records a limiter decision for a policy.
	RecordRateLimit(ctx context.Context, policy string, allowed bool)

	// RecordWriteDenial records a write rejected by the write guard.
	RecordWriteDenial(ctx context.Context, code string)

	// RecordNeutralized records sanitizer rewrites, one per rule match.
	RecordNeutralized(ctx context.Context, rule string, count int)

	// RecordValidationFailure records a rejected input field.
	RecordValidationFailure(ctx context.Context, field string)
}

type metricsImpl struct {
	execTotal    metric.Int64Counter
	execErrors   metric.Int64Counter
	durationHist metric.Float64Histogram
	cacheHits    metric.Int64Counter
	cacheMisses  metric.Int64Counter
	evictions    metric.Int64Counter
	rateLimit    metric.Int64Counter
	writeDenials metric.Int64Counter
	neutralized  metric.Int64Counter
	validation   metric.Int64Counter
}

// NewMetrics creates a Metrics instance backed by meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	return newMetrics(meter)
}

func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	m := &metricsImpl{}
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&m.execTotal, "guard.exec.total", "Total number of guarded operations", "{call}"},
		{&m.execErrors, "guard.exec.errors", "Guarded operations that were denied or failed", "{error}"},
		{&m.cacheHits, "guard.cache.hits", "Cache lookups served from the cache", "{lookup}"},
		{&m.cacheMisses, "guard.cache.misses", "Cache lookups that reached upstream", "{lookup}"},
		{&m.evictions, "guard.cache.evictions", "Entries removed by capacity or expiry", "{entry}"},
		{&m.rateLimit, "guard.ratelimit.decisions", "Rate limiter decisions by policy and outcome", "{decision}"},
		{&m.writeDenials, "guard.write.denials", "Writes rejected by the write guard", "{denial}"},
		{&m.neutralized, "guard.sanitize.neutralized", "Mentions and URL schemes neutralized", "{match}"},
		{&m.validation, "guard.validate.failures", "Input fields rejected by validation", "{field}"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name,
			metric.WithDescription(c.desc),
			metric.WithUnit(c.unit),
		)
		if err != nil {
			return nil, err
		}
		*c.dst = counter
	}

	hist, err := meter.Float64Histogram(
		"guard.pipeline.duration_ms",
		metric.WithDescription("Guarded operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}
	m.durationHist = hist

	return m, nil
}

func (m *metricsImpl) RecordExecution(ctx context.Context, meta OperationMeta, duration time.Duration, err error) {
	opt := metric.WithAttributes(meta.attributes()...)

	m.execTotal.Add(ctx, 1, opt)
	if err != nil {
		m.execErrors.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Microseconds())/1000, opt)
}

func (m *metricsImpl) RecordCacheLookup(ctx context.Context, operation string, hit bool) {
	opt := metric.WithAttributes(attribute.String("guard.operation", operation))
	if hit {
		m.cacheHits.Add(ctx, 1, opt)
		return
	}
	m.cacheMisses.Add(ctx, 1, opt)
}

func (m *metricsImpl) RecordCacheEviction(ctx context.Context, reason string) {
	m.evictions.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *metricsImpl) RecordRateLimit(ctx context.Context, policy string, allowed bool) {
	m.rateLimit.Add(ctx, 1, metric.WithAttributes(
		attribute.String("guard.policy", policy),
		attribute.Bool("allowed", allowed),
	))
}

func (m *metricsImpl) RecordWriteDenial(ctx context.Context, code string) {
	m.writeDenials.Add(ctx, 1, metric.WithAttributes(attribute.String("code", code)))
}

func (m *metricsImpl) RecordNeutralized(ctx context.Context, rule string, count int) {
	if count <= 0 {
		return
	}
	m.neutralized.Add(ctx, int64(count), metric.WithAttributes(attribute.String("rule", rule)))
}

func (m *metricsImpl) RecordValidationFailure(ctx context.Context, field string) {
	m.validation.Add(ctx, 1, metric.WithAttributes(attribute.String("field", field)))
}

type noopMetrics struct{}

// NopMetrics returns a Metrics implementation that records nothing.
func NopMetrics() Metrics { return noopMetrics{} }

func (noopMetrics) RecordExecution(context.Context, OperationMeta, time.Duration, error) {}
func (noopMetrics) RecordCacheLookup(context.Context, string, bool)                      {}
func (noopMetrics) RecordCacheEviction(context.Context, string)                          {}
func (noopMetrics) RecordRateLimit(context.Context, string, bool)                        {}
func (noopMetrics) RecordWriteDenial(context.Context, string)                            {}
func (noopMetrics) RecordNeutralized(context.Context, string, int)                       {}
func (noopMetrics) RecordValidationFailure(context.Context, string)                      {}
