package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

// counterValue sums every data point of an int64 counter whose attributes
// include match.
func counterValue(t *testing.T, m metricdata.Metrics, match ...attribute.KeyValue) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s is %T, want Sum[int64]", m.Name, m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		matched := true
		for _, kv := range match {
			v, ok := dp.Attributes.Value(kv.Key)
			if !ok || v != kv.Value {
				matched = false
				break
			}
		}
		if matched {
			total += dp.Value
		}
	}
	return total
}

func TestMetrics_RecordExecution(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()
	meta := OperationMeta{Kind: "read", Name: "getRoom"}

	m.RecordExecution(ctx, meta, 5*time.Millisecond, nil)
	m.RecordExecution(ctx, meta, 7*time.Millisecond, errors.New("denied"))

	got := collect(t, reader)
	if v := counterValue(t, got["guard.exec.total"]); v != 2 {
		t.Errorf("guard.exec.total = %d, want 2", v)
	}
	if v := counterValue(t, got["guard.exec.errors"]); v != 1 {
		t.Errorf("guard.exec.errors = %d, want 1", v)
	}
	hist, ok := got["guard.pipeline.duration_ms"].Data.(metricdata.Histogram[float64])
	if !ok || len(hist.DataPoints) != 1 || hist.DataPoints[0].Count != 2 {
		t.Errorf("guard.pipeline.duration_ms = %+v, want one point with count 2", got["guard.pipeline.duration_ms"].Data)
	}
}

func TestMetrics_GuardDecisions(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordCacheLookup(ctx, "getRoom", true)
	m.RecordCacheLookup(ctx, "getRoom", false)
	m.RecordCacheLookup(ctx, "getRoom", false)
	m.RecordCacheEviction(ctx, "capacity")
	m.RecordRateLimit(ctx, "write", true)
	m.RecordRateLimit(ctx, "write", false)
	m.RecordWriteDenial(ctx, "ROOM_NOT_ALLOWED")
	m.RecordNeutralized(ctx, "@all", 3)
	m.RecordNeutralized(ctx, "@here", 0)
	m.RecordValidationFailure(ctx, "roomId")

	got := collect(t, reader)
	tests := []struct {
		name  string
		match []attribute.KeyValue
		want  int64
	}{
		{"guard.cache.hits", nil, 1},
		{"guard.cache.misses", nil, 2},
		{"guard.cache.evictions", []attribute.KeyValue{attribute.String("reason", "capacity")}, 1},
		{"guard.ratelimit.decisions", []attribute.KeyValue{attribute.Bool("allowed", false)}, 1},
		{"guard.ratelimit.decisions", []attribute.KeyValue{attribute.String("guard.policy", "write")}, 2},
		{"guard.write.denials", []attribute.KeyValue{attribute.String("code", "ROOM_NOT_ALLOWED")}, 1},
		{"guard.sanitize.neutralized", nil, 3},
		{"guard.validate.failures", []attribute.KeyValue{attribute.String("field", "roomId")}, 1},
	}
	for _, tt := range tests {
		metric, ok := got[tt.name]
		if !ok {
			t.Errorf("%s not recorded", tt.name)
			continue
		}
		if v := counterValue(t, metric, tt.match...); v != tt.want {
			t.Errorf("%s%v = %d, want %d", tt.name, tt.match, v, tt.want)
		}
	}
}

func TestNopMetrics_NoPanic(t *testing.T) {
	m := NopMetrics()
	ctx := context.Background()
	m.RecordExecution(ctx, OperationMeta{Name: "noop"}, time.Millisecond, nil)
	m.RecordCacheLookup(ctx, "noop", true)
	m.RecordCacheEviction(ctx, "expired")
	m.RecordRateLimit(ctx, "api", false)
	m.RecordWriteDenial(ctx, "WRITE_DISABLED")
	m.RecordNeutralized(ctx, "javascript:", 1)
	m.RecordValidationFailure(ctx, "query")
}
