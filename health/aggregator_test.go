package health

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"
)

func fixed(name string, r Result) Checker {
	return NewCheckerFunc(name, func(context.Context) Result { return r })
}

func TestAggregator_CheckAll(t *testing.T) {
	agg := NewAggregator()
	agg.Register("a", fixed("a", Healthy("ok")))
	agg.Register("b", fixed("b", Degraded("slow")))

	results := agg.CheckAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if got := agg.OverallStatus(results); got != StatusDegraded {
		t.Errorf("OverallStatus() = %v, want degraded", got)
	}

	agg.Register("c", fixed("c", Unhealthy("down", ErrCheckFailed)))
	if got := agg.OverallStatus(agg.CheckAll(context.Background())); got != StatusUnhealthy {
		t.Errorf("OverallStatus() = %v, want unhealthy", got)
	}
}

func TestAggregator_Empty(t *testing.T) {
	agg := NewAggregator()
	results := agg.CheckAll(context.Background())
	if len(results) != 0 || agg.OverallStatus(results) != StatusHealthy {
		t.Errorf("empty aggregator = %v", results)
	}
}

func TestAggregator_Timeout(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{Timeout: 20 * time.Millisecond})
	agg.Register("slow", NewCheckerFunc("slow", func(ctx context.Context) Result {
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		return Healthy("late")
	}))

	got := agg.CheckAll(context.Background())["slow"]
	if got.Status != StatusUnhealthy || !errors.Is(got.Error, ErrCheckTimeout) {
		t.Errorf("result = %+v, want timeout", got)
	}
}

func TestAggregator_MaxConcurrent(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{MaxConcurrent: 1})
	for _, name := range []string{"a", "b", "c"} {
		agg.Register(name, fixed(name, Healthy(name)))
	}
	if got := len(agg.CheckAll(context.Background())); got != 3 {
		t.Errorf("len(results) = %d, want 3", got)
	}
}

func TestAggregator_RegisterOrder(t *testing.T) {
	agg := NewAggregator()
	agg.Register("cache", fixed("cache", Healthy("")))
	agg.Register("ratelimit", fixed("ratelimit", Healthy("")))
	agg.Register("cache", fixed("cache", Degraded("")))

	if got, want := agg.CheckerNames(), []string{"cache", "ratelimit"}; !reflect.DeepEqual(got, want) {
		t.Errorf("CheckerNames() = %v, want %v", got, want)
	}

	agg.Unregister("cache")
	if got, want := agg.CheckerNames(), []string{"ratelimit"}; !reflect.DeepEqual(got, want) {
		t.Errorf("CheckerNames() = %v, want %v", got, want)
	}
	if _, err := agg.Check(context.Background(), "cache"); !errors.Is(err, ErrCheckerNotFound) {
		t.Errorf("Check() error = %v, want ErrCheckerNotFound", err)
	}
}

func TestAggregator_CheckSetsDuration(t *testing.T) {
	agg := NewAggregator()
	agg.Register("x", NewCheckerFunc("x", func(context.Context) Result {
		time.Sleep(time.Millisecond)
		return Result{Status: StatusHealthy}
	}))

	got, err := agg.Check(context.Background(), "x")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if got.Duration <= 0 || got.Timestamp.IsZero() {
		t.Errorf("result = %+v, want duration and timestamp set", got)
	}
}

func TestAggregator_Report(t *testing.T) {
	agg := NewAggregator()
	agg.Register("cache", fixed("cache", Degraded("cache 95% full")))
	agg.Register("ratelimit", fixed("ratelimit", Healthy("")))

	report := agg.Report(context.Background())
	if report.Status != StatusDegraded || len(report.Checks) != 2 || report.Timestamp.IsZero() {
		t.Errorf("Report() = %+v", report)
	}

	b, err := json.Marshal(map[string]Status{"s": report.Status})
	if err != nil || string(b) != `{"s":"degraded"}` {
		t.Errorf("marshal = %s, %v", b, err)
	}
}
