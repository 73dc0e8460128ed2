package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonwraymond/chatguard/cache"
)

type stubCache cache.Stats

func (s stubCache) Stats() cache.Stats { return cache.Stats(s) }

type stubLimiter map[string]int

func (s stubLimiter) Stats() map[string]int { return s }

func TestStatus_String(t *testing.T) {
	tests := []struct {
		s    Status
		want string
	}{
		{StatusHealthy, "healthy"},
		{StatusDegraded, "degraded"},
		{StatusUnhealthy, "unhealthy"},
		{Status(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}

func TestCacheChecker(t *testing.T) {
	tests := []struct {
		name  string
		stats cache.Stats
		want  Status
	}{
		{"empty", cache.Stats{MaxSize: 500}, StatusHealthy},
		{"below threshold", cache.Stats{Size: 449, MaxSize: 500}, StatusHealthy},
		{"at threshold", cache.Stats{Size: 450, MaxSize: 500}, StatusDegraded},
		{"full", cache.Stats{Size: 500, MaxSize: 500}, StatusDegraded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewCacheChecker(stubCache(tt.stats), CacheCheckerConfig{}).Check(context.Background())
			if got.Status != tt.want {
				t.Errorf("Status = %v, want %v (%s)", got.Status, tt.want, got.Message)
			}
		})
	}
}

func TestCacheChecker_Details(t *testing.T) {
	lru := cache.MustNewLRU[[]byte](cache.Policy{MaxSize: 4, TTL: time.Minute})
	lru.Set("a", []byte("1"))
	lru.Get("a")
	lru.Get("missing")

	got := NewCacheChecker(lru, CacheCheckerConfig{DegradedFill: 0.5}).Check(context.Background())
	if got.Status != StatusHealthy {
		t.Fatalf("Status = %v, want healthy", got.Status)
	}
	if got.Details["hit_ratio"] != 0.5 || got.Details["size"] != 1 {
		t.Errorf("Details = %v", got.Details)
	}
}

func TestCacheChecker_Unconfigured(t *testing.T) {
	got := NewCacheChecker(nil, CacheCheckerConfig{}).Check(context.Background())
	if got.Status != StatusUnhealthy || !errors.Is(got.Error, cache.ErrNilCache) {
		t.Errorf("result = %+v", got)
	}
}

func TestLimiterChecker(t *testing.T) {
	stats := stubLimiter{"api": 3, "write": 2}

	got := NewLimiterChecker(stats, LimiterCheckerConfig{}).Check(context.Background())
	if got.Status != StatusHealthy || got.Details["total"] != 5 {
		t.Errorf("result = %+v", got)
	}

	got = NewLimiterChecker(stats, LimiterCheckerConfig{MaxTrackedKeys: 5}).Check(context.Background())
	if got.Status != StatusDegraded {
		t.Errorf("Status = %v, want degraded", got.Status)
	}
}

func TestCheckers_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, c := range []Checker{
		NewCacheChecker(stubCache{MaxSize: 1}, CacheCheckerConfig{}),
		NewLimiterChecker(stubLimiter{}, LimiterCheckerConfig{}),
	} {
		if got := c.Check(ctx); got.Status != StatusUnhealthy {
			t.Errorf("%s: Status = %v, want unhealthy", c.Name(), got.Status)
		}
	}
}
