package health

import (
	"context"
	"fmt"

	"github.com/jonwraymond/chatguard/cache"
)

// CacheStatser exposes cache counters. *cache.LRU satisfies it.
type CacheStatser interface {
	Stats() cache.Stats
}

// CacheCheckerConfig configures CacheChecker.
type CacheCheckerConfig struct {
	// DegradedFill is the fill ratio at or above which the cache reports
	// degraded. Value should be between 0 and 1. Default: 0.9
	DegradedFill float64
}

// CacheChecker reports cache fill level and hit ratio. A full cache is
// degraded, never unhealthy: it keeps working by evicting.
type CacheChecker struct {
	source CacheStatser
	config CacheCheckerConfig
}

// NewCacheChecker creates a cache checker.
func NewCacheChecker(source CacheStatser, config CacheCheckerConfig) *CacheChecker {
	if config.DegradedFill <= 0 || config.DegradedFill > 1 {
		config.DegradedFill = 0.9
	}
	return &CacheChecker{source: source, config: config}
}

// Name returns "cache".
func (c *CacheChecker) Name() string {
	return "cache"
}

// Check reads the cache counters.
func (c *CacheChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context cancelled", err)
	}
	if c.source == nil {
		return Unhealthy("cache not configured", cache.ErrNilCache)
	}

	s := c.source.Stats()
	fill := 0.0
	if s.MaxSize > 0 {
		fill = float64(s.Size) / float64(s.MaxSize)
	}
	hitRatio := 0.0
	if lookups := s.Hits + s.Misses; lookups > 0 {
		hitRatio = float64(s.Hits) / float64(lookups)
	}

	details := map[string]any{
		"size":      s.Size,
		"max_size":  s.MaxSize,
		"ttl":       s.TTL.String(),
		"hits":      s.Hits,
		"misses":    s.Misses,
		"hit_ratio": hitRatio,
		"evictions": s.Evictions,
		"expired":   s.Expired,
	}

	if fill >= c.config.DegradedFill {
		return Degraded(fmt.Sprintf("cache %.0f%% full", fill*100)).WithDetails(details)
	}
	return Healthy(fmt.Sprintf("cache %.0f%% full", fill*100)).WithDetails(details)
}

// LimiterStatser exposes the number of tracked keys per policy.
// *ratelimit.Manager satisfies it.
type LimiterStatser interface {
	Stats() map[string]int
}

// LimiterCheckerConfig configures LimiterChecker.
type LimiterCheckerConfig struct {
	// MaxTrackedKeys is the total key count at or above which the limiters
	// report degraded. Zero disables the threshold.
	MaxTrackedKeys int
}

// LimiterChecker reports how many caller keys the rate limiters track.
type LimiterChecker struct {
	source LimiterStatser
	config LimiterCheckerConfig
}

// NewLimiterChecker creates a rate limiter checker.
func NewLimiterChecker(source LimiterStatser, config LimiterCheckerConfig) *LimiterChecker {
	return &LimiterChecker{source: source, config: config}
}

// Name returns "ratelimit".
func (l *LimiterChecker) Name() string {
	return "ratelimit"
}

// Check reads the per-policy key counts.
func (l *LimiterChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context cancelled", err)
	}
	if l.source == nil {
		return Unhealthy("rate limiter not configured", ErrCheckFailed)
	}

	stats := l.source.Stats()
	total := 0
	details := make(map[string]any, len(stats)+1)
	for policy, n := range stats {
		details[policy] = n
		total += n
	}
	details["total"] = total

	msg := fmt.Sprintf("tracking %d keys", total)
	if l.config.MaxTrackedKeys > 0 && total >= l.config.MaxTrackedKeys {
		return Degraded(msg).WithDetails(details)
	}
	return Healthy(msg).WithDetails(details)
}

var (
	_ Checker = (*CacheChecker)(nil)
	_ Checker = (*LimiterChecker)(nil)
)
