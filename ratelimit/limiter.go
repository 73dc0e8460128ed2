package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/jonwraymond/chatguard/observe"
)

// Result is the outcome of a Check or Peek.
type Result struct {
	// Allowed reports whether the call fits within the quota.
	Allowed bool

	// Remaining is how many more calls the key may make in the current window.
	Remaining int

	// ResetAt is when the oldest counted call leaves the window.
	ResetAt time.Time

	// RetryAfter is how long to wait before the next call can be admitted.
	// Zero when Allowed is true.
	RetryAfter time.Duration
}

// Option configures a Limiter.
type Option func(*options)

type options struct {
	now    func() time.Time
	logger observe.Logger
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the logger denials are reported to.
func WithLogger(l observe.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now, logger: observe.NopLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Limiter is a sliding-window rate limiter keyed by caller-chosen strings.
//
// Check is atomic: expiry, comparison and recording happen under one lock,
// so concurrent callers cannot over-admit.
type Limiter struct {
	config Config
	now    func() time.Time
	logger observe.Logger

	mu      sync.Mutex
	records map[string][]time.Time
}

// NewLimiter creates a limiter.
// It returns ErrInvalidConfig if MaxRequests or Window is not positive.
func NewLimiter(config Config, opts ...Option) (*Limiter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	return &Limiter{
		config:  config,
		now:     o.now,
		logger:  o.logger.WithComponent("ratelimit"),
		records: make(map[string][]time.Time),
	}, nil
}

// MustNewLimiter is like NewLimiter but panics on an invalid config.
func MustNewLimiter(config Config, opts ...Option) *Limiter {
	l, err := NewLimiter(config, opts...)
	if err != nil {
		panic(err)
	}
	return l
}

// Check evaluates key against the quota and records the call if it is allowed.
func (l *Limiter) Check(key string) Result {
	fullKey := l.fullKey(key)
	now := l.now()

	l.mu.Lock()
	stamps := l.prune(l.records[fullKey], now)
	result := l.evaluate(stamps, now)
	if result.Allowed {
		stamps = append(stamps, now)
		result.Remaining = l.config.MaxRequests - len(stamps)
	}
	l.records[fullKey] = stamps
	l.mu.Unlock()

	if !result.Allowed {
		l.logger.Debug(context.Background(), "rate limit exceeded",
			observe.F("key", fullKey),
			observe.F("max_requests", l.config.MaxRequests),
			observe.F("retry_after_ms", result.RetryAfter.Milliseconds()),
		)
	}
	return result
}

// Peek evaluates key against the quota without recording anything.
func (l *Limiter) Peek(key string) Result {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	stamps, ok := l.records[l.fullKey(key)]
	if !ok {
		return Result{
			Allowed:   true,
			Remaining: l.config.MaxRequests,
			ResetAt:   now.Add(l.config.Window),
		}
	}
	// prune reslices without writing, so the stored record is untouched.
	return l.evaluate(l.prune(stamps, now), now)
}

// Reset forgets every call recorded for key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	delete(l.records, l.fullKey(key))
	l.mu.Unlock()
}

// ResetAll forgets every recorded call.
func (l *Limiter) ResetAll() {
	l.mu.Lock()
	l.records = make(map[string][]time.Time)
	l.mu.Unlock()
}

// Cleanup drops expired timestamps and removes keys left with none.
// It returns the number of keys removed.
func (l *Limiter) Cleanup() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, stamps := range l.records {
		stamps = l.prune(stamps, now)
		if len(stamps) == 0 {
			delete(l.records, key)
			removed++
			continue
		}
		l.records[key] = stamps
	}
	return removed
}

// Run calls Cleanup every interval until ctx is cancelled.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) error {
	return runEvery(ctx, interval, func() { l.Cleanup() })
}

// Len returns the number of keys currently tracked.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Config returns the limiter's configuration.
func (l *Limiter) Config() Config {
	return l.config
}

func (l *Limiter) fullKey(key string) string {
	if l.config.KeyPrefix == "" {
		return key
	}
	return l.config.KeyPrefix + ":" + key
}

// prune returns the suffix of stamps still inside the window ending at now.
// Timestamps are appended in call order, so the expired ones form a prefix.
func (l *Limiter) prune(stamps []time.Time, now time.Time) []time.Time {
	windowStart := now.Add(-l.config.Window)
	i := 0
	for i < len(stamps) && !stamps[i].After(windowStart) {
		i++
	}
	if i == len(stamps) {
		return nil
	}
	return stamps[i:]
}

// evaluate computes the result for an already-pruned record without
// recording a new call.
func (l *Limiter) evaluate(stamps []time.Time, now time.Time) Result {
	resetAt := now.Add(l.config.Window)
	if len(stamps) > 0 {
		resetAt = stamps[0].Add(l.config.Window)
	}

	count := len(stamps)
	if count >= l.config.MaxRequests {
		return Result{
			Allowed:    false,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: resetAt.Sub(now),
		}
	}
	return Result{
		Allowed:   true,
		Remaining: l.config.MaxRequests - count,
		ResetAt:   resetAt,
	}
}

func runEvery(ctx context.Context, interval time.Duration, fn func()) error {
	if interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			fn()
		}
	}
}
