package cache

import (
	"context"
	"strings"

	"golang.org/x/sync/singleflight"
)

// ExecutorFunc performs the uncached upstream call for an operation.
type ExecutorFunc func(ctx context.Context, operation string, params any) ([]byte, error)

// SkipRule determines whether to bypass the cache for an operation.
// Returns true if caching should be skipped.
type SkipRule func(operation string) bool

// MutatingPrefixes mark operation names that change remote state and are
// never cached.
var MutatingPrefixes = []string{"send", "post", "update", "delete", "react", "create", "set"}

// DefaultSkipRule skips operations whose name starts with a mutating verb.
// Matching is case-insensitive.
func DefaultSkipRule(operation string) bool {
	lower := strings.ToLower(operation)
	for _, prefix := range MutatingPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// SkipOperations returns a rule that skips the named operations in addition
// to DefaultSkipRule.
func SkipOperations(names ...string) SkipRule {
	skip := make(map[string]struct{}, len(names))
	for _, n := range names {
		skip[n] = struct{}{}
	}
	return func(operation string) bool {
		if _, ok := skip[operation]; ok {
			return true
		}
		return DefaultSkipRule(operation)
	}
}

// LookupFunc observes the outcome of each cache consultation.
type LookupFunc func(ctx context.Context, operation string, hit bool)

// Middleware wraps read operations with a read-through cache.
type Middleware struct {
	cache    Cache[[]byte]
	keyer    Keyer
	policy   Policy
	skipRule SkipRule
	onLookup LookupFunc
	flight   singleflight.Group
}

// NewMiddleware creates a new cache middleware.
// If keyer is nil, DefaultKeyer is used. If skipRule is nil, DefaultSkipRule is used.
func NewMiddleware(cache Cache[[]byte], keyer Keyer, policy Policy, skipRule SkipRule) *Middleware {
	if keyer == nil {
		keyer = NewDefaultKeyer()
	}
	if skipRule == nil {
		skipRule = DefaultSkipRule
	}
	return &Middleware{
		cache:    cache,
		keyer:    keyer,
		policy:   policy,
		skipRule: skipRule,
	}
}

// OnLookup registers an observer for hits and misses.
func (m *Middleware) OnLookup(fn LookupFunc) {
	m.onLookup = fn
}

// Execute runs the operation through the cache.
// On a hit the cached bytes are returned without calling executor. On a miss
// concurrent callers for the same key share one executor call. Errors are
// never cached.
func (m *Middleware) Execute(ctx context.Context, operation string, params any, executor ExecutorFunc) ([]byte, error) {
	if m.cache == nil || !m.policy.ShouldCache() || m.skipRule(operation) {
		return executor(ctx, operation, params)
	}

	key, err := m.keyer.Key(operation, params)
	if err != nil {
		// Key generation failed - execute without caching
		return executor(ctx, operation, params)
	}

	if cached, ok := m.cache.Get(key); ok {
		m.observe(ctx, operation, true)
		return cached, nil
	}
	m.observe(ctx, operation, false)

	v, err, _ := m.flight.Do(key, func() (any, error) {
		result, err := executor(ctx, operation, params)
		if err != nil {
			return result, err
		}
		m.cache.Set(key, result)
		return result, nil
	})
	result, _ := v.([]byte)
	return result, err
}

// Invalidate removes the cached result for an operation and parameter set.
func (m *Middleware) Invalidate(operation string, params any) bool {
	key, err := m.keyer.Key(operation, params)
	if err != nil {
		return false
	}
	return m.cache.Delete(key)
}

func (m *Middleware) observe(ctx context.Context, operation string, hit bool) {
	if m.onLookup != nil {
		m.onLookup(ctx, operation, hit)
	}
}
