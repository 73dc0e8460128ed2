package ratelimit

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Manager maps policy names to independent limiters.
//
// Limiters are created lazily on first use and live for the lifetime of the
// manager: the same name always returns the same *Limiter. Each limiter uses
// its policy name as key prefix.
type Manager struct {
	policies map[string]Config
	opts     []Option

	mu       sync.Mutex
	limiters map[string]*Limiter
}

// NewManager creates a manager.
// Entries in policies override or extend DefaultPolicies. Every entry is
// validated up front so misconfiguration surfaces at startup.
func NewManager(policies map[string]Config, opts ...Option) (*Manager, error) {
	merged := mergePolicies(policies)
	for name, cfg := range merged {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("policy %q: %w", name, err)
		}
	}
	return &Manager{
		policies: merged,
		opts:     opts,
		limiters: make(map[string]*Limiter),
	}, nil
}

// MustNewManager is like NewManager but panics on an invalid policy.
func MustNewManager(policies map[string]Config, opts ...Option) *Manager {
	m, err := NewManager(policies, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

// Limiter returns the limiter for name, creating it on first use.
// Names without a configured policy use the api policy.
func (m *Manager) Limiter(name string) *Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if l, ok := m.limiters[name]; ok {
		return l
	}
	cfg, ok := m.policies[name]
	if !ok {
		cfg = m.policies[PolicyAPI]
	}
	cfg.KeyPrefix = name

	// cfg was validated in NewManager.
	l := MustNewLimiter(cfg, m.opts...)
	m.limiters[name] = l
	return l
}

// LimiterWith returns the limiter for name, creating it with cfg if it does
// not exist yet. An existing limiter is returned unchanged.
func (m *Manager) LimiterWith(name string, cfg Config) (*Limiter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if l, ok := m.limiters[name]; ok {
		return l, nil
	}
	cfg.KeyPrefix = name
	l, err := NewLimiter(cfg, m.opts...)
	if err != nil {
		return nil, fmt.Errorf("policy %q: %w", name, err)
	}
	m.limiters[name] = l
	return l, nil
}

// Check records a call for key under the named policy.
func (m *Manager) Check(policy, key string) Result {
	return m.Limiter(policy).Check(key)
}

// Peek evaluates key under the named policy without recording.
func (m *Manager) Peek(policy, key string) Result {
	return m.Limiter(policy).Peek(key)
}

// CheckAPI checks key against the api policy.
func (m *Manager) CheckAPI(key string) Result { return m.Check(PolicyAPI, key) }

// CheckWrite checks key against the write policy.
func (m *Manager) CheckWrite(key string) Result { return m.Check(PolicyWrite, key) }

// CheckSearch checks key against the search policy.
func (m *Manager) CheckSearch(key string) Result { return m.Check(PolicySearch, key) }

// Allow is Check returning a *LimitError on denial.
func (m *Manager) Allow(policy, key string) error {
	r := m.Check(policy, key)
	if r.Allowed {
		return nil
	}
	return &LimitError{
		Policy:     policy,
		Key:        key,
		Limit:      m.Limiter(policy).Config().MaxRequests,
		RetryAfter: r.RetryAfter,
		ResetAt:    r.ResetAt,
	}
}

// ResetAll clears every limiter's records. Limiters stay registered.
func (m *Manager) ResetAll() {
	for _, l := range m.snapshot() {
		l.ResetAll()
	}
}

// Cleanup runs Cleanup on every limiter and returns the keys removed.
func (m *Manager) Cleanup() int {
	removed := 0
	for _, l := range m.snapshot() {
		removed += l.Cleanup()
	}
	return removed
}

// Run calls Cleanup every interval until ctx is cancelled.
// Limiters created after Run starts are included.
func (m *Manager) Run(ctx context.Context, interval time.Duration) error {
	return runEvery(ctx, interval, func() { m.Cleanup() })
}

// Stats returns the number of tracked keys per instantiated policy.
func (m *Manager) Stats() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := make(map[string]int, len(m.limiters))
	for name, l := range m.limiters {
		stats[name] = l.Len()
	}
	return stats
}

// Policies returns the configured policy names, sorted.
func (m *Manager) Policies() []string {
	names := make([]string, 0, len(m.policies))
	for name := range m.policies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Policy returns the configuration for name and whether it is configured.
func (m *Manager) Policy(name string) (Config, bool) {
	cfg, ok := m.policies[name]
	return cfg, ok
}

func (m *Manager) snapshot() []*Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Limiter, 0, len(m.limiters))
	for _, l := range m.limiters {
		out = append(out, l)
	}
	return out
}
