package health

import (
	"context"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// AggregatorConfig configures the health aggregator.
type AggregatorConfig struct {
	// Timeout bounds one check or one CheckAll run. Default: 5 seconds.
	Timeout time.Duration

	// MaxConcurrent limits parallel checks. Zero means no limit.
	MaxConcurrent int
}

type entry struct {
	name    string
	checker Checker
}

// Aggregator runs the registered component checks and folds their results
// into one status. The guard registers its cache and rate limiter here.
type Aggregator struct {
	config  AggregatorConfig
	mu      sync.RWMutex
	entries []entry
}

// NewAggregator creates an aggregator. At most one config is used.
func NewAggregator(config ...AggregatorConfig) *Aggregator {
	a := &Aggregator{}
	if len(config) > 0 {
		a.config = config[0]
	}
	if a.config.Timeout <= 0 {
		a.config.Timeout = 5 * time.Second
	}
	return a
}

// Register adds checker under name. Re-registering a name replaces the
// checker and keeps its position.
func (a *Aggregator) Register(name string, checker Checker) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if i := a.index(name); i >= 0 {
		a.entries[i].checker = checker
		return
	}
	a.entries = append(a.entries, entry{name: name, checker: checker})
}

// Unregister removes the checker under name.
func (a *Aggregator) Unregister(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if i := a.index(name); i >= 0 {
		a.entries = slices.Delete(a.entries, i, i+1)
	}
}

// CheckerNames returns registered names in registration order.
func (a *Aggregator) CheckerNames() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, len(a.entries))
	for i, e := range a.entries {
		names[i] = e.name
	}
	return names
}

// Check runs the named check under the aggregator timeout.
func (a *Aggregator) Check(ctx context.Context, name string) (Result, error) {
	a.mu.RLock()
	i := a.index(name)
	var c Checker
	if i >= 0 {
		c = a.entries[i].checker
	}
	a.mu.RUnlock()

	if c == nil {
		return Result{}, ErrCheckerNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()
	return run(ctx, c), nil
}

// CheckAll runs every check concurrently and returns results by name.
// A check still running at the timeout is reported unhealthy with
// ErrCheckTimeout.
func (a *Aggregator) CheckAll(ctx context.Context) map[string]Result {
	a.mu.RLock()
	entries := slices.Clone(a.entries)
	a.mu.RUnlock()

	results := make(map[string]Result, len(entries))
	if len(entries) == 0 {
		return results
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	if a.config.MaxConcurrent > 0 {
		g.SetLimit(a.config.MaxConcurrent)
	}
	for _, e := range entries {
		g.Go(func() error {
			r := run(ctx, e.checker)
			mu.Lock()
			results[e.name] = r
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// OverallStatus returns the worst status in results. No results is healthy.
func (a *Aggregator) OverallStatus(results map[string]Result) Status {
	worst := StatusHealthy
	for _, r := range results {
		worst = max(worst, r.Status)
	}
	return worst
}

// Report runs every check and returns the combined view served by the
// detailed endpoint.
func (a *Aggregator) Report(ctx context.Context) Report {
	results := a.CheckAll(ctx)
	return Report{
		Status:    a.OverallStatus(results),
		Checks:    results,
		Timestamp: time.Now().UTC(),
	}
}

// Report is the outcome of a full CheckAll run.
type Report struct {
	Status    Status
	Checks    map[string]Result
	Timestamp time.Time
}

// index must be called with a.mu held.
func (a *Aggregator) index(name string) int {
	return slices.IndexFunc(a.entries, func(e entry) bool { return e.name == name })
}

// run executes c, giving up when ctx ends. The checker goroutine is left to
// finish on its own.
func run(ctx context.Context, c Checker) Result {
	start := time.Now()
	done := make(chan Result, 1)
	go func() { done <- c.Check(ctx) }()

	var r Result
	select {
	case r = <-done:
	case <-ctx.Done():
		r = Result{Status: StatusUnhealthy, Message: "check timed out", Error: ErrCheckTimeout}
	}
	r.Duration = time.Since(start)
	if r.Timestamp.IsZero() {
		r.Timestamp = start
	}
	return r
}
