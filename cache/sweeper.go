package cache

import (
	"context"
	"time"

	"github.com/jonwraymond/chatguard/observe"
)

// Pruner removes expired entries and reports how many were removed.
type Pruner interface {
	Prune() int
}

// Sweeper prunes a cache on a fixed interval so memory stays bounded even
// when expired keys are never read again.
type Sweeper struct {
	target   Pruner
	interval time.Duration
	logger   observe.Logger
}

// NewSweeper creates a sweeper. A nil logger discards output.
func NewSweeper(target Pruner, interval time.Duration, logger observe.Logger) *Sweeper {
	if logger == nil {
		logger = observe.NopLogger()
	}
	return &Sweeper{
		target:   target,
		interval: interval,
		logger:   logger.WithComponent("cache.sweeper"),
	}
}

// Run prunes every interval until ctx is cancelled. A non-positive interval
// returns immediately.
func (s *Sweeper) Run(ctx context.Context) error {
	if s.target == nil {
		return ErrNilCache
	}
	if s.interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := s.target.Prune(); n > 0 {
				s.logger.Debug(ctx, "pruned expired cache entries", observe.F("removed", n))
			}
		}
	}
}
