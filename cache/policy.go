package cache

import (
	"fmt"
	"time"
)

// Policy configures cache capacity and expiry.
type Policy struct {
	// MaxSize is the maximum number of entries. Must be positive.
	MaxSize int

	// TTL is how long an entry stays visible after it was last Set.
	// Zero disables caching; negative is a configuration error.
	TTL time.Duration

	// SweepInterval is how often a Sweeper prunes expired entries.
	// Zero means no periodic sweep.
	SweepInterval time.Duration
}

// DefaultPolicy returns the default caching policy.
// MaxSize: 500, TTL: 5 minutes, SweepInterval: 1 minute
func DefaultPolicy() Policy {
	return Policy{
		MaxSize:       500,
		TTL:           5 * time.Minute,
		SweepInterval: time.Minute,
	}
}

// NoCachePolicy returns a policy that disables caching entirely.
func NoCachePolicy() Policy {
	return Policy{MaxSize: 1}
}

// ShouldCache returns true if caching is enabled by this policy.
func (p Policy) ShouldCache() bool {
	return p.TTL > 0
}

// Validate rejects policies that indicate misconfiguration.
func (p Policy) Validate() error {
	if p.MaxSize <= 0 {
		return fmt.Errorf("%w: max size must be positive, got %d", ErrInvalidConfig, p.MaxSize)
	}
	if p.TTL < 0 {
		return fmt.Errorf("%w: ttl must not be negative, got %s", ErrInvalidConfig, p.TTL)
	}
	if p.SweepInterval < 0 {
		return fmt.Errorf("%w: sweep interval must not be negative, got %s", ErrInvalidConfig, p.SweepInterval)
	}
	return nil
}
