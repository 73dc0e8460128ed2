package ratelimit

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for rate limiting.
var (
	// ErrRateLimited indicates a call was denied because its quota is exhausted.
	ErrRateLimited = errors.New("ratelimit: rate limit exceeded")

	// ErrInvalidConfig indicates a limiter configuration that can never admit
	// a call or never expire one.
	ErrInvalidConfig = errors.New("ratelimit: invalid configuration")
)

// LimitError describes a denied call.
// It matches ErrRateLimited with errors.Is.
type LimitError struct {
	Policy     string
	Key        string
	Limit      int
	RetryAfter time.Duration
	ResetAt    time.Time
}

func (e *LimitError) Error() string {
	if e.Policy != "" {
		return fmt.Sprintf("ratelimit: %s limit of %d exceeded, retry after %s", e.Policy, e.Limit, e.RetryAfter)
	}
	return fmt.Sprintf("ratelimit: limit of %d exceeded, retry after %s", e.Limit, e.RetryAfter)
}

// Is reports whether target is ErrRateLimited.
func (e *LimitError) Is(target error) bool {
	return target == ErrRateLimited
}
