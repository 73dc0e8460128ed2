package cache

import (
	"errors"
	"time"
)

// Sentinel errors for cache operations.
var (
	ErrNilCache      = errors.New("cache: cache is nil")
	ErrInvalidConfig = errors.New("cache: invalid configuration")
)

// Cache is the interface for caching operation results.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: Get never errors; it returns (zero, false) on miss or expiry.
// - Ordering: Has must not change recency.
type Cache[V any] interface {
	// Get retrieves a cached value and marks it most recently used.
	Get(key string) (V, bool)

	// Set stores a value, evicting the least recently used entry when full.
	Set(key string, value V)

	// Delete removes a cached value. Reports whether the key was present.
	Delete(key string) bool

	// Has reports whether a live entry exists without touching recency.
	Has(key string) bool
}

// Stats is a point-in-time snapshot of cache state.
type Stats struct {
	Size      int
	MaxSize   int
	TTL       time.Duration
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Expired   uint64
}

// EvictReason says why an entry left the cache without an explicit Delete.
type EvictReason string

const (
	EvictCapacity EvictReason = "capacity"
	EvictExpired  EvictReason = "expired"
)
