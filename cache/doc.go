// Package cache provides the response cache consulted before read operations
// reach the chat service.
//
// It provides a size-bounded LRU with time-based expiry, deterministic key
// derivation from an operation name and its parameters, a read-through
// middleware that never caches errors or mutating operations, and a Sweeper
// that prunes expired entries on a timer.
package cache
