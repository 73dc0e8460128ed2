// Package observe provides observability primitives for guarded chat
// operations.
//
// It is a pure instrumentation library: no guard decisions, no transport, no
// I/O beyond exporter setup. The guard pipeline wraps each operation with
// Middleware, and the individual guards report their decisions through
// Metrics.
package observe
