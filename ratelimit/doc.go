// Package ratelimit provides sliding-window rate limiting for guarded
// operations.
//
// A Limiter counts calls per key over a trailing window: each Check discards
// timestamps older than the window, admits the call only while fewer than
// MaxRequests remain, and reports when the oldest counted call will expire.
// Unlike a fixed-window counter, quota recovers one call at a time, so a
// caller cannot burst twice the limit across a window boundary.
//
// A Manager maps named policies (api, search, write, heavy, or custom) to
// independent limiters created lazily on first use.
package ratelimit
