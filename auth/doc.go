// Package auth identifies callers and decides which chat rooms they may write
// to.
//
// Authentication (API key, JWT, or an anonymous fallback) yields an Identity
// whose principal keys per-caller rate limiting. Authorization of mutating
// operations is done by WriteGuard, an allow/deny list over room identifiers
// in which the deny list is an absolute veto.
package auth
