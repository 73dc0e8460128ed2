package auth

import (
	"context"
	"net/http"
)

type contextKey int

const (
	identityKey contextKey = iota
	headersKey
)

// WithIdentity returns a new context with the given identity attached.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext retrieves the identity from the context.
// Returns nil if no identity is present.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey).(*Identity)
	return id
}

// PrincipalFromContext retrieves the principal from the context.
// Returns empty string if no identity is present.
func PrincipalFromContext(ctx context.Context) string {
	if id := IdentityFromContext(ctx); id != nil {
		return id.Principal
	}
	return ""
}

// WithHeaders returns a new context carrying request headers for
// authenticators to read credentials from.
func WithHeaders(ctx context.Context, headers http.Header) context.Context {
	return context.WithValue(ctx, headersKey, headers)
}

// HeadersFromContext retrieves request headers from the context.
// Returns nil if no headers are present.
func HeadersFromContext(ctx context.Context) http.Header {
	h, _ := ctx.Value(headersKey).(http.Header)
	return h
}

// WithAuthHeaders is HTTP middleware that copies request headers into the
// context so the guard pipeline can authenticate the caller.
//
// Usage:
//
//	mux.Handle("/v1/check", auth.WithAuthHeaders(checkHandler))
func WithAuthHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithHeaders(r.Context(), r.Header)))
	})
}
