package auth

import (
	"slices"
	"time"
)

// AuthMethod indicates how authentication was performed.
type AuthMethod string

const (
	AuthMethodJWT       AuthMethod = "jwt"
	AuthMethodAPIKey    AuthMethod = "api_key"
	AuthMethodAnonymous AuthMethod = "anonymous"
)

// AnonymousPrincipal is the principal of unauthenticated callers. All of them
// share one rate-limit bucket.
const AnonymousPrincipal = "anonymous"

// Identity represents an authenticated caller.
type Identity struct {
	// Principal is the unique identifier (e.g., user ID, key owner).
	Principal string

	// Roles are the roles carried by the credential.
	Roles []string

	// Method indicates how authentication was performed.
	Method AuthMethod

	// Claims contains the raw claims from the token.
	Claims map[string]any

	// ExpiresAt is when this identity expires.
	ExpiresAt time.Time
}

// HasRole checks if the identity has a specific role.
func (id *Identity) HasRole(role string) bool {
	return slices.Contains(id.Roles, role)
}

// IsAnonymous returns true if this is an anonymous identity.
func (id *Identity) IsAnonymous() bool {
	return id.Method == AuthMethodAnonymous || id.Principal == ""
}

// RateKey returns the key the caller's quota is tracked under.
func (id *Identity) RateKey() string {
	if id == nil || id.IsAnonymous() {
		return AnonymousPrincipal
	}
	return string(id.Method) + ":" + id.Principal
}

// AnonymousIdentity creates a default anonymous identity.
func AnonymousIdentity() *Identity {
	return &Identity{
		Principal: AnonymousPrincipal,
		Method:    AuthMethodAnonymous,
		Claims:    make(map[string]any),
	}
}
