package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"
)

// DefaultAPIKeyHeader carries the caller's key.
const DefaultAPIKeyHeader = "X-API-Key"

// APIKeyConfig configures the API key authenticator.
type APIKeyConfig struct {
	// HeaderName defaults to DefaultAPIKeyHeader.
	HeaderName string

	// Now overrides the clock used for expiry. Intended for tests.
	Now func() time.Time
}

// APIKey is a registered key. Only its digest is kept.
type APIKey struct {
	ID        string
	Digest    string
	Principal string
	Roles     []string
	ExpiresAt time.Time // zero means never
}

// APIKeyStore resolves key digests to registered keys.
//
// Contract:
// - Lookup returns (nil, nil) for an unknown digest.
// - Concurrency: implementations must be safe for concurrent use.
type APIKeyStore interface {
	Lookup(ctx context.Context, digest string) (*APIKey, error)
}

// DigestAPIKey returns the hex SHA-256 digest a key is stored under.
func DigestAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// KeyRing is an in-memory APIKeyStore.
type KeyRing struct {
	mu   sync.RWMutex
	keys map[string]*APIKey
}

// NewKeyRing registers each plaintext key under the principal it maps to.
func NewKeyRing(keys map[string]string) *KeyRing {
	r := &KeyRing{keys: make(map[string]*APIKey, len(keys))}
	for key, principal := range keys {
		r.Register(key, APIKey{Principal: principal})
	}
	return r
}

// Register stores k under the digest of key. An empty ID is derived from
// the digest.
func (r *KeyRing) Register(key string, k APIKey) {
	k.Digest = DigestAPIKey(key)
	if k.ID == "" {
		k.ID = k.Digest[:12]
	}
	r.mu.Lock()
	r.keys[k.Digest] = &k
	r.mu.Unlock()
}

// Revoke removes key and reports whether it was registered.
func (r *KeyRing) Revoke(key string) bool {
	digest := DigestAPIKey(key)
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.keys[digest]
	delete(r.keys, digest)
	return ok
}

func (r *KeyRing) Lookup(_ context.Context, digest string) (*APIKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.keys[digest], nil
}

// Len returns the number of registered keys.
func (r *KeyRing) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.keys)
}

// APIKeyAuthenticator maps a key header to the principal that owns the key.
// Each principal gets its own rate-limit bucket.
type APIKeyAuthenticator struct {
	header string
	store  APIKeyStore
	now    func() time.Time
}

// NewAPIKeyAuthenticator creates an authenticator backed by store.
func NewAPIKeyAuthenticator(config APIKeyConfig, store APIKeyStore) *APIKeyAuthenticator {
	a := &APIKeyAuthenticator{header: config.HeaderName, store: store, now: config.Now}
	if a.header == "" {
		a.header = DefaultAPIKeyHeader
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a
}

func (a *APIKeyAuthenticator) Name() string { return "api_key" }

// Supports reports whether the key header is present.
func (a *APIKeyAuthenticator) Supports(_ context.Context, req *AuthRequest) bool {
	return req.GetHeader(a.header) != ""
}

func (a *APIKeyAuthenticator) Authenticate(ctx context.Context, req *AuthRequest) (*AuthResult, error) {
	key := strings.TrimSpace(req.GetHeader(a.header))
	if key == "" {
		return AuthFailure(ErrMissingCredentials, a.Name()), nil
	}

	k, err := a.store.Lookup(ctx, DigestAPIKey(key))
	switch {
	case err != nil:
		return nil, err
	case k == nil:
		return AuthFailure(ErrInvalidCredentials, a.Name()), nil
	case !k.ExpiresAt.IsZero() && a.now().After(k.ExpiresAt):
		return AuthFailure(ErrTokenExpired, a.Name()), nil
	}

	return AuthSuccess(&Identity{
		Principal: k.Principal,
		Roles:     k.Roles,
		Method:    AuthMethodAPIKey,
		ExpiresAt: k.ExpiresAt,
		Claims:    map[string]any{"key_id": k.ID},
	}), nil
}

var (
	_ Authenticator = (*APIKeyAuthenticator)(nil)
	_ APIKeyStore   = (*KeyRing)(nil)
)
