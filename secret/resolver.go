package secret

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// RefPrefix marks a value that names a secret instead of containing it.
const RefPrefix = "secretref:"

// Resolver turns "secretref:<provider>:<ref>" values into secrets. Only a
// whole value is treated as a reference; anything else is returned after
// strict environment expansion.
type Resolver struct {
	providers map[string]Provider
	strict    bool
}

// NewResolver creates a resolver. A strict resolver rejects empty secrets.
func NewResolver(strict bool, providers ...Provider) *Resolver {
	r := &Resolver{providers: make(map[string]Provider, len(providers)), strict: strict}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds provider, replacing any with the same name.
func (r *Resolver) Register(provider Provider) {
	if provider != nil {
		r.providers[provider.Name()] = provider
	}
}

// Close closes every provider in name order and returns the first error.
func (r *Resolver) Close() error {
	var first error
	for _, name := range slices.Sorted(maps.Keys(r.providers)) {
		if err := r.providers[name].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// ResolveValue expands ${VAR} references in value, then resolves it if it
// is a secret reference.
func (r *Resolver) ResolveValue(ctx context.Context, value string) (string, error) {
	expanded, err := ExpandEnvStrict(value)
	if err != nil {
		return "", err
	}
	name, ref, ok := ParseSecretRef(expanded)
	if !ok {
		if strings.HasPrefix(expanded, RefPrefix) {
			return "", fmt.Errorf("%w: %q", ErrInvalidRef, expanded)
		}
		return expanded, nil
	}

	var provider Provider
	if r != nil {
		provider = r.providers[name]
	}
	if provider == nil {
		return "", fmt.Errorf("%w: %q", ErrProviderNotRegistered, name)
	}
	secret, err := provider.Resolve(ctx, ref)
	if err != nil {
		return "", err
	}
	if r.strict && secret == "" {
		return "", fmt.Errorf("%w: provider %q", ErrEmptySecret, name)
	}
	return secret, nil
}

// ResolveMap resolves both keys and values. API key maps are keyed by the
// secret itself, so keys may be references too.
func (r *Resolver) ResolveMap(ctx context.Context, input map[string]string) (map[string]string, error) {
	if input == nil {
		return nil, nil
	}
	out := make(map[string]string, len(input))
	for k, v := range input {
		key, err := r.ResolveValue(ctx, k)
		if err != nil {
			return nil, fmt.Errorf("secret: resolve key: %w", err)
		}
		val, err := r.ResolveValue(ctx, v)
		if err != nil {
			return nil, fmt.Errorf("secret: resolve value for %q: %w", v, err)
		}
		out[key] = val
	}
	return out, nil
}

// ParseSecretRef splits "secretref:<provider>:<ref>". The ref may itself
// contain colons.
func ParseSecretRef(value string) (provider, ref string, ok bool) {
	rest, found := strings.CutPrefix(value, RefPrefix)
	if !found {
		return "", "", false
	}
	provider, ref, found = strings.Cut(rest, ":")
	provider, ref = strings.TrimSpace(provider), strings.TrimSpace(ref)
	if !found || provider == "" || ref == "" {
		return "", "", false
	}
	return provider, ref, true
}
