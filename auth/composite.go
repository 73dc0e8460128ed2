package auth

import "context"

// CompositeAuthenticator tries its authenticators in order and stops at the
// first success. The resulting principal keys the caller's rate limits.
type CompositeAuthenticator struct {
	// Authenticators is the ordered list of authenticators to try.
	Authenticators []Authenticator

	// AllowAnonymous admits requests that carry no credentials any
	// authenticator recognizes as the anonymous caller. Requests carrying
	// credentials that fail validation are never downgraded to anonymous.
	AllowAnonymous bool
}

// NewCompositeAuthenticator creates a composite authenticator.
func NewCompositeAuthenticator(auths ...Authenticator) *CompositeAuthenticator {
	return &CompositeAuthenticator{Authenticators: auths}
}

func (c *CompositeAuthenticator) Name() string { return "composite" }

// Supports returns true if any authenticator supports the request, or if
// anonymous callers are allowed.
func (c *CompositeAuthenticator) Supports(ctx context.Context, req *AuthRequest) bool {
	if c.AllowAnonymous {
		return true
	}
	for _, auth := range c.Authenticators {
		if auth.Supports(ctx, req) {
			return true
		}
	}
	return false
}

// Authenticate returns the first success. When credentials were presented
// but none validated, the last failure is returned; anonymous fallback only
// applies to requests no authenticator recognized.
func (c *CompositeAuthenticator) Authenticate(ctx context.Context, req *AuthRequest) (*AuthResult, error) {
	var failed *AuthResult
	for _, a := range c.Authenticators {
		if !a.Supports(ctx, req) {
			continue
		}
		res, err := a.Authenticate(ctx, req)
		switch {
		case err != nil:
			return nil, err
		case res.Authenticated:
			return res, nil
		}
		failed = res
	}

	if failed != nil {
		return failed, nil
	}
	if c.AllowAnonymous {
		return AuthSuccess(AnonymousIdentity()), nil
	}
	return AuthFailure(ErrMissingCredentials, ""), nil
}

var _ Authenticator = (*CompositeAuthenticator)(nil)
