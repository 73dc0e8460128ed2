package auth

import "fmt"

// Config selects and configures the authenticators in front of the guard.
type Config struct {
	// APIKeys maps plaintext API keys to the principal that owns them.
	APIKeys map[string]string `yaml:"api_keys"`

	// JWTSecret enables HMAC-signed bearer tokens when non-empty.
	JWTSecret string `yaml:"jwt_secret"`

	// JWTIssuer is the required iss claim. Optional.
	JWTIssuer string `yaml:"jwt_issuer"`

	// JWTAudience is the required aud claim. Optional.
	JWTAudience string `yaml:"jwt_audience"`

	// AllowAnonymous admits callers without credentials under a shared
	// anonymous quota.
	AllowAnonymous bool `yaml:"allow_anonymous"`
}

// Validate rejects configurations that cannot authenticate anyone.
func (c Config) Validate() error {
	if len(c.APIKeys) == 0 && c.JWTSecret == "" && !c.AllowAnonymous {
		return fmt.Errorf("%w: no authenticator configured and anonymous access disabled", ErrInvalidConfig)
	}
	for key, principal := range c.APIKeys {
		if key == "" || principal == "" {
			return fmt.Errorf("%w: api keys and principals must be non-empty", ErrInvalidConfig)
		}
	}
	if (c.JWTIssuer != "" || c.JWTAudience != "") && c.JWTSecret == "" {
		return fmt.Errorf("%w: jwt issuer or audience set without jwt secret", ErrInvalidConfig)
	}
	return nil
}

// Build assembles the authenticator chain described by cfg: API keys first,
// then JWT, then the anonymous fallback.
func Build(cfg Config) (*CompositeAuthenticator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var chain []Authenticator
	if len(cfg.APIKeys) > 0 {
		chain = append(chain, NewAPIKeyAuthenticator(APIKeyConfig{}, NewKeyRing(cfg.APIKeys)))
	}
	if cfg.JWTSecret != "" {
		chain = append(chain, NewJWTAuthenticator(JWTConfig{
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
		}, NewStaticKeyProvider([]byte(cfg.JWTSecret))))
	}

	composite := NewCompositeAuthenticator(chain...)
	composite.AllowAnonymous = cfg.AllowAnonymous
	return composite, nil
}
