package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig configures bearer token validation.
type JWTConfig struct {
	Issuer   string // required iss claim, optional
	Audience string // required aud claim, optional

	// HeaderName defaults to "Authorization", TokenPrefix to "Bearer ".
	HeaderName  string
	TokenPrefix string

	// ValidMethods defaults to HS256, HS384 and HS512.
	ValidMethods []string

	// Leeway tolerates clock skew on exp and nbf.
	Leeway time.Duration
}

// CallerClaims are the claims a chatguard token carries. The subject is the
// caller principal.
type CallerClaims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles,omitempty"`
}

// KeyProvider retrieves signing keys for JWT validation.
type KeyProvider interface {
	GetKey(ctx context.Context, keyID string) (any, error)
}

// StaticKeyProvider returns one key for every kid.
type StaticKeyProvider struct {
	key []byte
}

func NewStaticKeyProvider(key []byte) *StaticKeyProvider {
	return &StaticKeyProvider{key: key}
}

func (p *StaticKeyProvider) GetKey(context.Context, string) (any, error) {
	return p.key, nil
}

// JWTAuthenticator validates bearer tokens and maps CallerClaims to an
// Identity.
type JWTAuthenticator struct {
	header string
	prefix string
	keys   KeyProvider
	parser *jwt.Parser
}

func NewJWTAuthenticator(config JWTConfig, keys KeyProvider) *JWTAuthenticator {
	a := &JWTAuthenticator{header: config.HeaderName, prefix: config.TokenPrefix, keys: keys}
	if a.header == "" {
		a.header = "Authorization"
	}
	if a.prefix == "" {
		a.prefix = "Bearer "
	}
	methods := config.ValidMethods
	if len(methods) == 0 {
		methods = []string{"HS256", "HS384", "HS512"}
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods(methods), jwt.WithLeeway(config.Leeway)}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	if config.Audience != "" {
		opts = append(opts, jwt.WithAudience(config.Audience))
	}
	a.parser = jwt.NewParser(opts...)
	return a
}

func (a *JWTAuthenticator) Name() string { return "jwt" }

// Supports reports whether the header carries the token prefix.
func (a *JWTAuthenticator) Supports(_ context.Context, req *AuthRequest) bool {
	return strings.HasPrefix(req.GetHeader(a.header), a.prefix)
}

func (a *JWTAuthenticator) Authenticate(ctx context.Context, req *AuthRequest) (*AuthResult, error) {
	raw, found := strings.CutPrefix(req.GetHeader(a.header), a.prefix)
	raw = strings.TrimSpace(raw)
	if !found || raw == "" {
		return AuthFailure(ErrMissingCredentials, a.Name()), nil
	}

	var claims CallerClaims
	_, err := a.parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		return a.keys.GetKey(ctx, kid)
	})
	if err != nil {
		return AuthFailure(classifyJWTError(err), a.Name()), nil
	}
	if claims.Subject == "" {
		return AuthFailure(ErrInvalidCredentials, a.Name()), nil
	}

	id := &Identity{
		Principal: claims.Subject,
		Roles:     claims.Roles,
		Method:    AuthMethodJWT,
		Claims:    map[string]any{"iss": claims.Issuer},
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	if claims.ID != "" {
		id.Claims["jti"] = claims.ID
	}
	return AuthSuccess(id), nil
}

func classifyJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed
	default:
		return ErrInvalidCredentials
	}
}

// TokenSpec describes a token to mint.
type TokenSpec struct {
	Principal string
	Issuer    string
	Audience  string
	Roles     []string
	TTL       time.Duration
}

// SignHS256 mints an HS256 token described by t. The CLI uses it to issue local
// test credentials.
func SignHS256(secret []byte, t TokenSpec) (string, error) {
	now := time.Now()
	claims := CallerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   t.Principal,
			Issuer:    t.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.TTL)),
		},
		Roles: t.Roles,
	}
	if t.Audience != "" {
		claims.Audience = jwt.ClaimStrings{t.Audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

var (
	_ Authenticator = (*JWTAuthenticator)(nil)
	_ KeyProvider   = (*StaticKeyProvider)(nil)
)
