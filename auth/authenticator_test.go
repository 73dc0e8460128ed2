package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("test-secret-key-at-least-32-bytes!!")

func headers(kv ...string) http.Header {
	h := http.Header{}
	for i := 0; i+1 < len(kv); i += 2 {
		h.Set(kv[i], kv[i+1])
	}
	return h
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return s
}

func TestAPIKeyAuthenticator(t *testing.T) {
	store := NewKeyRing(map[string]string{"k-alice": "alice"})
	store.Register("k-expired", APIKey{
		ID:        "old",
		Principal: "bob",
		ExpiresAt: time.Now().Add(-time.Hour),
	})
	a := NewAPIKeyAuthenticator(APIKeyConfig{}, store)
	ctx := context.Background()

	tests := []struct {
		name      string
		header    string
		wantOK    bool
		wantErr   error
		principal string
	}{
		{"valid", "k-alice", true, nil, "alice"},
		{"valid with whitespace", "  k-alice ", true, nil, "alice"},
		{"unknown", "nope", false, ErrInvalidCredentials, ""},
		{"expired", "k-expired", false, ErrTokenExpired, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &AuthRequest{Headers: headers("X-API-Key", tt.header)}
			if !a.Supports(ctx, req) {
				t.Fatal("Supports() = false")
			}
			res, err := a.Authenticate(ctx, req)
			if err != nil {
				t.Fatalf("Authenticate() error = %v", err)
			}
			if res.Authenticated != tt.wantOK {
				t.Fatalf("Authenticated = %v, want %v", res.Authenticated, tt.wantOK)
			}
			if tt.wantOK {
				if res.Identity.Principal != tt.principal || res.Identity.Method != AuthMethodAPIKey {
					t.Errorf("Identity = %+v", res.Identity)
				}
				return
			}
			if !errors.Is(res.Error, tt.wantErr) {
				t.Errorf("Error = %v, want %v", res.Error, tt.wantErr)
			}
		})
	}

	if a.Supports(ctx, &AuthRequest{}) {
		t.Error("Supports() without header = true")
	}
	if store.Len() != 2 {
		t.Errorf("store.Len() = %d, want 2", store.Len())
	}
	if !store.Revoke("k-expired") || store.Revoke("k-expired") {
		t.Error("Revoke() should succeed once")
	}
	if store.Len() != 1 {
		t.Errorf("store.Len() after Revoke = %d, want 1", store.Len())
	}
}

func TestJWTAuthenticator(t *testing.T) {
	a := NewJWTAuthenticator(JWTConfig{
		Issuer:   "chatguard",
		Audience: "chat",
	}, NewStaticKeyProvider(testSecret))
	ctx := context.Background()
	future := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name    string
		token   string
		wantOK  bool
		wantErr error
	}{
		{
			name:   "valid",
			token:  signToken(t, jwt.MapClaims{"sub": "alice", "iss": "chatguard", "aud": "chat", "exp": future, "roles": []any{"writer"}}),
			wantOK: true,
		},
		{
			name:    "expired",
			token:   signToken(t, jwt.MapClaims{"sub": "alice", "iss": "chatguard", "aud": "chat", "exp": time.Now().Add(-time.Hour).Unix()}),
			wantErr: ErrTokenExpired,
		},
		{
			name:    "wrong issuer",
			token:   signToken(t, jwt.MapClaims{"sub": "alice", "iss": "other", "aud": "chat", "exp": future}),
			wantErr: ErrInvalidCredentials,
		},
		{
			name:    "wrong audience",
			token:   signToken(t, jwt.MapClaims{"sub": "alice", "iss": "chatguard", "aud": "other", "exp": future}),
			wantErr: ErrInvalidCredentials,
		},
		{
			name:    "missing subject",
			token:   signToken(t, jwt.MapClaims{"iss": "chatguard", "aud": "chat", "exp": future}),
			wantErr: ErrInvalidCredentials,
		},
		{
			name:    "garbage",
			token:   "not.a.jwt",
			wantErr: ErrTokenMalformed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &AuthRequest{Headers: headers("Authorization", "Bearer "+tt.token)}
			if !a.Supports(ctx, req) {
				t.Fatal("Supports() = false")
			}
			res, err := a.Authenticate(ctx, req)
			if err != nil {
				t.Fatalf("Authenticate() error = %v", err)
			}
			if res.Authenticated != tt.wantOK {
				t.Fatalf("Authenticated = %v, want %v (err %v)", res.Authenticated, tt.wantOK, res.Error)
			}
			if tt.wantOK {
				id := res.Identity
				if id.Principal != "alice" || !id.HasRole("writer") || id.ExpiresAt.IsZero() {
					t.Errorf("Identity = %+v", id)
				}
				return
			}
			if !errors.Is(res.Error, tt.wantErr) {
				t.Errorf("Error = %v, want %v", res.Error, tt.wantErr)
			}
		})
	}
}

func TestJWTAuthenticator_RejectsOtherKey(t *testing.T) {
	a := NewJWTAuthenticator(JWTConfig{}, NewStaticKeyProvider([]byte("a-completely-different-secret-value")))
	req := &AuthRequest{Headers: headers("Authorization", "Bearer "+signToken(t, jwt.MapClaims{"sub": "alice"}))}

	res, err := a.Authenticate(context.Background(), req)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if res.Authenticated || !errors.Is(res.Error, ErrInvalidCredentials) {
		t.Errorf("result = %+v, want ErrInvalidCredentials", res)
	}
}

func TestSignHS256_RoundTrip(t *testing.T) {
	token, err := SignHS256(testSecret, TokenSpec{
		Principal: "svc-bot",
		Issuer:    "chatguard",
		Audience:  "chat",
		Roles:     []string{"writer"},
		TTL:       time.Minute,
	})
	if err != nil {
		t.Fatalf("SignHS256() error = %v", err)
	}
	a := NewJWTAuthenticator(JWTConfig{Issuer: "chatguard", Audience: "chat"}, NewStaticKeyProvider(testSecret))
	res, _ := a.Authenticate(context.Background(), &AuthRequest{Headers: headers("Authorization", "Bearer "+token)})
	if !res.Authenticated || res.Identity.Principal != "svc-bot" || !res.Identity.HasRole("writer") {
		t.Errorf("result = %+v", res)
	}
}

func TestCompositeAuthenticator(t *testing.T) {
	apiKeys := NewAPIKeyAuthenticator(APIKeyConfig{}, NewKeyRing(map[string]string{"k1": "alice"}))
	jwtAuth := NewJWTAuthenticator(JWTConfig{}, NewStaticKeyProvider(testSecret))
	ctx := context.Background()

	t.Run("first supporting wins", func(t *testing.T) {
		c := NewCompositeAuthenticator(apiKeys, jwtAuth)
		res, err := c.Authenticate(ctx, &AuthRequest{Headers: headers("X-API-Key", "k1")})
		if err != nil || !res.Authenticated || res.Identity.Principal != "alice" {
			t.Errorf("result = %+v, err = %v", res, err)
		}
	})

	t.Run("falls through to jwt", func(t *testing.T) {
		c := NewCompositeAuthenticator(apiKeys, jwtAuth)
		tok := signToken(t, jwt.MapClaims{"sub": "bob"})
		res, _ := c.Authenticate(ctx, &AuthRequest{Headers: headers("Authorization", "Bearer "+tok)})
		if !res.Authenticated || res.Identity.Principal != "bob" {
			t.Errorf("result = %+v", res)
		}
	})

	t.Run("no credentials without anonymous", func(t *testing.T) {
		c := NewCompositeAuthenticator(apiKeys, jwtAuth)
		if c.Supports(ctx, &AuthRequest{}) {
			t.Error("Supports() = true for empty request")
		}
		res, _ := c.Authenticate(ctx, &AuthRequest{})
		if res.Authenticated || !errors.Is(res.Error, ErrMissingCredentials) {
			t.Errorf("result = %+v", res)
		}
	})

	t.Run("anonymous fallback", func(t *testing.T) {
		c := NewCompositeAuthenticator(apiKeys)
		c.AllowAnonymous = true
		res, _ := c.Authenticate(ctx, &AuthRequest{})
		if !res.Authenticated || !res.Identity.IsAnonymous() {
			t.Errorf("result = %+v", res)
		}
	})

	t.Run("bad credentials are not downgraded", func(t *testing.T) {
		c := NewCompositeAuthenticator(apiKeys)
		c.AllowAnonymous = true
		res, _ := c.Authenticate(ctx, &AuthRequest{Headers: headers("X-API-Key", "wrong")})
		if res.Authenticated {
			t.Error("invalid key must not fall back to anonymous")
		}
	})
}

func TestBuild(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
		chain   int
	}{
		{"anonymous only", Config{AllowAnonymous: true}, false, 0},
		{"keys and jwt", Config{APIKeys: map[string]string{"k": "p"}, JWTSecret: "s"}, false, 2},
		{"nothing configured", Config{}, true, 0},
		{"empty principal", Config{APIKeys: map[string]string{"k": ""}}, true, 0},
		{"issuer without secret", Config{AllowAnonymous: true, JWTIssuer: "x"}, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Build(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Build() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("error = %v, want ErrInvalidConfig", err)
				}
				return
			}
			if len(c.Authenticators) != tt.chain {
				t.Errorf("chain length = %d, want %d", len(c.Authenticators), tt.chain)
			}
		})
	}
}

func TestIdentity_RateKey(t *testing.T) {
	tests := []struct {
		id   *Identity
		want string
	}{
		{nil, AnonymousPrincipal},
		{AnonymousIdentity(), AnonymousPrincipal},
		{&Identity{Principal: "alice", Method: AuthMethodJWT}, "jwt:alice"},
		{&Identity{Principal: "alice", Method: AuthMethodAPIKey}, "api_key:alice"},
	}
	for _, tt := range tests {
		if got := tt.id.RateKey(); got != tt.want {
			t.Errorf("RateKey() = %q, want %q", got, tt.want)
		}
	}
}

func TestWithAuthHeaders(t *testing.T) {
	var got string
	h := WithAuthHeaders(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = RequestFromContext(r.Context(), "sendMessage").GetHeader("x-api-key")
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/check", nil)
	req.Header.Set("X-API-Key", "k1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got != "k1" {
		t.Errorf("header = %q, want k1", got)
	}
}

func TestIdentityContext(t *testing.T) {
	ctx := context.Background()
	if IdentityFromContext(ctx) != nil || PrincipalFromContext(ctx) != "" {
		t.Error("empty context should carry no identity")
	}
	ctx = WithIdentity(ctx, &Identity{Principal: "alice"})
	if PrincipalFromContext(ctx) != "alice" {
		t.Errorf("PrincipalFromContext() = %q", PrincipalFromContext(ctx))
	}
}
