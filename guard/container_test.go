package guard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonwraymond/chatguard/auth"
	"github.com/jonwraymond/chatguard/config"
	"github.com/jonwraymond/chatguard/health"
)

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.TTL = -time.Second
	if _, err := New(context.Background(), cfg); !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("New() error = %v, want ErrInvalidConfig", err)
	}
}

func TestNew_DefaultConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Observe.Logging.Enabled = false
	c, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() { _ = c.Close(context.Background()) }()

	if c.WriteGuard().Enabled() {
		t.Error("writes enabled by default")
	}
	if got := c.Sanitizer().ActiveRules(); len(got) != 6 {
		t.Errorf("ActiveRules() = %v, want 4 mention and 2 URL rules", got)
	}
	if c.Cache().Policy().MaxSize != 500 {
		t.Errorf("cache policy = %+v", c.Cache().Policy())
	}
	if c.Config() != cfg {
		t.Error("Config() is not the applied configuration")
	}
}

func TestNewTestContainer_Isolated(t *testing.T) {
	a := NewTestContainer(nil)
	b := NewTestContainer(nil)

	a.Cache().Set("k", []byte("v"))
	a.Limits().CheckAPI("alice")

	if b.Cache().Has("k") {
		t.Error("cache shared between containers")
	}
	if r := b.Limits().Peek("api", "alice"); r.Remaining != 100 {
		t.Errorf("limiter shared between containers: remaining = %d", r.Remaining)
	}
}

func TestNewTestContainer_PanicsOnInvalid(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewTestContainer did not panic")
		}
	}()
	NewTestContainer(func(c *config.Config) { c.Safety.MaxMessageLength = 0 })
}

func TestContainer_Reload(t *testing.T) {
	c := NewTestContainer(nil)
	ctx := context.Background()
	c.Cache().Set("kept", []byte("v"))

	req := &Request{Operation: "sendMessage", RoomID: "GENERAL", Text: "hi @all"}
	if _, err := c.Pipeline().Check(ctx, req); !errors.Is(err, ErrDenied) {
		t.Fatalf("before reload: error = %v, want denial", err)
	}

	next := config.Default()
	next.Observe.Logging.Enabled = false
	next.Write = auth.WriteGuardConfig{Enabled: true, Blacklist: []string{"hr"}}
	next.Safety.BlockMentions = false
	if err := c.Reload(ctx, next); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	d, err := c.Pipeline().Check(ctx, req)
	if err != nil {
		t.Fatalf("after reload: error = %v", err)
	}
	if d.Sanitized || d.Text != "hi @all" {
		t.Errorf("mentions still blocked after reload: %q", d.Text)
	}
	if c.WriteGuard().Config().Mode != auth.WriteModeBlacklist {
		t.Errorf("mode = %q", c.WriteGuard().Config().Mode)
	}
	if !c.Cache().Has("kept") {
		t.Error("reload cleared the cache")
	}
	// The earlier write attempt's quota use survives the reload.
	if d.Remaining != 18 {
		t.Errorf("Remaining = %d, want 18", d.Remaining)
	}
}

func TestContainer_ReloadRejectsInvalid(t *testing.T) {
	c := NewTestContainer(enableWrites())
	before := c.WriteGuard()

	bad := config.Default()
	bad.Safety.BlockedMentions = []string{"@nobody"}
	if err := c.Reload(context.Background(), bad); err == nil {
		t.Fatal("Reload() error = nil")
	}
	if err := c.Reload(context.Background(), nil); !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("Reload(nil) error = %v", err)
	}
	if c.WriteGuard() != before {
		t.Error("write guard replaced by a failed reload")
	}
}

func TestContainer_ReloadAuth(t *testing.T) {
	c := NewTestContainer(nil)
	next := config.Default()
	next.Observe.Logging.Enabled = false
	next.Auth = auth.Config{JWTSecret: "s3cret"}
	if err := c.Reload(context.Background(), next); err != nil {
		t.Fatal(err)
	}
	_, err := c.Pipeline().Check(context.Background(), &Request{Operation: "getMessages"})
	if d, ok := AsDenial(err); !ok || d.Code != CodeUnauthenticated {
		t.Errorf("error = %v, want UNAUTHENTICATED after anonymous access was removed", err)
	}
}

func TestContainer_FixedAuthenticator(t *testing.T) {
	c := NewTestContainer(nil, WithAuthenticator(auth.AnonymousAuthenticator{}))
	next := config.Default()
	next.Auth = auth.Config{JWTSecret: "s3cret"}
	if err := c.Reload(context.Background(), next); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Pipeline().Check(context.Background(), &Request{Operation: "getMessages"}); err != nil {
		t.Errorf("error = %v, want the fixed authenticator to admit", err)
	}
}

func TestContainer_Start(t *testing.T) {
	c := NewTestContainer(func(cfg *config.Config) {
		cfg.Cache.SweepInterval = 5 * time.Millisecond
		cfg.RateLimitCleanupInterval = 5 * time.Millisecond
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return after cancel")
	}
}

func TestContainer_Health(t *testing.T) {
	c := NewTestContainer(nil)
	c.Limits().CheckAPI("alice")

	results := c.Health().CheckAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("CheckAll() = %d results, want 2", len(results))
	}
	if s := c.Health().OverallStatus(results); s != health.StatusHealthy {
		t.Errorf("OverallStatus() = %s", s)
	}
	if got := results["ratelimit"].Details["api"]; got != 1 {
		t.Errorf("ratelimit details api = %v, want 1", got)
	}
}
