package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/jonwraymond/chatguard/auth"
	"github.com/jonwraymond/chatguard/cache"
	"github.com/jonwraymond/chatguard/observe"
	"github.com/jonwraymond/chatguard/ratelimit"
	"github.com/jonwraymond/chatguard/sanitize"
	"github.com/jonwraymond/chatguard/validate"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// DefaultMaxMessageLength is the outbound message limit when none is
// configured.
const DefaultMaxMessageLength = 4000

// Config is the complete guard layer configuration.
type Config struct {
	Server     ServerConfig                `yaml:"server"`
	Cache      CacheConfig                 `yaml:"cache"`
	RateLimits map[string]ratelimit.Config `yaml:"rate_limits"`

	// RateLimitCleanupInterval is how often idle rate-limit keys are
	// dropped. Zero disables the background cleanup.
	RateLimitCleanupInterval time.Duration `yaml:"rate_limit_cleanup_interval"`

	Write   auth.WriteGuardConfig `yaml:"write"`
	Safety  SafetyConfig          `yaml:"safety"`
	Auth    auth.Config           `yaml:"auth"`
	Observe observe.Config        `yaml:"observe"`
}

// ServerConfig configures the decision endpoint.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// CacheConfig configures the read-through cache.
type CacheConfig struct {
	MaxSize       int           `yaml:"max_size"`
	TTL           time.Duration `yaml:"ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`

	// NoCacheOperations are read operations that must always reach the
	// upstream, in addition to every mutating operation.
	NoCacheOperations []string `yaml:"no_cache_operations"`
}

// Policy converts c to a cache policy.
func (c CacheConfig) Policy() cache.Policy {
	return cache.Policy{MaxSize: c.MaxSize, TTL: c.TTL, SweepInterval: c.SweepInterval}
}

// SafetyConfig configures outbound text handling.
type SafetyConfig struct {
	BlockMentions    bool     `yaml:"block_mentions"`
	BlockedMentions  []string `yaml:"blocked_mentions"`
	MaxMessageLength int      `yaml:"max_message_length"`

	// SchemaMode selects lenient or strict upstream response validation.
	SchemaMode validate.Mode `yaml:"schema_mode"`
}

// Sanitize converts s to a sanitizer configuration.
func (s SafetyConfig) Sanitize() sanitize.Config {
	return sanitize.Config{
		BlockMentions:   s.BlockMentions,
		BlockedMentions: slices.Clone(s.BlockedMentions),
	}
}

// Default returns the built-in configuration: writes disabled, every mention
// blocked, anonymous callers admitted, JSON logs at info level.
func Default() *Config {
	policy := cache.DefaultPolicy()
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Cache: CacheConfig{
			MaxSize:       policy.MaxSize,
			TTL:           policy.TTL,
			SweepInterval: policy.SweepInterval,
		},
		RateLimits:               ratelimit.DefaultPolicies(),
		RateLimitCleanupInterval: time.Minute,
		Write:                    auth.ParseWriteRooms("", ""),
		Safety: SafetyConfig{
			BlockMentions:    true,
			BlockedMentions:  sanitize.MentionNames(),
			MaxMessageLength: DefaultMaxMessageLength,
			SchemaMode:       validate.ModeLenient,
		},
		Auth: auth.Config{AllowAnonymous: true},
		Observe: observe.Config{
			ServiceName: "chatguard",
			Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
		},
	}
}

// Validate rejects configurations the guard components cannot be built
// from.
func (c *Config) Validate() error {
	if err := c.Cache.Policy().Validate(); err != nil {
		return fmt.Errorf("%w: cache: %w", ErrInvalidConfig, err)
	}
	for name, rl := range c.RateLimits {
		if err := rl.Validate(); err != nil {
			return fmt.Errorf("%w: rate_limits.%s: %w", ErrInvalidConfig, name, err)
		}
	}
	if c.RateLimitCleanupInterval < 0 {
		return fmt.Errorf("%w: rate_limit_cleanup_interval must not be negative", ErrInvalidConfig)
	}
	if c.Safety.MaxMessageLength <= 0 || c.Safety.MaxMessageLength > validate.MaxMessageTextLength {
		return fmt.Errorf("%w: safety.max_message_length must be in [1, %d], got %d",
			ErrInvalidConfig, validate.MaxMessageTextLength, c.Safety.MaxMessageLength)
	}
	switch c.Safety.SchemaMode {
	case validate.ModeLenient, validate.ModeStrict:
	default:
		return fmt.Errorf("%w: safety.schema_mode must be lenient or strict, got %q", ErrInvalidConfig, c.Safety.SchemaMode)
	}
	if err := c.Safety.Sanitize().Validate(); err != nil {
		return fmt.Errorf("%w: safety: %w", ErrInvalidConfig, err)
	}
	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("%w: auth: %w", ErrInvalidConfig, err)
	}
	if err := c.Observe.Validate(); err != nil {
		return fmt.Errorf("%w: observe: %w", ErrInvalidConfig, err)
	}
	return nil
}
