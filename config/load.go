package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/chatguard/auth"
	"github.com/jonwraymond/chatguard/ratelimit"
	"github.com/jonwraymond/chatguard/secret"
)

// Environment variables that override file settings.
const (
	EnvWriteEnabled     = auth.WriteEnabledEnv
	EnvWriteRooms       = "CHATGUARD_WRITE_ROOMS"
	EnvBlockMentions    = "CHATGUARD_BLOCK_MENTIONS"
	EnvMaxMessageLength = "CHATGUARD_MAX_MESSAGE_LENGTH"
	EnvCacheTTL         = "CHATGUARD_CACHE_TTL"
	EnvLogLevel         = "CHATGUARD_LOG_LEVEL"
)

// Load reads the YAML file at path over the defaults, resolves secrets,
// applies environment overrides and validates the result. An empty path
// skips the file.
func Load(ctx context.Context, path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := decode(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	resolver, err := secret.DefaultRegistry.Resolver(true)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resolver.Close() }()
	if err := resolveSecrets(ctx, cfg, resolver); err != nil {
		return nil, err
	}

	if err := ApplyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults without touching the environment
// or resolving secrets.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := decode(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	return cfg, nil
}

// decode expands ${VAR} references strictly and rejects unknown keys.
func decode(data []byte, cfg *Config) error {
	expanded, err := secret.ExpandEnvStrict(string(data))
	if err != nil {
		return err
	}

	mode := cfg.Write.Mode
	cfg.Write.Mode = ""

	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	switch {
	case cfg.Write.Mode != "":
	case len(cfg.Write.Whitelist) == 0 && len(cfg.Write.Blacklist) == 0 && !cfg.Write.Enabled:
		cfg.Write.Mode = mode
	default:
		cfg.Write = auth.NewWriteGuard(cfg.Write).Config()
	}

	// Map entries decode into zero values, so a partial policy inherits
	// the missing fields from the built-in table.
	defaults := ratelimit.DefaultPolicies()
	for name, rl := range cfg.RateLimits {
		if rl.Window == 0 {
			rl.Window = ratelimit.DefaultWindow
		}
		if d, ok := defaults[name]; ok && rl.MaxRequests == 0 {
			rl.MaxRequests = d.MaxRequests
		}
		cfg.RateLimits[name] = rl
	}
	return nil
}

func resolveSecrets(ctx context.Context, cfg *Config, r *secret.Resolver) error {
	keys, err := r.ResolveMap(ctx, cfg.Auth.APIKeys)
	if err != nil {
		return fmt.Errorf("config: auth.api_keys: %w", err)
	}
	cfg.Auth.APIKeys = keys

	if cfg.Auth.JWTSecret != "" {
		s, err := r.ResolveValue(ctx, cfg.Auth.JWTSecret)
		if err != nil {
			return fmt.Errorf("config: auth.jwt_secret: %w", err)
		}
		cfg.Auth.JWTSecret = s
	}
	return nil
}

// ApplyEnv overlays CHATGUARD_* variables read through lookup onto cfg.
// Setting either write variable replaces the whole write section.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	enabled, hasEnabled := lookup(EnvWriteEnabled)
	rooms, hasRooms := lookup(EnvWriteRooms)
	if hasEnabled || hasRooms {
		cfg.Write = auth.ParseWriteRooms(enabled, rooms)
	}

	if v, ok := lookup(EnvBlockMentions); ok {
		cfg.Safety.BlockMentions = strings.TrimSpace(v) != "false"
	}

	if v, ok := lookup(EnvMaxMessageLength); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, EnvMaxMessageLength, err)
		}
		cfg.Safety.MaxMessageLength = n
	}

	if v, ok := lookup(EnvCacheTTL); ok {
		ttl, err := parseTTL(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, EnvCacheTTL, err)
		}
		cfg.Cache.TTL = ttl
	}

	if v, ok := lookup(EnvLogLevel); ok {
		cfg.Observe.Logging.Enabled = true
		cfg.Observe.Logging.Level = strings.ToLower(strings.TrimSpace(v))
	}
	return nil
}

// parseTTL accepts a Go duration ("5m") or a bare number of milliseconds.
func parseTTL(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(v)
}
