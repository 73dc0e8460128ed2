package ratelimit

import (
	"fmt"
	"maps"
	"time"
)

// Policy names with built-in defaults.
const (
	PolicyAPI    = "api"
	PolicySearch = "search"
	PolicyWrite  = "write"
	PolicyHeavy  = "heavy"
)

// DefaultWindow is the look-back window of every built-in policy.
const DefaultWindow = time.Minute

// Config configures a Limiter.
type Config struct {
	// MaxRequests is the number of calls admitted per key within Window.
	MaxRequests int `yaml:"max_requests"`

	// Window is the length of the trailing interval calls are counted over.
	Window time.Duration `yaml:"window"`

	// KeyPrefix namespaces keys as "<prefix>:<key>". Optional.
	KeyPrefix string `yaml:"-"`
}

// Validate rejects configurations that indicate misconfiguration.
func (c Config) Validate() error {
	if c.MaxRequests <= 0 {
		return fmt.Errorf("%w: max requests must be positive, got %d", ErrInvalidConfig, c.MaxRequests)
	}
	if c.Window <= 0 {
		return fmt.Errorf("%w: window must be positive, got %s", ErrInvalidConfig, c.Window)
	}
	return nil
}

// Within reports whether c admits no more calls per unit of time than o.
func (c Config) Within(o Config) bool {
	return int64(c.MaxRequests)*int64(o.Window) <= int64(o.MaxRequests)*int64(c.Window)
}

// DefaultPolicies returns the built-in policy table.
// api is the most permissive, then search, then write; heavy is the strictest.
func DefaultPolicies() map[string]Config {
	return map[string]Config{
		PolicyAPI:    {MaxRequests: 100, Window: DefaultWindow},
		PolicySearch: {MaxRequests: 30, Window: DefaultWindow},
		PolicyWrite:  {MaxRequests: 20, Window: DefaultWindow},
		PolicyHeavy:  {MaxRequests: 10, Window: DefaultWindow},
	}
}

// mergePolicies overlays overrides on the defaults.
func mergePolicies(overrides map[string]Config) map[string]Config {
	merged := DefaultPolicies()
	maps.Copy(merged, overrides)
	return merged
}
