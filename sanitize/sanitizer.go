package sanitize

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/jonwraymond/chatguard/observe"
)

// ErrUnknownMention is returned when Config names a mention no rule covers.
var ErrUnknownMention = errors.New("sanitize: unknown mention")

// Config controls which mention rules apply. URL rules are not
// configurable.
type Config struct {
	// BlockMentions turns mention neutralization on or off.
	BlockMentions bool `yaml:"block_mentions"`

	// BlockedMentions restricts neutralization to the named mentions.
	// Empty means every mention rule applies.
	BlockedMentions []string `yaml:"blocked_mentions,omitempty"`
}

// DefaultConfig blocks every known mention.
func DefaultConfig() Config {
	return Config{BlockMentions: true}
}

// Validate rejects mention names that no rule covers.
func (c Config) Validate() error {
	known := MentionNames()
	for _, m := range c.BlockedMentions {
		if !slices.Contains(known, normalizeMention(m)) {
			return fmt.Errorf("%w: %q", ErrUnknownMention, m)
		}
	}
	return nil
}

// Result is the outcome of Sanitize.
type Result struct {
	// Text is the neutralized text.
	Text string `json:"text"`

	// Modified is true when Text differs from the input.
	Modified bool `json:"modified"`

	// Neutralized lists each rule that fired, once, in evaluation order.
	Neutralized []string `json:"neutralized"`
}

// CheckResult is the outcome of Check.
type CheckResult struct {
	HasDangerousPatterns bool     `json:"hasDangerousPatterns"`
	Patterns             []string `json:"patterns"`
}

// Sanitizer applies the active rule set. It is immutable after construction
// and safe for concurrent use.
type Sanitizer struct {
	config Config
	active []Rule
	logger observe.Logger
}

// Option configures a Sanitizer.
type Option func(*Sanitizer)

// WithLogger logs every neutralization at debug level.
func WithLogger(l observe.Logger) Option {
	return func(s *Sanitizer) {
		if l != nil {
			s.logger = l.WithComponent("sanitize")
		}
	}
}

// New builds a sanitizer for cfg.
func New(cfg Config, opts ...Option) (*Sanitizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	blocked := make([]string, 0, len(cfg.BlockedMentions))
	for _, m := range cfg.BlockedMentions {
		blocked = append(blocked, normalizeMention(m))
	}

	s := &Sanitizer{
		config: Config{BlockMentions: cfg.BlockMentions, BlockedMentions: blocked},
		logger: observe.NopLogger(),
	}
	if cfg.BlockMentions {
		for _, r := range mentionRules {
			if len(blocked) == 0 || slices.Contains(blocked, r.Name) {
				s.active = append(s.active, r)
			}
		}
	}
	s.active = append(s.active, urlRules...)

	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// MustNew is like New but panics on an invalid config.
func MustNew(cfg Config, opts ...Option) *Sanitizer {
	s, err := New(cfg, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Sanitize neutralizes every active rule in text.
func (s *Sanitizer) Sanitize(text string) Result {
	out := text
	neutralized := []string{}
	for _, r := range s.active {
		if !r.Match(out) {
			continue
		}
		out = r.apply(out)
		neutralized = append(neutralized, r.Name)
	}

	if len(neutralized) > 0 {
		s.logger.Debug(context.Background(), "neutralized outbound text", observe.F("rules", neutralized))
	}
	return Result{
		Text:        out,
		Modified:    out != text,
		Neutralized: neutralized,
	}
}

// Check reports every known pattern in text without modifying it.
// Detection ignores Config so callers can see what a permissive
// configuration would let through.
func (s *Sanitizer) Check(text string) CheckResult {
	return Check(text)
}

// Config returns a copy of the configuration.
func (s *Sanitizer) Config() Config {
	return Config{
		BlockMentions:   s.config.BlockMentions,
		BlockedMentions: slices.Clone(s.config.BlockedMentions),
	}
}

// ActiveRules returns the names of the rules Sanitize applies.
func (s *Sanitizer) ActiveRules() []string {
	names := make([]string, len(s.active))
	for i, r := range s.active {
		names[i] = r.Name
	}
	return names
}

// Check reports every known mention and URL pattern in text.
func Check(text string) CheckResult {
	patterns := []string{}
	for _, rules := range [][]Rule{mentionRules, urlRules} {
		for _, r := range rules {
			if r.Match(text) {
				patterns = append(patterns, r.Name)
			}
		}
	}
	return CheckResult{
		HasDangerousPatterns: len(patterns) > 0,
		Patterns:             patterns,
	}
}
