package sanitize

import (
	"regexp"
	"strings"
)

// ZeroWidthSpace is the separator inserted into neutralized tokens.
const ZeroWidthSpace = "\u200b"

// Kind classifies a rule.
type Kind string

const (
	KindMention Kind = "mention"
	KindURL     Kind = "url"
)

// Rule describes one neutralization pattern.
type Rule struct {
	// Name is reported in Result.Neutralized, e.g. "@all" or "javascript:".
	Name string

	// Kind selects whether configuration can disable the rule.
	Kind Kind

	// Split is the byte offset within a match where ZeroWidthSpace is
	// inserted.
	Split int

	pattern *regexp.Regexp
}

// Match reports whether text contains a live occurrence of the rule.
func (r Rule) Match(text string) bool {
	return r.pattern.MatchString(text)
}

// apply neutralizes every occurrence. Case is preserved.
func (r Rule) apply(text string) string {
	return r.pattern.ReplaceAllStringFunc(text, func(m string) string {
		return m[:r.Split] + ZeroWidthSpace + m[r.Split:]
	})
}

func mentionRule(name string) Rule {
	return Rule{
		Name:    name,
		Kind:    KindMention,
		Split:   1,
		pattern: regexp.MustCompile(`(?i)` + regexp.QuoteMeta(name) + `\b`),
	}
}

// Compiled once; rules hold no per-call state.
var (
	mentionRules = []Rule{
		mentionRule("@all"),
		mentionRule("@here"),
		mentionRule("@channel"),
		mentionRule("@everyone"),
	}

	urlRules = []Rule{
		{Name: "javascript:", Kind: KindURL, Split: len("javascript"), pattern: regexp.MustCompile(`(?i)javascript:`)},
		{Name: "data:", Kind: KindURL, Split: len("data"), pattern: regexp.MustCompile(`(?i)data:text/html`)},
	}
)

// MentionRules returns the mass-notification rules in evaluation order.
func MentionRules() []Rule {
	return append([]Rule(nil), mentionRules...)
}

// URLRules returns the URL-scheme rules in evaluation order.
func URLRules() []Rule {
	return append([]Rule(nil), urlRules...)
}

// MentionNames lists the names accepted in Config.BlockedMentions.
func MentionNames() []string {
	names := make([]string, len(mentionRules))
	for i, r := range mentionRules {
		names[i] = r.Name
	}
	return names
}

// normalizeMention maps "ALL", "all" and "@All" to "@all".
func normalizeMention(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ""
	}
	if !strings.HasPrefix(name, "@") {
		name = "@" + name
	}
	return name
}
