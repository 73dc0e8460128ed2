package auth

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// WriteMode describes how the room lists of a WriteGuardConfig were derived.
type WriteMode string

const (
	WriteModeAll       WriteMode = "all"
	WriteModeWhitelist WriteMode = "whitelist"
	WriteModeBlacklist WriteMode = "blacklist"
)

// WriteEnabledEnv is the environment variable that turns writes on.
const WriteEnabledEnv = "CHATGUARD_WRITE_ENABLED"

// WriteGuardConfig configures a WriteGuard.
type WriteGuardConfig struct {
	Enabled   bool      `yaml:"enabled"`
	Mode      WriteMode `yaml:"mode,omitempty"`
	Whitelist []string  `yaml:"whitelist"`
	Blacklist []string  `yaml:"blacklist"`
}

// WriteDecision is the outcome of WriteGuard.CheckWrite.
type WriteDecision struct {
	Allowed bool `json:"allowed"`

	// Reason is a human-readable explanation. Empty when allowed.
	Reason string `json:"reason,omitempty"`

	// Code is CodeWriteDisabled or CodeRoomNotAllowed when denied.
	Code string `json:"code,omitempty"`

	// Matched is the identifier the decision hinged on, if any.
	Matched string `json:"matched,omitempty"`
}

// WriteGuard decides whether a mutating operation may target a room.
//
// Evaluation order:
//  1. writes disabled: deny
//  2. any identifier blacklisted: deny, naming it
//  3. whitelist empty: allow
//  4. any identifier whitelisted: allow
//  5. otherwise deny, listing the whitelist
//
// The blacklist is an absolute veto: a room blacklisted under its name is
// denied even when its ID is whitelisted. A WriteGuard is immutable; build a
// new one to change configuration.
type WriteGuard struct {
	enabled   bool
	mode      WriteMode
	whitelist []string
	blacklist []string
	allowed   map[string]struct{}
	denied    map[string]struct{}
}

// NewWriteGuard creates a guard from cfg. The lists are copied.
func NewWriteGuard(cfg WriteGuardConfig) *WriteGuard {
	g := &WriteGuard{
		enabled:   cfg.Enabled,
		mode:      cfg.Mode,
		whitelist: slices.Clone(cfg.Whitelist),
		blacklist: slices.Clone(cfg.Blacklist),
		allowed:   toSet(cfg.Whitelist),
		denied:    toSet(cfg.Blacklist),
	}
	if g.mode == "" {
		g.mode = inferMode(g.whitelist, g.blacklist)
	}
	return g
}

// CheckWrite evaluates a write to the room identified by targetID and,
// optionally, targetName.
func (g *WriteGuard) CheckWrite(targetID, targetName string) WriteDecision {
	if !g.enabled {
		return WriteDecision{
			Code:   CodeWriteDisabled,
			Reason: fmt.Sprintf("Write operations are disabled. Set %s=true to enable.", WriteEnabledEnv),
		}
	}

	identifiers := []string{targetID}
	if targetName != "" {
		identifiers = append(identifiers, targetName)
	}

	for _, id := range identifiers {
		if _, ok := g.denied[id]; ok {
			return WriteDecision{
				Code:    CodeRoomNotAllowed,
				Matched: id,
				Reason:  fmt.Sprintf("Room %q is in the blacklist and cannot be written to.", id),
			}
		}
	}

	if len(g.allowed) == 0 {
		return WriteDecision{Allowed: true}
	}

	for _, id := range identifiers {
		if _, ok := g.allowed[id]; ok {
			return WriteDecision{Allowed: true, Matched: id}
		}
	}

	return WriteDecision{
		Code:    CodeRoomNotAllowed,
		Matched: targetID,
		Reason:  fmt.Sprintf("Room %q is not in the whitelist. Allowed rooms: %s", targetID, strings.Join(g.whitelist, ", ")),
	}
}

// Enabled reports whether writes are enabled at all.
func (g *WriteGuard) Enabled() bool {
	return g.enabled
}

// Config returns a copy of the guard's configuration.
func (g *WriteGuard) Config() WriteGuardConfig {
	return WriteGuardConfig{
		Enabled:   g.enabled,
		Mode:      g.mode,
		Whitelist: slices.Clone(g.whitelist),
		Blacklist: slices.Clone(g.blacklist),
	}
}

// Name returns "write_guard".
func (g *WriteGuard) Name() string {
	return "write_guard"
}

// Authorize applies CheckWrite to write requests. Other actions are permitted.
func (g *WriteGuard) Authorize(_ context.Context, req *AuthzRequest) error {
	if req.Action != ActionWrite {
		return nil
	}
	d := g.CheckWrite(req.TargetID, req.TargetName)
	if d.Allowed {
		return nil
	}

	subject := ""
	if req.Subject != nil {
		subject = req.Subject.Principal
	}
	return &AuthzError{
		Subject: subject,
		Target:  req.TargetID,
		Action:  req.Action,
		Code:    d.Code,
		Reason:  d.Reason,
		Matched: d.Matched,
	}
}

// ParseWriteRooms derives a write configuration from the raw values of the
// enabled flag and the comma-separated room list.
//
// Writes are enabled only by "true" or "1". With no rooms every room is
// writable. A leading "!" on the first room makes the whole list a
// blacklist; "!" is stripped from every entry.
func ParseWriteRooms(enabled, rooms string) WriteGuardConfig {
	if enabled != "true" && enabled != "1" {
		return WriteGuardConfig{Enabled: false, Mode: WriteModeWhitelist}
	}

	var list []string
	for _, r := range strings.Split(rooms, ",") {
		if r = strings.TrimSpace(r); r != "" {
			list = append(list, r)
		}
	}
	if len(list) == 0 {
		return WriteGuardConfig{Enabled: true, Mode: WriteModeAll}
	}

	isBlacklist := strings.HasPrefix(list[0], "!")
	for i, r := range list {
		list[i] = strings.TrimPrefix(r, "!")
	}

	if isBlacklist {
		return WriteGuardConfig{Enabled: true, Mode: WriteModeBlacklist, Blacklist: list}
	}
	return WriteGuardConfig{Enabled: true, Mode: WriteModeWhitelist, Whitelist: list}
}

func inferMode(whitelist, blacklist []string) WriteMode {
	switch {
	case len(whitelist) > 0:
		return WriteModeWhitelist
	case len(blacklist) > 0:
		return WriteModeBlacklist
	default:
		return WriteModeAll
	}
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}

var _ Authorizer = (*WriteGuard)(nil)
