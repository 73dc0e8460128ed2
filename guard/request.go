package guard

import (
	"strings"

	"github.com/jonwraymond/chatguard/auth"
	"github.com/jonwraymond/chatguard/cache"
	"github.com/jonwraymond/chatguard/ratelimit"
	"github.com/jonwraymond/chatguard/validate"
)

// Kind classifies an operation for rate limiting and caching.
type Kind string

const (
	KindRead   Kind = "read"
	KindWrite  Kind = "write"
	KindSearch Kind = "search"
	KindHeavy  Kind = "heavy"
)

// Request is one operation a caller wants to run against the chat service.
type Request struct {
	// Operation is the upstream operation name, e.g. "sendMessage".
	Operation string `json:"operation"`

	// Kind classifies the operation. Operations named with a mutating verb
	// (see cache.MutatingPrefixes) are always KindWrite; for the rest Kind
	// defaults to KindSearch for search* operations and KindRead otherwise.
	Kind Kind `json:"kind,omitempty"`

	// Policy is the rate-limit policy. Defaults from Kind: write, search and
	// heavy map to the policy of the same name, read maps to api. It must
	// name a configured policy, and on a write it may only be one that
	// admits no more calls than the write policy.
	Policy string `json:"policy,omitempty"`

	// RoomID is the target room. Required for writes.
	RoomID string `json:"roomId,omitempty"`

	// RoomName is the room's display name, checked by the write guard
	// alongside RoomID.
	RoomName string `json:"roomName,omitempty"`

	// Text is outbound message text. It is length-checked and sanitized on
	// writes.
	Text string `json:"text,omitempty"`

	// Params are the remaining operation parameters. Known keys (messageId,
	// threadId, userId, username, query, emoji, limit, offset) are
	// validated and normalized. The keys text, roomId and roomName are
	// rejected; use the fields above. Other keys pass through, except that
	// on writes they must be scalars and strings are sanitized like Text.
	Params map[string]any `json:"params,omitempty"`

	// Schema, when set, validates the upstream response of a read.
	Schema validate.Checker `json:"-"`
}

func (r *Request) kind() Kind {
	if cache.DefaultSkipRule(r.Operation) {
		return KindWrite
	}
	if r.Kind != "" {
		return r.Kind
	}
	if strings.HasPrefix(strings.ToLower(r.Operation), "search") {
		return KindSearch
	}
	return KindRead
}

func (k Kind) valid() bool {
	switch k {
	case KindRead, KindWrite, KindSearch, KindHeavy:
		return true
	}
	return false
}

func (r *Request) policy(k Kind) string {
	if r.Policy != "" {
		return r.Policy
	}
	return defaultPolicy(k)
}

func defaultPolicy(k Kind) string {
	switch k {
	case KindWrite:
		return ratelimit.PolicyWrite
	case KindSearch:
		return ratelimit.PolicySearch
	case KindHeavy:
		return ratelimit.PolicyHeavy
	default:
		return ratelimit.PolicyAPI
	}
}

// Decision is the outcome of a request that passed every stage.
type Decision struct {
	Operation string `json:"operation"`
	Kind      Kind   `json:"kind"`
	Policy    string `json:"policy"`

	// Caller is the rate-limit key of the authenticated caller.
	Caller string          `json:"caller"`
	Method auth.AuthMethod `json:"method"`

	RoomID string `json:"roomId,omitempty"`

	// Text is the sanitized outbound text of a write.
	Text        string   `json:"text,omitempty"`
	Sanitized   bool     `json:"sanitized"`
	Neutralized []string `json:"neutralized,omitempty"`

	// Params holds the validated parameters, normalized.
	Params map[string]any `json:"params,omitempty"`

	Remaining int `json:"remaining"`

	identity *auth.Identity
	// free lists the Params keys that passed through unvalidated.
	free []string
}

// Identity returns the authenticated caller.
func (d *Decision) Identity() *auth.Identity {
	return d.identity
}

// UpstreamParams returns the parameters to send upstream: the validated
// params plus roomId and the sanitized text when present.
func (d *Decision) UpstreamParams() map[string]any {
	out := make(map[string]any, len(d.Params)+2)
	for k, v := range d.Params {
		out[k] = v
	}
	if d.RoomID != "" {
		out["roomId"] = d.RoomID
	}
	if d.Text != "" {
		out["text"] = d.Text
	}
	return out
}
