package validate

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jonwraymond/chatguard/observe"
)

// Maximum lengths, in characters, per field kind.
const (
	MaxRoomIDLength      = 64
	MaxMessageIDLength   = 64
	MaxThreadIDLength    = 64
	MaxUserIDLength      = 64
	MaxUsernameLength    = 128
	MaxQueryLength       = 500
	MaxMessageTextLength = 10000
	MaxEmojiLength       = 64
)

// Result is the outcome of validating one parameter.
type Result struct {
	Valid     bool   `json:"valid"`
	Sanitized string `json:"sanitized,omitempty"`
	Error     string `json:"error,omitempty"`

	field string
}

// Err returns nil for a valid result and a *FieldError otherwise.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	return &FieldError{Field: r.field, Reason: r.Error}
}

// Field returns the field key the result belongs to.
func (r Result) Field() string {
	return r.field
}

type fieldSpec struct {
	key       string
	label     string
	max       int
	charset   *regexp.Regexp
	dangerous bool
	stripAt   bool
	keepRaw   bool
}

var (
	roomIDField      = fieldSpec{key: "roomId", label: "Room ID", max: MaxRoomIDLength, charset: idCharset, dangerous: true}
	messageIDField   = fieldSpec{key: "messageId", label: "Message ID", max: MaxMessageIDLength, charset: idCharset, dangerous: true}
	threadIDField    = fieldSpec{key: "threadId", label: "Thread ID", max: MaxThreadIDLength, charset: idCharset, dangerous: true}
	userIDField      = fieldSpec{key: "userId", label: "User ID", max: MaxUserIDLength, charset: idCharset, dangerous: true}
	usernameField    = fieldSpec{key: "username", label: "Username", max: MaxUsernameLength, charset: usernameCharset, stripAt: true}
	queryField       = fieldSpec{key: "query", label: "Search query", max: MaxQueryLength}
	messageTextField = fieldSpec{key: "text", label: "Message text", max: MaxMessageTextLength, keepRaw: true}
	emojiField       = fieldSpec{key: "emoji", label: "Emoji", max: MaxEmojiLength, charset: emojiCharset}
)

// Validator validates request parameters. The zero value is not usable;
// call New. A Validator is stateless and safe for concurrent use.
type Validator struct {
	logger observe.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithLogger sets the logger used to report injection attempts.
func WithLogger(l observe.Logger) Option {
	return func(v *Validator) {
		if l != nil {
			v.logger = l.WithComponent("validate")
		}
	}
}

// New creates a Validator.
func New(opts ...Option) *Validator {
	v := &Validator{logger: observe.NopLogger()}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// RoomID validates a room identifier.
func (v *Validator) RoomID(raw any) Result { return v.check(roomIDField, raw) }

// MessageID validates a message identifier.
func (v *Validator) MessageID(raw any) Result { return v.check(messageIDField, raw) }

// ThreadID validates a thread identifier.
func (v *Validator) ThreadID(raw any) Result { return v.check(threadIDField, raw) }

// UserID validates a user identifier.
func (v *Validator) UserID(raw any) Result { return v.check(userIDField, raw) }

// Username validates a username. A leading "@" is stripped.
func (v *Validator) Username(raw any) Result { return v.check(usernameField, raw) }

// Query validates a free-text search query. No charset restriction applies.
func (v *Validator) Query(raw any) Result { return v.check(queryField, raw) }

// MessageText validates a message body. The sanitized value is the
// untrimmed text so intentional leading and trailing whitespace survives.
func (v *Validator) MessageText(raw any) Result { return v.check(messageTextField, raw) }

// Emoji validates an emoji name, with or without surrounding colons.
func (v *Validator) Emoji(raw any) Result { return v.check(emojiField, raw) }

// String validates a generic string field. A nil value is valid when the
// field is optional.
func (v *Validator) String(raw any, field string, maxLength int, required bool) Result {
	if raw == nil {
		if required {
			return invalid(field, field+" is required")
		}
		return Result{Valid: true, field: field}
	}
	s, ok := raw.(string)
	if !ok {
		return invalid(field, field+" must be a string")
	}
	trimmed := strings.TrimSpace(s)
	if required && trimmed == "" {
		return invalid(field, field+" cannot be empty")
	}
	if utf8.RuneCountInString(trimmed) > maxLength {
		return invalid(field, fmt.Sprintf("%s exceeds maximum length of %d", field, maxLength))
	}
	return Result{Valid: true, Sanitized: trimmed, field: field}
}

func (v *Validator) check(f fieldSpec, raw any) Result {
	s, ok := raw.(string)
	if !ok {
		return invalid(f.key, f.label+" must be a string")
	}
	if f.stripAt {
		s = strings.TrimPrefix(s, "@")
	}

	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return invalid(f.key, f.label+" cannot be empty")
	}

	out := trimmed
	if f.keepRaw {
		out = s
	}
	if utf8.RuneCountInString(out) > f.max {
		return invalid(f.key, fmt.Sprintf("%s exceeds maximum length of %d", f.label, f.max))
	}

	if f.dangerous {
		if name, found := DangerousPattern(trimmed); found {
			v.logger.Warn(context.Background(), "dangerous pattern in identifier",
				observe.F("field", f.key),
				observe.F("pattern", name),
				observe.F("prefix", truncate(trimmed, 20)),
			)
			return invalid(f.key, f.label+" contains invalid characters")
		}
	}
	if f.charset != nil && !f.charset.MatchString(trimmed) {
		return invalid(f.key, f.label+" contains invalid characters")
	}

	return Result{Valid: true, Sanitized: out, field: f.key}
}

func invalid(field, reason string) Result {
	return Result{Error: reason, field: field}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

var std = New()

// RoomID validates a room identifier without logging.
func RoomID(raw any) Result { return std.RoomID(raw) }

// MessageID validates a message identifier without logging.
func MessageID(raw any) Result { return std.MessageID(raw) }

// ThreadID validates a thread identifier without logging.
func ThreadID(raw any) Result { return std.ThreadID(raw) }

// UserID validates a user identifier without logging.
func UserID(raw any) Result { return std.UserID(raw) }

// Username validates a username without logging.
func Username(raw any) Result { return std.Username(raw) }

// Query validates a search query.
func Query(raw any) Result { return std.Query(raw) }

// MessageText validates a message body.
func MessageText(raw any) Result { return std.MessageText(raw) }

// Emoji validates an emoji name.
func Emoji(raw any) Result { return std.Emoji(raw) }

// String validates a generic string field.
func String(raw any, field string, maxLength int, required bool) Result {
	return std.String(raw, field, maxLength, required)
}
