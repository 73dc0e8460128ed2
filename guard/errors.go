package guard

import (
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/chatguard/auth"
	"github.com/jonwraymond/chatguard/ratelimit"
	"github.com/jonwraymond/chatguard/validate"
)

// ErrDenied is matched by every *Denial.
var ErrDenied = errors.New("guard: request denied")

// ErrNilUpstream is returned by Execute without an upstream function.
var ErrNilUpstream = errors.New("guard: upstream is required")

// Code is a stable, machine-checkable denial code.
type Code string

const (
	CodeValidation       Code = "VALIDATION_ERROR"
	CodeRateLimited      Code = "RATE_LIMITED"
	CodeWriteDisabled    Code = auth.CodeWriteDisabled
	CodeRoomNotAllowed   Code = auth.CodeRoomNotAllowed
	CodePermissionDenied Code = "PERMISSION_DENIED"
	CodeUnauthenticated  Code = "UNAUTHENTICATED"
)

// Stage names the pipeline step that produced a denial.
type Stage string

const (
	StageAuth      Stage = "auth"
	StageValidate  Stage = "validate"
	StageRateLimit Stage = "ratelimit"
	StageWrite     Stage = "write_guard"
	StageSanitize  Stage = "sanitize"
	StageResponse  Stage = "response"
)

var suggestions = map[Code]string{
	CodeValidation:       "Review the input parameters and ensure they match the expected format.",
	CodeRateLimited:      "Too many requests. Please wait and try again.",
	CodeWriteDisabled:    "Set " + auth.WriteEnabledEnv + "=true to enable write operations.",
	CodeRoomNotAllowed:   "Check CHATGUARD_WRITE_ROOMS configuration for allowed rooms.",
	CodePermissionDenied: "Ensure you have the required permissions for this operation.",
	CodeUnauthenticated:  "Provide a valid API key or bearer token.",
}

// Suggestion returns the remediation hint for code, or "" for an unknown
// code.
func Suggestion(code Code) string {
	return suggestions[code]
}

// Denial describes a rejected request. It matches ErrDenied with errors.Is
// and unwraps to the component error that caused it, so
// errors.Is(err, ratelimit.ErrRateLimited) and
// errors.Is(err, validate.ErrInvalidInput) also work.
type Denial struct {
	Code       Code
	Stage      Stage
	Message    string
	Suggestion string
	RetryAfter time.Duration

	// Matched is the room identifier a write decision hinged on.
	Matched string

	// Field is the rejected input parameter.
	Field string

	Err error
}

func (d *Denial) Error() string {
	return fmt.Sprintf("guard: %s denied at %s: %s", d.Code, d.Stage, d.Message)
}

// Unwrap returns the underlying component error.
func (d *Denial) Unwrap() error {
	return d.Err
}

// Is reports whether target is ErrDenied.
func (d *Denial) Is(target error) bool {
	return target == ErrDenied
}

// AsDenial returns the *Denial in err's chain, if any.
func AsDenial(err error) (*Denial, bool) {
	var d *Denial
	if errors.As(err, &d) {
		return d, true
	}
	return nil, false
}

func newDenial(code Code, stage Stage, message string, err error) *Denial {
	return &Denial{
		Code:       code,
		Stage:      stage,
		Message:    message,
		Suggestion: Suggestion(code),
		Err:        err,
	}
}

func validationDenial(r validate.Result) *Denial {
	d := newDenial(CodeValidation, StageValidate, r.Error, r.Err())
	d.Field = r.Field()
	return d
}

func rateLimitDenial(err *ratelimit.LimitError) *Denial {
	d := newDenial(CodeRateLimited, StageRateLimit,
		fmt.Sprintf("Rate limit exceeded for %s. Try again in %s.", err.Policy, retrySeconds(err.RetryAfter)), err)
	d.RetryAfter = err.RetryAfter
	return d
}

func writeDenial(err *auth.AuthzError) *Denial {
	d := newDenial(Code(err.Code), StageWrite, err.Reason, err)
	d.Matched = err.Matched
	return d
}

// retrySeconds rounds up so a caller never retries too early.
func retrySeconds(d time.Duration) string {
	secs := (d + time.Second - 1) / time.Second
	if secs == 1 {
		return "1 second"
	}
	return fmt.Sprintf("%d seconds", int64(secs))
}
