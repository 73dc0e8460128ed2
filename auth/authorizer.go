package auth

import (
	"context"
	"fmt"
)

// Action names a class of guarded operation.
type Action string

const (
	ActionRead  Action = "read"
	ActionWrite Action = "write"
)

// Authorizer decides whether an identity may act on a room.
//
// Contract:
// - Authorize returns nil when permitted and an error matching ErrForbidden
//   (usually *AuthzError) when denied.
// - Concurrency: implementations must be safe for concurrent use.
type Authorizer interface {
	Authorize(ctx context.Context, req *AuthzRequest) error
	Name() string
}

// AuthzRequest contains the information needed for authorization.
type AuthzRequest struct {
	// Subject is the identity making the request. May be nil.
	Subject *Identity

	// TargetID is the room identifier being acted on.
	TargetID string

	// TargetName is the room's human-readable name, if known.
	TargetName string

	// Action is the requested action.
	Action Action
}

// AuthzError represents an authorization failure.
type AuthzError struct {
	// Subject is the principal that was denied.
	Subject string

	// Target is the room that was denied.
	Target string

	// Action is the action that was denied.
	Action Action

	// Code is a machine-checkable denial code such as CodeRoomNotAllowed.
	Code string

	// Reason explains why access was denied.
	Reason string

	// Matched is the identifier that triggered the decision, if any.
	Matched string
}

// Error returns the error message.
func (e *AuthzError) Error() string {
	return fmt.Sprintf("auth: %s denied on %q: %s", e.Action, e.Target, e.Reason)
}

// Is reports whether this error matches the target.
func (e *AuthzError) Is(target error) bool {
	return target == ErrForbidden
}
