package auth

import "errors"

// Sentinel errors for authentication and authorization.
var (
	// Authentication errors
	ErrMissingCredentials = errors.New("auth: missing credentials")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrTokenExpired       = errors.New("auth: token expired")
	ErrTokenMalformed     = errors.New("auth: token malformed")

	// Authorization errors
	ErrForbidden = errors.New("auth: access denied")

	// Configuration errors
	ErrInvalidConfig = errors.New("auth: invalid configuration")
)

// Denial codes carried by AuthzError and WriteDecision.
const (
	CodeWriteDisabled  = "WRITE_DISABLED"
	CodeRoomNotAllowed = "ROOM_NOT_ALLOWED"
)
