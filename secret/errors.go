package secret

import "errors"

var (
	// ErrMissingEnv is returned when ${VAR} names an unset variable.
	ErrMissingEnv = errors.New("secret: missing required environment variables")

	// ErrProviderNotRegistered is returned for an unknown provider name.
	ErrProviderNotRegistered = errors.New("secret: provider not registered")

	// ErrInvalidRef is returned for an empty provider name or reference.
	ErrInvalidRef = errors.New("secret: invalid reference")

	// ErrEmptySecret is returned by a strict resolver when a provider
	// yields an empty value.
	ErrEmptySecret = errors.New("secret: empty value")

	// ErrSecretNotFound is returned by a provider that has no value for a
	// reference.
	ErrSecretNotFound = errors.New("secret: not found")
)
