package validate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/jonwraymond/chatguard/observe"
)

// Mode selects how a schema mismatch is handled.
type Mode string

const (
	// ModeLenient logs a mismatch and continues with the unverified data.
	ModeLenient Mode = "lenient"

	// ModeStrict turns a mismatch into an error.
	ModeStrict Mode = "strict"
)

// Checker validates a raw JSON document.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: Check returns an error wrapping ErrSchemaMismatch on mismatch.
type Checker interface {
	Name() string
	Check(data []byte) error
}

// Schema validates JSON documents against a resolved JSON Schema and decodes
// them into T.
type Schema[T any] struct {
	name     string
	resolved *jsonschema.Resolved
	logger   observe.Logger
}

// NewSchema resolves schema once for reuse. name identifies the document in
// logs and errors.
func NewSchema[T any](name string, schema *jsonschema.Schema) (*Schema[T], error) {
	resolved, err := schema.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSchema, name, err)
	}
	return &Schema[T]{
		name:     name,
		resolved: resolved,
		logger:   observe.NopLogger(),
	}, nil
}

// InferSchema derives the schema from T's JSON field tags.
func InferSchema[T any](name string) (*Schema[T], error) {
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSchema, name, err)
	}
	return NewSchema[T](name, schema)
}

// MustSchema is like NewSchema but panics on an unresolvable schema.
func MustSchema[T any](name string, schema *jsonschema.Schema) *Schema[T] {
	s, err := NewSchema[T](name, schema)
	if err != nil {
		panic(err)
	}
	return s
}

// WithLogger returns a copy of s that reports mismatches to l.
func (s *Schema[T]) WithLogger(l observe.Logger) *Schema[T] {
	cp := *s
	if l != nil {
		cp.logger = l.WithComponent("validate.schema")
	}
	return &cp
}

// Name returns the document name.
func (s *Schema[T]) Name() string {
	return s.name
}

// Check validates data without decoding it into T.
func (s *Schema[T]) Check(data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSchemaMismatch, s.name, err)
	}
	if err := s.resolved.Validate(doc); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSchemaMismatch, s.name, err)
	}
	return nil
}

// Lenient validates data and returns it decoded into T. On a mismatch the
// failure is logged at warn level and the best-effort decode of the
// unverified data is returned anyway.
func (s *Schema[T]) Lenient(ctx context.Context, data []byte) T {
	var out T
	checkErr := s.Check(data)
	if checkErr != nil {
		s.logger.Warn(ctx, "response validation failed",
			observe.F("schema", s.name),
			observe.F("error", checkErr),
		)
	}
	// Type mismatches leave the affected fields zero; the rest still decode.
	if err := json.Unmarshal(data, &out); err != nil && checkErr == nil {
		s.logger.Warn(ctx, "response decode failed",
			observe.F("schema", s.name),
			observe.F("error", err),
		)
	}
	return out
}

// Strict validates data and decodes it into T. A mismatch is logged at error
// level and returned.
func (s *Schema[T]) Strict(ctx context.Context, data []byte) (T, error) {
	var out T
	if err := s.Check(data); err != nil {
		s.logger.Error(ctx, "response validation failed",
			observe.F("schema", s.name),
			observe.F("error", err),
		)
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("%w: %s: %v", ErrSchemaMismatch, s.name, err)
	}
	return out, nil
}

// Apply runs Check under mode. Lenient mismatches are logged and
// swallowed.
func Apply(ctx context.Context, c Checker, mode Mode, data []byte, logger observe.Logger) error {
	err := c.Check(data)
	if err == nil {
		return nil
	}
	if logger == nil {
		logger = observe.NopLogger()
	}
	if mode == ModeStrict {
		logger.Error(ctx, "response validation failed", observe.F("schema", c.Name()), observe.F("error", err))
		return err
	}
	logger.Warn(ctx, "response validation failed", observe.F("schema", c.Name()), observe.F("error", err))
	return nil
}

var _ Checker = (*Schema[BaseResponse])(nil)
