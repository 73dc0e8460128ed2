package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// Keyer derives cache keys from an operation name and its parameters.
//
// Contract:
// - Determinism: same inputs produce the same key, regardless of map order,
//   across processes.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	Key(operation string, params any) (string, error)
}

// ErrEmptyOperation is returned when a key is requested without an operation.
var ErrEmptyOperation = errors.New("cache: operation is required")

// DefaultKeyer produces readable, collision-free keys.
// Format: <operation>:<canonical JSON(params)>
type DefaultKeyer struct{}

// NewDefaultKeyer creates a new default keyer.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{}
}

// Key generates a deterministic cache key.
func (k *DefaultKeyer) Key(operation string, params any) (string, error) {
	if operation == "" {
		return "", ErrEmptyOperation
	}
	canonical, err := canonicalize(params)
	if err != nil {
		return "", fmt.Errorf("cache: failed to canonicalize params: %w", err)
	}
	return operation + ":" + string(canonical), nil
}

// HashKeyer produces fixed-length keys for parameter sets that may be large.
// Format: <operation>:<first 16 hex chars of SHA-256(canonical JSON(params))>
type HashKeyer struct{}

// NewHashKeyer creates a new hashing keyer.
func NewHashKeyer() *HashKeyer {
	return &HashKeyer{}
}

// Key generates a deterministic hashed cache key.
func (k *HashKeyer) Key(operation string, params any) (string, error) {
	if operation == "" {
		return "", ErrEmptyOperation
	}
	canonical, err := canonicalize(params)
	if err != nil {
		return "", fmt.Errorf("cache: failed to canonicalize params: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return operation + ":" + hex.EncodeToString(sum[:8]), nil
}

// Key derives a key with the DefaultKeyer.
func Key(operation string, params any) (string, error) {
	return (&DefaultKeyer{}).Key(operation, params)
}

// canonicalize produces a deterministic JSON representation of v.
// Object keys are sorted at every depth; array order is preserved.
func canonicalize(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return []byte("null"), nil
	case map[string]any:
		return canonicalizeMap(val)
	case []any:
		return canonicalizeSlice(val)
	case map[string]string:
		m := make(map[string]any, len(val))
		for k, s := range val {
			m[k] = s
		}
		return canonicalizeMap(m)
	case json.Number:
		if val == "" {
			return []byte("0"), nil
		}
		return []byte(val), nil
	default:
		// Round-trip through JSON so structs and typed maps nested in params
		// are normalized the same way as untyped ones. Numbers stay
		// json.Number so integers above 2^53 keep every digit.
		raw, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var generic any
		if err := dec.Decode(&generic); err != nil {
			return nil, err
		}
		switch generic.(type) {
		case map[string]any, []any:
			return canonicalize(generic)
		}
		return raw, nil
	}
}

func canonicalizeMap(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := []byte("{")
	for i, k := range keys {
		if i > 0 {
			result = append(result, ',')
		}

		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		result = append(result, keyBytes...)
		result = append(result, ':')

		valBytes, err := canonicalize(m[k])
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	return append(result, '}'), nil
}

func canonicalizeSlice(s []any) ([]byte, error) {
	result := []byte("[")
	for i, v := range s {
		if i > 0 {
			result = append(result, ',')
		}
		valBytes, err := canonicalize(v)
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	return append(result, ']'), nil
}

var (
	_ Keyer = (*DefaultKeyer)(nil)
	_ Keyer = (*HashKeyer)(nil)
)
