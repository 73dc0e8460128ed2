package validate

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Pagination defaults.
const (
	DefaultLimit  = 50
	MinLimit      = 1
	MaxLimit      = 100
	DefaultOffset = 0
)

// Limit converts raw to a page size. Absent or non-numeric input yields def;
// anything else is floored and clamped into [minimum, maximum].
func Limit(raw any, minimum, maximum, def int) int {
	f, ok := toNumber(raw)
	if !ok {
		return def
	}
	f = math.Floor(f)
	switch {
	case f < float64(minimum):
		return minimum
	case f > float64(maximum):
		return maximum
	}
	return int(f)
}

// PageLimit is Limit with the default pagination bounds.
func PageLimit(raw any) int {
	return Limit(raw, MinLimit, MaxLimit, DefaultLimit)
}

// Offset converts raw to a page offset. Absent, non-numeric, negative or
// non-finite input yields def; anything else is floored. Values past the
// range of int clamp to math.MaxInt.
func Offset(raw any, def int) int {
	f, ok := toNumber(raw)
	if !ok || f < 0 || math.IsInf(f, 0) {
		return def
	}
	if f >= float64(math.MaxInt) {
		return math.MaxInt
	}
	return int(math.Floor(f))
}

// toNumber accepts Go numeric types, json.Number and numeric strings. NaN
// is reported as not a number.
func toNumber(raw any) (float64, bool) {
	var f float64
	switch v := raw.(type) {
	case nil:
		return 0, false
	case int:
		f = float64(v)
	case int8:
		f = float64(v)
	case int16:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint8:
		f = float64(v)
	case uint16:
		f = float64(v)
	case uint32:
		f = float64(v)
	case uint64:
		f = float64(v)
	case float32:
		f = float64(v)
	case float64:
		f = v
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) {
		return 0, false
	}
	return f, true
}
