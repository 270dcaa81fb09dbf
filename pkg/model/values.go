package model

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// NormalizeValue converts decoded JSON/YAML scalars into the canonical shapes
// the validators expect: integers become int64, other numbers float64, and
// lists become []any with normalised elements. Mappings are normalised
// recursively; everything else is returned unchanged.
func NormalizeValue(value any) any {
	switch v := value.(type) {
	case json.Number:
		raw := v.String()
		if !strings.ContainsAny(raw, ".eE") {
			if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
				return i
			}
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return raw
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case uint:
		return normalizeUnsigned(uint64(v))
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	case uint64:
		return normalizeUnsigned(v)
	case float32:
		return float64(v)
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = NormalizeValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = NormalizeValue(item)
		}
		return out
	default:
		return value
	}
}

// normalizeUnsigned keeps values above math.MaxInt64 as float64, the same
// shape json.Number takes for integers that overflow int64.
func normalizeUnsigned(v uint64) any {
	if v > math.MaxInt64 {
		return float64(v)
	}
	return int64(v)
}

// StringList returns the elements of value as strings when value is a list
// whose elements are all strings.
func StringList(value any) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}
