package schema

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/spf13/cast"
)

// Normalize coerces args into the shape declared by the object schema raw.
//
// Rules:
//   - Only declared properties are kept, unless the schema sets
//     "additionalProperties": true or declares no properties at all.
//   - Each declared value is coerced to the property's type (string,
//     integer, number, boolean, object, array). A value that cannot be
//     coerced is kept as is; validation is the gatekeeper, not this function.
//   - Nested objects and array items are normalized recursively.
//   - Keys whose resulting value is nil are dropped at every depth.
//
// If raw is nil, args is returned unchanged so that tools without a usable
// schema stay callable with whatever the model proposed.
//
// Normalize is pure: it never modifies args.
func Normalize(args map[string]any, raw map[string]any) map[string]any {
	if raw == nil {
		return args
	}
	return normalizeObject(args, raw)
}

func normalizeObject(args map[string]any, raw map[string]any) map[string]any {
	props, _ := raw["properties"].(map[string]any)
	open := len(props) == 0 || raw["additionalProperties"] == true

	out := make(map[string]any, len(args))
	for key, value := range args {
		propSchema, declared := props[key]
		if !declared && !open {
			continue
		}

		var coerced any
		if ps, ok := propSchema.(map[string]any); ok {
			coerced = coerce(value, ps)
		} else {
			coerced = dropNulls(value)
		}
		if coerced == nil {
			continue
		}
		out[key] = coerced
	}
	return out
}

func coerce(value any, prop map[string]any) any {
	if value == nil {
		return nil
	}

	switch typeOf(prop) {
	case "string":
		if s, err := cast.ToStringE(value); err == nil {
			return s
		}
	case "integer":
		if n, ok := toInt(value); ok {
			return n
		}
	case "number":
		if f, err := cast.ToFloat64E(value); err == nil {
			return f
		}
	case "boolean":
		if b, err := cast.ToBoolE(value); err == nil {
			return b
		}
	case "object":
		if m, err := cast.ToStringMapE(value); err == nil {
			return normalizeObject(m, prop)
		}
	case "array":
		if items, ok := toSlice(value); ok {
			itemSchema, _ := prop["items"].(map[string]any)
			out := make([]any, 0, len(items))
			for _, item := range items {
				if itemSchema != nil {
					out = append(out, coerce(item, itemSchema))
				} else {
					out = append(out, dropNulls(item))
				}
			}
			return out
		}
	default:
		return dropNulls(value)
	}
	return value
}

// toInt converts value to an int without truncating or wrapping: fractional
// floats and values beyond the int range are refused.
func toInt(value any) (int, bool) {
	switch v := value.(type) {
	case float64:
		return floatToInt(v)
	case float32:
		return floatToInt(float64(v))
	case uint:
		if uint64(v) > math.MaxInt {
			return 0, false
		}
	case uint64:
		if v > math.MaxInt {
			return 0, false
		}
	}
	n, err := cast.ToIntE(value)
	return n, err == nil
}

func floatToInt(f float64) (int, bool) {
	// float64(math.MaxInt) rounds up to 2^63, which is already out of range.
	if f != math.Trunc(f) || f < math.MinInt || f >= math.MaxInt {
		return 0, false
	}
	return int(f), true
}

// typeOf returns the declared type of a property. For type lists such as
// ["string", "null"] the first non-null entry wins.
func typeOf(prop map[string]any) string {
	switch t := prop["type"].(type) {
	case string:
		return t
	case []any:
		for _, entry := range t {
			if s, ok := entry.(string); ok && s != "null" {
				return s
			}
		}
	case []string:
		for _, s := range t {
			if s != "null" {
				return s
			}
		}
	}
	if _, ok := prop["properties"]; ok {
		return "object"
	}
	return ""
}

func toSlice(value any) ([]any, bool) {
	if s, ok := value.(string); ok {
		var decoded []any
		if strings.HasPrefix(strings.TrimSpace(s), "[") && json.Unmarshal([]byte(s), &decoded) == nil {
			return decoded, true
		}
		return nil, false
	}
	items, err := cast.ToSliceE(value)
	if err != nil {
		return nil, false
	}
	return items, true
}

// dropNulls removes nil entries from untyped nested maps.
func dropNulls(value any) any {
	m, ok := value.(map[string]any)
	if !ok {
		return value
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if v = dropNulls(v); v != nil {
			out[k] = v
		}
	}
	return out
}
