package toolchain

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

var (
	timeType     = reflect.TypeOf(time.Time{})
	durationType = reflect.TypeOf(time.Duration(0))
)

// DecodeArgs decodes normalized arguments into a value of type I.
//
// The arguments are re-encoded as JSON and decoded into I, so json struct
// tags apply. Before that, values headed for time.Time fields are parsed from
// common date layouts and values headed for time.Duration fields are parsed
// with time.ParseDuration, since models send both as strings.
func DecodeArgs[I any](args map[string]any) (I, error) {
	var input I
	target := reflect.TypeOf(&input).Elem()
	for target.Kind() == reflect.Pointer {
		target = target.Elem()
	}

	encoded, err := json.Marshal(convertForType(args, target))
	if err != nil {
		return input, fmt.Errorf("failed to marshal args: %w", err)
	}
	if err := json.Unmarshal(encoded, &input); err != nil {
		return input, fmt.Errorf("failed to decode args into %s: %w", target, err)
	}
	return input, nil
}

func convertForType(args map[string]any, structType reflect.Type) map[string]any {
	if args == nil || structType.Kind() != reflect.Struct {
		return args
	}
	out := make(map[string]any, len(args))
	for key, value := range args {
		if field, ok := fieldFor(structType, key); ok {
			out[key] = convertValue(value, field.Type)
		} else {
			out[key] = value
		}
	}
	return out
}

// fieldFor finds the struct field a JSON key decodes into: json tag first,
// then a case-insensitive field name match.
func fieldFor(structType reflect.Type, key string) (reflect.StructField, bool) {
	for i := range structType.NumField() {
		field := structType.Field(i)
		tag, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if tag == key || (tag == "" && strings.EqualFold(field.Name, key)) {
			return field, true
		}
	}
	return reflect.StructField{}, false
}

func convertValue(value any, target reflect.Type) any {
	if value == nil {
		return nil
	}
	for target.Kind() == reflect.Pointer {
		target = target.Elem()
	}

	switch {
	case target == timeType:
		if t, err := cast.ToTimeE(value); err == nil {
			return t.Format(time.RFC3339Nano)
		}
	case target == durationType:
		if s, ok := value.(string); ok {
			if _, err := strconv.ParseFloat(s, 64); err != nil {
				if d, err := time.ParseDuration(s); err == nil {
					return d.Nanoseconds()
				}
			}
		}
	case target.Kind() == reflect.Struct:
		if m, ok := value.(map[string]any); ok {
			return convertForType(m, target)
		}
	case target.Kind() == reflect.Slice:
		if items, ok := value.([]any); ok {
			out := make([]any, len(items))
			for i, item := range items {
				out[i] = convertValue(item, target.Elem())
			}
			return out
		}
	}
	return value
}
