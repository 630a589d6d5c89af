package toolchain

import (
	"strconv"

	"github.com/spf13/cast"
)

// Arg looks an argument up by name, falling back to its position. Positional
// arguments are stored under their decimal index ("0", "1", ...), which is how
// drivers pass arguments that came without names.
func Arg(args map[string]any, name string, position int) (any, bool) {
	if v, ok := args[name]; ok {
		return v, true
	}
	if position < 0 {
		return nil, false
	}
	v, ok := args[strconv.Itoa(position)]
	return v, ok
}

// ArgString is like [Arg] but converts the value to a string. Missing or
// unconvertible values yield "".
func ArgString(args map[string]any, name string, position int) string {
	v, ok := Arg(args, name, position)
	if !ok {
		return ""
	}
	return cast.ToString(v)
}

// ArgInt is like [Arg] but converts the value to an int, returning def when
// the argument is missing or not numeric.
func ArgInt(args map[string]any, name string, position int, def int) int {
	v, ok := Arg(args, name, position)
	if !ok {
		return def
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return def
	}
	return n
}

// ArgStrings is like [Arg] but converts the value to a string slice.
func ArgStrings(args map[string]any, name string, position int) []string {
	v, ok := Arg(args, name, position)
	if !ok {
		return nil
	}
	return cast.ToStringSlice(v)
}
