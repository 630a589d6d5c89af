package toolchain

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/rickchristie/gentloop"
	"github.com/rickchristie/gentloop/schema"
)

// BuildResult is the outcome of turning one Decision into a tool call.
type BuildResult struct {
	// Call is the validated, normalized call, or nil when none was produced.
	Call *gentloop.ToolCall

	// Rejection is set when a call decision was dropped because its arguments
	// failed validation. It wraps [gentloop.ErrInvalidArguments].
	Rejection error
}

// HasCall reports whether a tool call was produced.
func (r BuildResult) HasCall() bool {
	return r.Call != nil
}

// IsRejected reports whether a proposed call was dropped by validation.
func (r BuildResult) IsRejected() bool {
	return r.Rejection != nil
}

// Builder turns driver decisions into zero or one validated tool call.
//
// For a call decision the builder:
//  1. resolves the tool's parameter schema and gives it a title and
//     description when the tool did not declare them,
//  2. validates the raw arguments (a failure yields no call),
//  3. drops positional keys and normalizes the arguments with
//     [schema.Normalize],
//  4. emits a single call with a fresh id.
//
// Unknown tools and tools with a missing or uncompilable schema pass their raw
// arguments through; reporting an unknown tool is the loop's job.
//
// Builder is immutable and safe for concurrent use.
type Builder struct {
	resolver gentloop.SchemaResolver
	newID    func() string
}

// NewBuilder creates a Builder that resolves schemas through resolver
// (usually a [Registry]).
func NewBuilder(resolver gentloop.SchemaResolver) *Builder {
	return &Builder{
		resolver: resolver,
		newID:    uuid.NewString,
	}
}

// WithIDGenerator returns a copy of the builder that uses fn for call ids.
func (b *Builder) WithIDGenerator(fn func() string) *Builder {
	c := *b
	c.newID = fn
	return &c
}

// Build converts decision into at most one tool call.
func (b *Builder) Build(decision gentloop.Decision) BuildResult {
	if !decision.IsCall() {
		return BuildResult{}
	}

	name := decision.Tool
	args := stringKeyed(decision.Args)

	compiled := b.compile(name)
	if compiled == nil {
		return b.emit(name, args)
	}

	if err := compiled.Validate(args); err != nil {
		return BuildResult{
			Rejection: fmt.Errorf("%w: %s: %w", gentloop.ErrInvalidArguments, name, err),
		}
	}

	return b.emit(name, schema.Normalize(dropPositional(args), compiled.Raw()))
}

func (b *Builder) emit(name string, args map[string]any) BuildResult {
	return BuildResult{Call: &gentloop.ToolCall{
		ID:   b.newID(),
		Name: name,
		Args: args,
	}}
}

// compile returns nil when the tool is unknown, declares no parameters or
// declares a schema that does not compile.
func (b *Builder) compile(name string) *schema.Schema {
	if name == "" || b.resolver == nil {
		return nil
	}
	params, ok := b.resolver.ResolveSchema(name)
	if !ok {
		return nil
	}
	titled := schema.WithTitle(params, name+"_arguments", "Arguments for "+name)
	compiled, err := schema.Compile(titled)
	if err != nil {
		return nil
	}
	return compiled
}

// stringKeyed converts nested map[any]any values (as produced by YAML
// decoders) into map[string]any, dropping entries whose key is not a string.
func stringKeyed(args map[string]any) map[string]any {
	if args == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = stringKeyedValue(v)
	}
	return out
}

func stringKeyedValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return stringKeyed(t)
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			if key, ok := k.(string); ok {
				out[key] = stringKeyedValue(inner)
			}
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = stringKeyedValue(inner)
		}
		return out
	default:
		return v
	}
}

// dropPositional removes keys that are bare non-negative integers. Drivers
// emit those for positional arguments, which named schemas cannot address.
func dropPositional(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		if n, err := strconv.Atoi(k); err == nil && n >= 0 {
			continue
		}
		out[k] = v
	}
	return out
}
