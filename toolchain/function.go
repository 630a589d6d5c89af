package toolchain

import (
	"context"
	"maps"

	"github.com/rickchristie/gentloop"
)

// Func is the callable behind a [FunctionTool]. It receives arguments that
// already went through the [Builder].
type Func func(ctx context.Context, args map[string]any) (any, error)

// FunctionTool is a tool backed by a plain function. Its schema is built once
// at construction and never recomputed.
//
//	readFile := toolchain.NewFunctionTool(
//	    "read_file",
//	    "Read a text file",
//	    schema.Object(map[string]*schema.Property{
//	        "path": schema.String("Path to read"),
//	    }, "path"),
//	    func(ctx context.Context, args map[string]any) (any, error) {
//	        b, err := os.ReadFile(toolchain.ArgString(args, "path", 0))
//	        return string(b), err
//	    },
//	)
type FunctionTool struct {
	name        string
	description string
	schema      gentloop.ToolSchema
	fn          Func
}

// NewFunctionTool creates a tool from fn. parameters may be nil for tools
// that take no arguments.
func NewFunctionTool(name, description string, parameters map[string]any, fn Func) *FunctionTool {
	return &FunctionTool{
		name:        name,
		description: description,
		schema:      gentloop.NewToolSchema(name, description, maps.Clone(parameters)),
		fn:          fn,
	}
}

// NewToolFunc creates a tool from a function with a typed input. Arguments
// are decoded into I the way encoding/json would, after converting date and
// duration strings for time.Time and time.Duration fields.
//
//	type ReadInput struct {
//	    Path  string        `json:"path"`
//	    Since time.Duration `json:"since"`
//	}
//
//	tool := toolchain.NewToolFunc("read_file", "Read a file", params,
//	    func(ctx context.Context, in ReadInput) (string, error) { ... })
func NewToolFunc[I, O any](
	name, description string,
	parameters map[string]any,
	fn func(ctx context.Context, input I) (O, error),
) *FunctionTool {
	return NewFunctionTool(name, description, parameters, func(ctx context.Context, args map[string]any) (any, error) {
		input, err := DecodeArgs[I](args)
		if err != nil {
			return nil, err
		}
		return fn(ctx, input)
	})
}

// Name returns the tool's identifier.
func (t *FunctionTool) Name() string { return t.name }

// Description returns the tool's description.
func (t *FunctionTool) Description() string { return t.description }

// ToolSchema returns the schema computed at construction.
func (t *FunctionTool) ToolSchema() gentloop.ToolSchema { return t.schema }

// Call invokes the wrapped function.
func (t *FunctionTool) Call(ctx context.Context, args map[string]any) (any, error) {
	return t.fn(ctx, args)
}

var _ gentloop.Tool = (*FunctionTool)(nil)
