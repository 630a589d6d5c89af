package gentloop

import (
	"context"
	"maps"
)

// Tool represents a single invocable capability.
//
// Responsibility design:
//   - Tool: declare name, description and parameter schema, execute business logic
//   - toolchain.Builder: validate and normalize the model's proposed arguments
//   - executor.Loop: look the tool up, bind context, call it, record the outcome
//
// Call receives arguments that already passed schema validation and
// normalization (unless the tool declares no usable schema, in which case the
// raw arguments are passed through). It returns a string or any structured
// value. Returned errors are recorded on the step; wrap them with [Fatal] to
// stop the loop.
type Tool interface {
	// Name returns the tool's identifier used in tool calls.
	Name() string

	// Description returns a human-readable description for the model.
	Description() string

	// ToolSchema returns the function-calling schema of the tool.
	ToolSchema() ToolSchema

	// Call executes the tool with the given arguments.
	Call(ctx context.Context, args map[string]any) (any, error)
}

// ContextAwareTool is a [Tool] that must be bound to the current state and the
// triggering call before it is invoked. Binding returns a new tool value; the
// original is never mutated.
type ContextAwareTool interface {
	Tool

	// WithAgentState returns a copy of the tool bound to state.
	WithAgentState(state *AgentState) ContextAwareTool

	// WithToolCall returns a copy of the tool bound to the triggering call.
	WithToolCall(call ToolCall) ContextAwareTool
}

// ToolSchema is the function-calling description of a tool:
//
//	{"type": "function", "function": {"name": ..., "description": ..., "parameters": {...}}}
type ToolSchema struct {
	Type     string         `json:"type" yaml:"type"`
	Function FunctionSchema `json:"function" yaml:"function"`
}

// FunctionSchema is the "function" member of a [ToolSchema].
type FunctionSchema struct {
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description" yaml:"description"`
	Parameters  map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// NewToolSchema builds a function-type [ToolSchema].
func NewToolSchema(name, description string, parameters map[string]any) ToolSchema {
	return ToolSchema{
		Type: "function",
		Function: FunctionSchema{
			Name:        name,
			Description: description,
			Parameters:  parameters,
		},
	}
}

// ToMap returns the schema in its generic map form.
func (s ToolSchema) ToMap() map[string]any {
	fn := map[string]any{
		"name":        s.Function.Name,
		"description": s.Function.Description,
	}
	if s.Function.Parameters != nil {
		fn["parameters"] = maps.Clone(s.Function.Parameters)
	}
	return map[string]any{
		"type":     s.Type,
		"function": fn,
	}
}

// SchemaResolver returns the parameter schema declared for a tool name.
// Absence (ok == false) is a valid answer: unknown or schema-less tools stay
// callable with their raw arguments.
type SchemaResolver interface {
	ResolveSchema(toolName string) (parameters map[string]any, ok bool)
}

// ToolCall is a validated invocation produced by the tool-call builder.
type ToolCall struct {
	// ID identifies the call within its step. Context-aware tools receive it.
	ID   string
	Name string
	Args map[string]any
}

// ToolExecution is the outcome of running a [ToolCall].
type ToolExecution struct {
	Call ToolCall

	// Value is the tool's return value (nil when Err is set).
	Value any

	// Err is the tool-level error, including unknown-tool errors.
	Err error
}

// HasError reports whether the execution failed.
func (e ToolExecution) HasError() bool {
	return e.Err != nil
}
