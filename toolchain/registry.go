package toolchain

import (
	"fmt"
	"maps"
	"slices"

	"github.com/rickchristie/gentloop"
	"github.com/tmc/langchaingo/llms"
)

// Registry is an ordered, name-unique collection of tools.
//
// A Registry is an immutable value: every transformation returns a new
// Registry and leaves the receiver untouched. Insertion order is preserved
// everywhere, including in [Registry.Definitions] so that models see tools in
// a stable order. On name collision the first tool wins.
//
// A nil *Registry behaves like an empty one.
//
//	parent := toolchain.NewRegistry(readFile, writeFile, planTool)
//	child := parent.
//	    Merge(toolchain.NewRegistry(scratchpad)).
//	    Filter([]string{"read_file", "scratchpad"}).
//	    Without("plan_with_subagent")
type Registry struct {
	tools []gentloop.Tool
	index map[string]int
}

// NewRegistry creates a registry from tools, silently dropping later tools
// whose name is already taken. Nil tools are skipped.
func NewRegistry(tools ...gentloop.Tool) *Registry {
	r := &Registry{
		tools: make([]gentloop.Tool, 0, len(tools)),
		index: make(map[string]int, len(tools)),
	}
	for _, tool := range tools {
		if tool == nil {
			continue
		}
		name := tool.Name()
		if _, taken := r.index[name]; taken {
			continue
		}
		r.index[name] = len(r.tools)
		r.tools = append(r.tools, tool)
	}
	return r
}

// All returns the tools in insertion order.
func (r *Registry) All() []gentloop.Tool {
	if r == nil {
		return nil
	}
	return slices.Clone(r.tools)
}

// Has reports whether a tool named name is registered.
func (r *Registry) Has(name string) bool {
	if r == nil {
		return false
	}
	_, ok := r.index[name]
	return ok
}

// Get returns the tool named name, or an error wrapping
// [gentloop.ErrToolNotFound].
func (r *Registry) Get(name string) (gentloop.Tool, error) {
	if r != nil {
		if i, ok := r.index[name]; ok {
			return r.tools[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", gentloop.ErrToolNotFound, name)
}

// With returns a registry with tools appended. Names already present keep
// their original tool.
func (r *Registry) With(tools ...gentloop.Tool) *Registry {
	return NewRegistry(append(r.All(), tools...)...)
}

// Merge returns the union of r and other. Tools of r come first and win on
// name collision.
func (r *Registry) Merge(other *Registry) *Registry {
	return r.With(other.All()...)
}

// Filter returns a registry restricted to the names in allow, preserving the
// registry's own order. An empty or nil allow-list keeps every tool.
func (r *Registry) Filter(allow []string) *Registry {
	if len(allow) == 0 {
		return NewRegistry(r.All()...)
	}
	allowed := make(map[string]struct{}, len(allow))
	for _, name := range allow {
		allowed[name] = struct{}{}
	}
	kept := make([]gentloop.Tool, 0, len(allow))
	for _, tool := range r.All() {
		if _, ok := allowed[tool.Name()]; ok {
			kept = append(kept, tool)
		}
	}
	return NewRegistry(kept...)
}

// Without returns a registry with the named tools removed.
func (r *Registry) Without(names ...string) *Registry {
	kept := slices.DeleteFunc(r.All(), func(tool gentloop.Tool) bool {
		return slices.Contains(names, tool.Name())
	})
	return NewRegistry(kept...)
}

// Names returns the tool names in insertion order.
func (r *Registry) Names() []string {
	names := make([]string, 0, r.Len())
	for _, tool := range r.All() {
		names = append(names, tool.Name())
	}
	return names
}

// Len returns the number of tools.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.tools)
}

// IsEmpty reports whether the registry holds no tools.
func (r *Registry) IsEmpty() bool {
	return r.Len() == 0
}

// Definitions converts the tools to langchaingo tool definitions for
// function-calling models.
func (r *Registry) Definitions() []llms.Tool {
	defs := make([]llms.Tool, 0, r.Len())
	for _, tool := range r.All() {
		s := tool.ToolSchema()
		params := s.Function.Parameters
		if params == nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		defs = append(defs, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        s.Function.Name,
				Description: s.Function.Description,
				Parameters:  params,
			},
		})
	}
	return defs
}

// ResolveSchema implements [gentloop.SchemaResolver]. It reports false for
// unknown tools and for tools that declare no parameters.
func (r *Registry) ResolveSchema(name string) (map[string]any, bool) {
	tool, err := r.Get(name)
	if err != nil {
		return nil, false
	}
	params := tool.ToolSchema().Function.Parameters
	if params == nil {
		return nil, false
	}
	return maps.Clone(params), true
}

var _ gentloop.SchemaResolver = (*Registry)(nil)
