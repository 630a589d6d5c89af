package toolchain

import (
	"context"
	"testing"

	"github.com/rickchristie/gentloop"
	"github.com/rickchristie/gentloop/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func namedTool(name string) *FunctionTool {
	return namedToolReturning(name, name+" result")
}

func namedToolReturning(name string, result any) *FunctionTool {
	return NewFunctionTool(name, "tool "+name, nil, func(context.Context, map[string]any) (any, error) {
		return result, nil
	})
}

func TestNewRegistry_FirstOccurrenceWins(t *testing.T) {
	first := namedToolReturning("read_file", "first")
	second := namedToolReturning("read_file", "second")

	r := NewRegistry(first, namedTool("write_file"), second, nil)

	assert.Equal(t, []string{"read_file", "write_file"}, r.Names())
	got, err := r.Get("read_file")
	require.NoError(t, err)
	assert.Same(t, first, got)
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry(namedTool("read_file"))

	tool, err := r.Get("read_file")
	require.NoError(t, err)
	assert.Equal(t, "read_file", tool.Name())

	_, err = r.Get("missing")
	assert.ErrorIs(t, err, gentloop.ErrToolNotFound)
	assert.Contains(t, err.Error(), `"missing"`)

	assert.True(t, r.Has("read_file"))
	assert.False(t, r.Has("missing"))
}

func TestRegistry_Merge(t *testing.T) {
	type input struct {
		left  []string
		right []string
	}

	type expected struct {
		names []string
	}

	tests := []struct {
		name     string
		input    input
		expected expected
	}{
		{
			name:     "disjoint union keeps order",
			input:    input{left: []string{"a", "b"}, right: []string{"c"}},
			expected: expected{names: []string{"a", "b", "c"}},
		},
		{
			name:     "collisions keep left tool",
			input:    input{left: []string{"a", "b"}, right: []string{"b", "c", "a"}},
			expected: expected{names: []string{"a", "b", "c"}},
		},
		{
			name:     "merge into empty",
			input:    input{left: nil, right: []string{"x"}},
			expected: expected{names: []string{"x"}},
		},
	}

	build := func(names []string) *Registry {
		tools := make([]gentloop.Tool, 0, len(names))
		for _, n := range names {
			tools = append(tools, namedTool(n))
		}
		return NewRegistry(tools...)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			left := build(tt.input.left)
			right := build(tt.input.right)

			merged := left.Merge(right)

			assert.Equal(t, tt.expected.names, merged.Names())
			assert.Len(t, left.Names(), len(tt.input.left), "receiver must not change")
		})
	}
}

func TestRegistry_Merge_CollisionKeepsFirstTool(t *testing.T) {
	parentTool := namedToolReturning("read_file", "parent")
	r := NewRegistry(parentTool).Merge(NewRegistry(namedToolReturning("read_file", "extra")))

	got, err := r.Get("read_file")
	require.NoError(t, err)
	assert.Same(t, parentTool, got)
}

func TestRegistry_Filter(t *testing.T) {
	r := NewRegistry(namedTool("a"), namedTool("b"), namedTool("c"))

	tests := []struct {
		name     string
		allow    []string
		expected []string
	}{
		{name: "nil allow-list keeps all", allow: nil, expected: []string{"a", "b", "c"}},
		{name: "empty allow-list keeps all", allow: []string{}, expected: []string{"a", "b", "c"}},
		{name: "keeps registry order", allow: []string{"c", "a"}, expected: []string{"a", "c"}},
		{name: "unknown names are ignored", allow: []string{"zzz", "b"}, expected: []string{"b"}},
		{name: "no match yields empty", allow: []string{"zzz"}, expected: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, r.Filter(tt.allow).Names())
		})
	}
}

func TestRegistry_Without(t *testing.T) {
	r := NewRegistry(namedTool("a"), namedTool("b"), namedTool("c"))

	assert.Equal(t, []string{"b"}, r.Without("a", "c", "missing").Names())
	assert.Equal(t, []string{"a", "b", "c"}, r.Names())
}

func TestRegistry_NilIsEmpty(t *testing.T) {
	var r *Registry

	assert.True(t, r.IsEmpty())
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.All())
	assert.False(t, r.Has("x"))
	assert.Equal(t, []string{"x"}, r.With(namedTool("x")).Names())

	_, ok := r.ResolveSchema("x")
	assert.False(t, ok)
}

func TestRegistry_ResolveSchema(t *testing.T) {
	params := schema.Object(map[string]*schema.Property{
		"path": schema.String("Path"),
	}, "path")
	r := NewRegistry(
		NewFunctionTool("read_file", "Read a file", params, nil),
		namedTool("no_params"),
	)

	got, ok := r.ResolveSchema("read_file")
	require.True(t, ok)
	assert.Equal(t, "object", got["type"])

	got["mutated"] = true
	again, _ := r.ResolveSchema("read_file")
	assert.NotContains(t, again, "mutated")

	_, ok = r.ResolveSchema("no_params")
	assert.False(t, ok)

	_, ok = r.ResolveSchema("missing")
	assert.False(t, ok)
}

func TestRegistry_Definitions(t *testing.T) {
	params := schema.Object(map[string]*schema.Property{
		"path": schema.String("Path"),
	}, "path")
	r := NewRegistry(
		NewFunctionTool("read_file", "Read a file", params, nil),
		namedTool("ping"),
	)

	defs := r.Definitions()

	require.Len(t, defs, 2)
	assert.Equal(t, "function", defs[0].Type)
	assert.Equal(t, "read_file", defs[0].Function.Name)
	assert.Equal(t, "Read a file", defs[0].Function.Description)
	assert.Equal(t, params, defs[0].Function.Parameters)
	assert.Equal(t, "ping", defs[1].Function.Name)
	assert.Equal(t,
		map[string]any{"type": "object", "properties": map[string]any{}},
		defs[1].Function.Parameters,
	)
}
