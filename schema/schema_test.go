package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile(t *testing.T) {
	type input struct {
		raw map[string]any
	}

	type expected struct {
		isNil  bool
		hasErr bool
	}

	tests := []struct {
		name     string
		input    input
		expected expected
	}{
		{
			name:     "nil schema returns nil",
			input:    input{raw: nil},
			expected: expected{isNil: true},
		},
		{
			name: "valid schema compiles",
			input: input{
				raw: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"specification": map[string]any{"type": "string"},
					},
				},
			},
			expected: expected{},
		},
		{
			name: "unknown type is rejected",
			input: input{
				raw: map[string]any{"type": "banana"},
			},
			expected: expected{isNil: true, hasErr: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Compile(tt.input.raw)

			if tt.expected.hasErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			if tt.expected.isNil {
				assert.Nil(t, s)
			} else {
				require.NotNil(t, s)
				assert.Equal(t, tt.input.raw, s.Raw())
			}
		})
	}
}

func TestSchema_Validate(t *testing.T) {
	specSchema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"specification": map[string]any{"type": "string"},
			"limit":         map[string]any{"type": "integer"},
		},
		"required": []any{"specification"},
	}

	type input struct {
		data map[string]any
	}

	type expected struct {
		hasErr bool
	}

	tests := []struct {
		name     string
		input    input
		expected expected
	}{
		{
			name: "valid data passes",
			input: input{data: map[string]any{
				"specification": "Goal: X",
				"limit":         3,
			}},
			expected: expected{hasErr: false},
		},
		{
			name:     "missing required field fails",
			input:    input{data: map[string]any{"limit": 3}},
			expected: expected{hasErr: true},
		},
		{
			name:     "nil data is treated as empty object",
			input:    input{data: nil},
			expected: expected{hasErr: true},
		},
		{
			name: "wrong type fails",
			input: input{data: map[string]any{
				"specification": "Goal: X",
				"limit":         "three",
			}},
			expected: expected{hasErr: true},
		},
		{
			name: "go-native integer types pass",
			input: input{data: map[string]any{
				"specification": "Goal: X",
				"limit":         int64(7),
			}},
			expected: expected{hasErr: false},
		},
	}

	s, err := Compile(specSchema)
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Validate(tt.input.data)

			if tt.expected.hasErr {
				require.Error(t, err)
				var verr *ValidationError
				assert.True(t, errors.As(err, &verr), "expected *ValidationError, got %T", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSchema_Validate_NilSchema(t *testing.T) {
	var s *Schema
	err := s.Validate(map[string]any{"foo": "bar"})
	assert.NoError(t, err, "nil schema should always pass validation")
}

func TestMustCompile_PanicsOnInvalidSchema(t *testing.T) {
	assert.Panics(t, func() {
		MustCompile(map[string]any{"type": 42})
	})
	assert.NotPanics(t, func() {
		MustCompile(map[string]any{"type": "object"})
	})
}

func TestWithTitle(t *testing.T) {
	type input struct {
		raw         map[string]any
		title       string
		description string
	}

	type expected struct {
		title       any
		description any
	}

	tests := []struct {
		name     string
		input    input
		expected expected
	}{
		{
			name: "synthesizes missing keys",
			input: input{
				raw:         map[string]any{"type": "object"},
				title:       "read_file_arguments",
				description: "Arguments for read_file",
			},
			expected: expected{
				title:       "read_file_arguments",
				description: "Arguments for read_file",
			},
		},
		{
			name: "keeps declared keys",
			input: input{
				raw: map[string]any{
					"type":        "object",
					"x-title":     "custom",
					"description": "Declared",
				},
				title:       "read_file_arguments",
				description: "Arguments for read_file",
			},
			expected: expected{title: "custom", description: "Declared"},
		},
		{
			name:     "nil schema becomes a titled map",
			input:    input{raw: nil, title: "t", description: "d"},
			expected: expected{title: "t", description: "d"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := WithTitle(tt.input.raw, tt.input.title, tt.input.description)

			assert.Equal(t, tt.expected.title, result["x-title"])
			assert.Equal(t, tt.expected.description, result["description"])
			if tt.input.raw != nil {
				_, touched := tt.input.raw["x-title"]
				assert.Equal(t, tt.input.raw["x-title"] != nil, touched, "input must not be modified")
			}
		})
	}
}

func TestObject_Basic(t *testing.T) {
	raw := Object(map[string]*Property{
		"specification": String("What to plan"),
		"depth":         Integer("Plan depth"),
	}, "specification")

	assert.Equal(t, "object", raw["type"])

	props, ok := raw["properties"].(map[string]any)
	require.True(t, ok, "expected properties map")
	assert.Len(t, props, 2)
	assert.Equal(t, []string{"specification"}, raw["required"])
}

func TestProperty_Build(t *testing.T) {
	tests := []struct {
		name     string
		prop     *Property
		expected map[string]any
	}{
		{
			name:     "string with minimum length",
			prop:     String("A path").MinLength(1),
			expected: map[string]any{"type": "string", "description": "A path", "minLength": 1},
		},
		{
			name:     "no description",
			prop:     String(""),
			expected: map[string]any{"type": "string"},
		},
		{
			name: "integer with bounds and default",
			prop: Integer("Lines").Min(1).Max(500).Default(100),
			expected: map[string]any{
				"type":        "integer",
				"description": "Lines",
				"minimum":     float64(1),
				"maximum":     float64(500),
				"default":     100,
			},
		},
		{
			name: "enum",
			prop: String("Mode").Enum("fast", "slow"),
			expected: map[string]any{
				"type":        "string",
				"description": "Mode",
				"enum":        []any{"fast", "slow"},
			},
		},
		{
			name: "nested object",
			prop: Nested("Options", map[string]*Property{
				"depth": Integer("Depth"),
			}, "depth"),
			expected: map[string]any{
				"type":        "object",
				"description": "Options",
				"properties": map[string]any{
					"depth": map[string]any{"type": "integer", "description": "Depth"},
				},
				"required": []string{"depth"},
			},
		},
		{
			name: "nested object without required",
			prop: Nested("Options", nil),
			expected: map[string]any{
				"type":        "object",
				"description": "Options",
				"properties":  map[string]any{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.prop.build())
		})
	}
}

func TestProperty_BuildReturnsCopy(t *testing.T) {
	prop := String("A path")

	built := prop.build()
	built["description"] = "changed"

	assert.Equal(t, "A path", prop.build()["description"])
}

func TestValidationError(t *testing.T) {
	inner := errors.New("missing property 'specification'")
	err := &ValidationError{Err: inner}

	assert.Equal(t, "schema validation failed: missing property 'specification'", err.Error())
	assert.ErrorIs(t, err, inner)
}

func TestBuilderSchema_Validation(t *testing.T) {
	raw := Object(map[string]*Property{
		"path":  String("File path").MinLength(1),
		"lines": Integer("Max lines").Min(1).Max(1000),
	}, "path")

	s, err := Compile(raw)
	require.NoError(t, err)

	assert.NoError(t, s.Validate(map[string]any{"path": "README.md", "lines": 10}))
	assert.Error(t, s.Validate(map[string]any{"path": ""}))
	assert.Error(t, s.Validate(map[string]any{"path": "README.md", "lines": 0}))
	assert.Error(t, s.Validate(map[string]any{"lines": 10}))
}
