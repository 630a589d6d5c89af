// Package schema compiles tool parameter schemas, validates proposed
// arguments against them, and normalizes validated arguments.
//
// # Quick Start
//
//	params := schema.Object(map[string]*schema.Property{
//	    "path":  schema.String("File to read"),
//	    "limit": schema.Integer("Max lines").Min(1).Default(100),
//	}, "path") // "path" is required
//
//	s, err := schema.Compile(schema.WithTitle(params, "read_file_arguments", ""))
//	if err != nil {
//	    return err
//	}
//	if err := s.Validate(args); err != nil {
//	    return err // *schema.ValidationError
//	}
//	args = schema.Normalize(args, s.Raw())
//
// The tool-call builder in the toolchain package runs exactly this pipeline
// for every call a driver proposes.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Schema is a parameter schema in two forms: the raw map handed to models
// and a compiled validator used at runtime.
type Schema struct {
	raw      map[string]any
	compiled *jsonschema.Schema
}

// Raw returns the underlying map[string]any representation.
func (s *Schema) Raw() map[string]any {
	if s == nil {
		return nil
	}
	return s.raw
}

// Validate validates data against the schema.
//
// Data is round-tripped through JSON first so that Go-native values (int64,
// typed slices, structs) are judged the same way a model's JSON output would
// be. Returns nil if valid, or a *ValidationError.
func (s *Schema) Validate(data map[string]any) error {
	if s == nil || s.compiled == nil {
		return nil
	}

	instance, err := toInstance(data)
	if err != nil {
		return &ValidationError{Err: err}
	}
	if err := s.compiled.Validate(instance); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

func toInstance(data map[string]any) (any, error) {
	if data == nil {
		data = map[string]any{}
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("arguments are not JSON encodable: %w", err)
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(encoded))
}

// ValidationError wraps a JSON Schema validation error with a cleaner message.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema validation failed: %v", e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Compile compiles a raw schema map into a Schema with a compiled validator.
// A nil map compiles to a nil *Schema, which accepts everything.
func Compile(raw map[string]any) (*Schema, error) {
	if raw == nil {
		return nil, nil
	}

	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", doc); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}

	compiled, err := c.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	return &Schema{
		raw:      raw,
		compiled: compiled,
	}, nil
}

// MustCompile is like Compile but panics on error.
// Use this for schemas defined at init time.
func MustCompile(raw map[string]any) *Schema {
	s, err := Compile(raw)
	if err != nil {
		panic(err)
	}
	return s
}

// WithTitle returns a shallow copy of raw with "x-title" and "description"
// set, unless raw already declares them. An empty description leaves the key
// untouched. The input map is not modified.
func WithTitle(raw map[string]any, title, description string) map[string]any {
	out := maps.Clone(raw)
	if out == nil {
		out = map[string]any{}
	}
	if _, ok := out["x-title"]; !ok && title != "" {
		out["x-title"] = title
	}
	if _, ok := out["description"]; !ok && description != "" {
		out["description"] = description
	}
	return out
}

// -----------------------------------------------------------------------------
// Parameter builders
// -----------------------------------------------------------------------------

// Object returns the parameters schema of a tool. Names passed after the
// properties are required.
//
//	schema.Object(map[string]*schema.Property{
//	    "specification": schema.String("What to plan"),
//	    "depth":         schema.Integer("Plan depth").Min(1),
//	}, "specification")
func Object(properties map[string]*Property, required ...string) map[string]any {
	out := map[string]any{
		"type":       "object",
		"properties": buildAll(properties),
	}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

// Property is one keyword set of a parameter. Modifiers change the receiver
// and return it for chaining.
type Property struct {
	keywords map[string]any
}

func newProperty(typ, description string) *Property {
	p := &Property{keywords: map[string]any{"type": typ}}
	if description != "" {
		p.keywords["description"] = description
	}
	return p
}

func (p *Property) set(keyword string, value any) *Property {
	p.keywords[keyword] = value
	return p
}

func (p *Property) build() map[string]any {
	return maps.Clone(p.keywords)
}

func buildAll(properties map[string]*Property) map[string]any {
	out := make(map[string]any, len(properties))
	for name, prop := range properties {
		out[name] = prop.build()
	}
	return out
}

// String returns a string parameter.
func String(description string) *Property { return newProperty("string", description) }

// Integer returns an integer parameter.
func Integer(description string) *Property { return newProperty("integer", description) }

// Nested returns an object parameter with its own properties.
func Nested(description string, properties map[string]*Property, required ...string) *Property {
	p := newProperty("object", description).set("properties", buildAll(properties))
	if len(required) > 0 {
		p.set("required", required)
	}
	return p
}

// Enum restricts the parameter to values.
func (p *Property) Enum(values ...any) *Property { return p.set("enum", values) }

// Min sets the inclusive lower bound of an integer.
func (p *Property) Min(min float64) *Property { return p.set("minimum", min) }

// Max sets the inclusive upper bound of an integer.
func (p *Property) Max(max float64) *Property { return p.set("maximum", max) }

// MinLength sets the minimum length of a string.
func (p *Property) MinLength(n int) *Property { return p.set("minLength", n) }

// Default documents the value a tool assumes when the parameter is omitted.
func (p *Property) Default(value any) *Property { return p.set("default", value) }
