// Package schema compiles JSON-Schema documents and validates structured
// values against them.
//
// Schemas are compiled once at tool registration time; validation happens on
// every call, so compiled schemas are safe for concurrent use.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Schema is a compiled JSON-Schema document.
type Schema struct {
	compiled *jsonschema.Schema
	doc      map[string]any
}

// Compile compiles a JSON-Schema document.
// The document is normalized through a JSON round-trip so schemas authored as
// Go literals compile the same as schemas decoded from the wire.
func Compile(doc map[string]any) (*Schema, error) {
	if doc == nil {
		return nil, fmt.Errorf("schema document is nil")
	}

	normalized, err := normalize(doc)
	if err != nil {
		return nil, fmt.Errorf("normalize schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", normalized); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := c.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	return &Schema{compiled: compiled, doc: doc}, nil
}

// MustCompile compiles a schema document and panics on failure.
// Intended for static schemas registered at startup.
func MustCompile(doc map[string]any) *Schema {
	s, err := Compile(doc)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks value against the schema.
// The value is normalized through a JSON round-trip first, so maps holding Go
// ints validate the same as decoded JSON numbers.
func (s *Schema) Validate(value any) error {
	normalized, err := normalize(value)
	if err != nil {
		return fmt.Errorf("normalize value: %w", err)
	}

	if err := s.compiled.Validate(normalized); err != nil {
		return err
	}
	return nil
}

// Document returns the original schema document as given to Compile.
// Adapters serialize this when listing tools.
func (s *Schema) Document() map[string]any {
	return s.doc
}

// normalize round-trips a value through encoding/json so it matches the shapes
// the validator expects (map[string]any, []any, float64, string, bool, nil).
func normalize(value any) (any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
