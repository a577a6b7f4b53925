package llms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"
)

// Schema names and describes the JSON document a structured call must return.
type Schema struct {
	Name        string
	Description string
	Definition  *jsonschema.Definition
}

// Validator is implemented by structured result types that carry
// constraints the JSON schema cannot express, such as list bounds.
type Validator interface {
	Validate() error
}

// SchemaFor derives a schema from the Go type T.
func SchemaFor[T any](name, description string) (*Schema, error) {
	var v T
	def, err := jsonschema.GenerateSchemaForType(v)
	if err != nil {
		return nil, fmt.Errorf("generate schema for %s: %w", name, err)
	}
	return &Schema{Name: name, Description: description, Definition: def}, nil
}

// JSON renders the schema definition, for providers that take it in the prompt.
func (s *Schema) JSON() string {
	if s == nil || s.Definition == nil {
		return "{}"
	}
	b, err := json.Marshal(s.Definition)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// Structured performs a structured-output call and decodes the answer into T.
func Structured[T any](ctx context.Context, c Client, messages []Message, name, description string) (T, error) {
	var zero T
	schema, err := SchemaFor[T](name, description)
	if err != nil {
		return zero, err
	}
	raw, err := c.GenerateStructured(ctx, messages, schema)
	if err != nil {
		return zero, err
	}
	return Decode[T](raw)
}

// Decode strictly decodes raw into T. Unknown fields, missing
// required fields, trailing data and failed validation all return
// ErrSchemaMismatch; nothing is defaulted.
func Decode[T any](raw string) (T, error) {
	var out T
	text := stripCodeFence(raw)
	if text == "" {
		return out, fmt.Errorf("%w: empty document", ErrSchemaMismatch)
	}

	dec := json.NewDecoder(strings.NewReader(text))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return out, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	if dec.More() {
		return out, fmt.Errorf("%w: trailing data after document", ErrSchemaMismatch)
	}
	if err := checkRequired[T](text); err != nil {
		return out, err
	}
	if v, ok := any(&out).(Validator); ok {
		if err := v.Validate(); err != nil {
			return out, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
		}
	}
	return out, nil
}

// checkRequired verifies the top-level properties the schema marks required are present.
func checkRequired[T any](text string) error {
	var v T
	def, err := jsonschema.GenerateSchemaForType(v)
	if err != nil || len(def.Required) == 0 {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return fmt.Errorf("%w: expected an object", ErrSchemaMismatch)
	}
	for _, name := range def.Required {
		value, ok := fields[name]
		if !ok || bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
			return fmt.Errorf("%w: missing required field %q", ErrSchemaMismatch, name)
		}
	}
	return nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
