// Package manifest defines the agent manifest model and its validation.
// Validation is schema-driven: an explicit field description (name →
// type + constraints) is checked by a generic walker that accumulates
// every problem instead of stopping at the first, then the raw document
// is normalized into the typed model. No reflection is involved.
package manifest

import (
	"fmt"
	"strings"

	"github.com/rvachev/trustgate/internal/errclass"
)

// FieldType enumerates the value shapes the validator understands.
type FieldType string

const (
	TypeString FieldType = "string"
	TypeBool   FieldType = "bool"
	TypeInt    FieldType = "int"
	TypeMap    FieldType = "map"
	TypeList   FieldType = "list"
)

// FieldSpec describes one field: its type and constraints.
type FieldSpec struct {
	Type     FieldType
	Required bool
	Enum     []string // string fields only
	Fields   *Schema  // map fields: nested schema
	Elem     *Schema  // list fields: schema of each element (maps)
}

// Schema is an explicit field description for one document level.
// Unknown fields pass through: manifests may carry vendor extensions.
type Schema struct {
	Fields map[string]FieldSpec
}

// FieldError is a structural or type failure at one field path.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// SchemaError is a fatal validation failure carrying every offending
// field. It matches errclass.ErrSchema via errors.Is.
type SchemaError struct {
	Errors []FieldError
}

func (e *SchemaError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fmt.Sprintf("%s: %s", fe.Path, fe.Message)
	}
	return fmt.Sprintf("%s: %s", errclass.ErrSchema.Code, strings.Join(parts, "; "))
}

func (e *SchemaError) Is(target error) bool {
	t, ok := target.(*errclass.Error)
	return ok && t.Code == errclass.ErrSchema.Code
}

// Validate checks doc against the schema and returns every field error
// found. A nil result means the document is structurally valid.
func (s *Schema) Validate(doc map[string]any) []FieldError {
	return s.validate(doc, "")
}

func (s *Schema) validate(doc map[string]any, prefix string) []FieldError {
	var errs []FieldError

	for name, spec := range s.Fields {
		path := name
		if prefix != "" {
			path = prefix + "." + name
		}

		raw, ok := doc[name]
		if !ok || raw == nil {
			if spec.Required {
				errs = append(errs, FieldError{Path: path, Message: "required field is missing"})
			}
			continue
		}

		switch spec.Type {
		case TypeString:
			str, ok := raw.(string)
			if !ok {
				errs = append(errs, FieldError{Path: path, Message: fmt.Sprintf("expected string, got %T", raw)})
				continue
			}
			if len(spec.Enum) > 0 && !contains(spec.Enum, str) {
				errs = append(errs, FieldError{Path: path, Message: fmt.Sprintf("%q is not one of %v", str, spec.Enum)})
			}

		case TypeBool:
			if _, ok := raw.(bool); !ok {
				errs = append(errs, FieldError{Path: path, Message: fmt.Sprintf("expected bool, got %T", raw)})
			}

		case TypeInt:
			if _, ok := raw.(int); !ok {
				errs = append(errs, FieldError{Path: path, Message: fmt.Sprintf("expected integer, got %T", raw)})
			}

		case TypeMap:
			m, ok := raw.(map[string]any)
			if !ok {
				errs = append(errs, FieldError{Path: path, Message: fmt.Sprintf("expected mapping, got %T", raw)})
				continue
			}
			if spec.Fields != nil {
				errs = append(errs, spec.Fields.validate(m, path)...)
			}

		case TypeList:
			list, ok := raw.([]any)
			if !ok {
				errs = append(errs, FieldError{Path: path, Message: fmt.Sprintf("expected sequence, got %T", raw)})
				continue
			}
			if spec.Elem != nil {
				for i, item := range list {
					itemPath := fmt.Sprintf("%s[%d]", path, i)
					m, ok := item.(map[string]any)
					if !ok {
						errs = append(errs, FieldError{Path: itemPath, Message: fmt.Sprintf("expected mapping, got %T", item)})
						continue
					}
					errs = append(errs, spec.Elem.validate(m, itemPath)...)
				}
			}
		}
	}

	return errs
}

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
