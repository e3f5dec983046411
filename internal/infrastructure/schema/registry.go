// Package schema provides the record schema registry: one structural schema
// per entity type, loaded at startup, exposed through ports.Validator.
package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ersonp/canon-core/internal/domain/entities"
)

// Registry holds the loaded schemas. Read-only after Load; Validate is pure.
type Registry struct {
	schemas map[string]*entities.Schema
}

// NewRegistry creates a registry seeded with the built-in default schemas.
func NewRegistry() *Registry {
	r := &Registry{schemas: make(map[string]*entities.Schema, len(entities.DefaultSchemas))}
	for i := range entities.DefaultSchemas {
		s := entities.DefaultSchemas[i]
		r.schemas[s.Type] = &s
	}
	return r
}

// Load reads every *.yaml schema document in dir on top of the defaults.
// A document for an existing type replaces the default wholesale. A missing
// directory is not an error; the defaults stand.
func Load(dir string) (*Registry, error) {
	r := NewRegistry()

	names, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading schemas directory: %w", err)
	}

	for _, de := range names {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, de.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading schema %s: %w", de.Name(), err)
		}

		var s entities.Schema
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("parsing schema %s: %w", de.Name(), err)
		}
		if err := checkSchema(&s); err != nil {
			return nil, fmt.Errorf("invalid schema %s: %w", de.Name(), err)
		}
		r.schemas[s.Type] = &s
	}

	return r, nil
}

// WriteDefaults writes the built-in schemas as editable documents into dir.
// Existing files are left alone.
func WriteDefaults(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating schemas directory: %w", err)
	}
	for i := range entities.DefaultSchemas {
		s := entities.DefaultSchemas[i]
		path := filepath.Join(dir, s.Type+".yaml")
		if _, err := os.Stat(path); err == nil {
			continue
		}
		data, err := yaml.Marshal(&s)
		if err != nil {
			return fmt.Errorf("marshaling schema %s: %w", s.Type, err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("writing schema %s: %w", s.Type, err)
		}
	}
	return nil
}

// checkSchema validates a schema document itself.
func checkSchema(s *entities.Schema) error {
	if !entities.IsValidTypeName(s.Type) {
		return fmt.Errorf("bad type name %q", s.Type)
	}
	if len(s.Fields) == 0 {
		return fmt.Errorf("type %q declares no fields", s.Type)
	}
	for name, spec := range s.Fields {
		if !spec.Type.IsValid() {
			return fmt.Errorf("field %q has unknown type %q", name, spec.Type)
		}
		for _, other := range spec.ConflictsWith {
			if _, ok := s.Fields[other]; !ok {
				return fmt.Errorf("field %q conflicts with undeclared field %q", name, other)
			}
		}
		if a := spec.Asserts; a != nil {
			if a.Property == "" {
				return fmt.Errorf("field %q asserts an unnamed property", name)
			}
			if a.SubjectField != "" {
				sub, ok := s.Fields[a.SubjectField]
				if !ok {
					return fmt.Errorf("field %q asserts on undeclared subject field %q", name, a.SubjectField)
				}
				if !sub.Type.IsReference() {
					return fmt.Errorf("field %q asserts on non-reference subject field %q", name, a.SubjectField)
				}
			}
		}
	}
	return nil
}

// Schema returns the registered schema for a type.
func (r *Registry) Schema(entityType string) (*entities.Schema, error) {
	s, ok := r.schemas[entityType]
	if !ok {
		return nil, &entities.UnknownTypeError{Type: entityType}
	}
	return s, nil
}

// Types lists all registered type names, sorted.
func (r *Registry) Types() []string {
	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks fields against the schema registered for entityType.
// Every violation is reported, not just the first.
func (r *Registry) Validate(entityType string, fields map[string]any) ([]entities.SchemaError, error) {
	s, ok := r.schemas[entityType]
	if !ok {
		return nil, &entities.UnknownTypeError{Type: entityType}
	}

	var errs []entities.SchemaError

	for name, spec := range s.Fields {
		value, present := fields[name]
		if !present || value == nil {
			if spec.Required {
				errs = append(errs, entities.SchemaError{
					Field:      name,
					Constraint: "required",
					Message:    "required field is missing",
				})
			}
			continue
		}
		errs = append(errs, checkValue(name, spec, value)...)
	}

	for name := range fields {
		if _, ok := s.Fields[name]; !ok {
			errs = append(errs, entities.SchemaError{
				Field:      name,
				Constraint: "unknown_field",
				Message:    fmt.Sprintf("field not declared by schema %q", entityType),
			})
		}
	}

	sort.Slice(errs, func(i, j int) bool { return errs[i].Field < errs[j].Field })
	return errs, nil
}

// checkValue validates one field value against its spec.
func checkValue(name string, spec entities.FieldSpec, value any) []entities.SchemaError {
	var errs []entities.SchemaError

	fail := func(constraint, msg string) {
		errs = append(errs, entities.SchemaError{Field: name, Constraint: constraint, Message: msg})
	}

	switch spec.Type {
	case entities.FieldString:
		s, ok := value.(string)
		if !ok {
			fail("type", fmt.Sprintf("expected string, got %T", value))
			break
		}
		if len(spec.Enum) > 0 && !inEnum(spec.Enum, s) {
			fail("enum", fmt.Sprintf("value %q not in enum [%s]", s, strings.Join(spec.Enum, ", ")))
		}
	case entities.FieldNumber:
		if _, ok := asNumber(value); !ok {
			fail("type", fmt.Sprintf("expected number, got %T", value))
		}
	case entities.FieldBoolean:
		if _, ok := value.(bool); !ok {
			fail("type", fmt.Sprintf("expected boolean, got %T", value))
		}
	case entities.FieldReference:
		s, ok := value.(string)
		if !ok {
			fail("type", fmt.Sprintf("expected entity ID string, got %T", value))
			break
		}
		if !entities.IsEntityID(s) {
			fail("reference", fmt.Sprintf("value %q is not an entity ID", s))
		}
	case entities.FieldStringList:
		items, ok := asList(value)
		if !ok {
			fail("type", fmt.Sprintf("expected list of strings, got %T", value))
			break
		}
		for i, item := range items {
			if _, ok := item.(string); !ok {
				fail("type", fmt.Sprintf("element %d: expected string, got %T", i, item))
			}
		}
	case entities.FieldReferenceList:
		items, ok := asList(value)
		if !ok {
			fail("type", fmt.Sprintf("expected list of entity IDs, got %T", value))
			break
		}
		for i, item := range items {
			s, ok := item.(string)
			if !ok {
				fail("type", fmt.Sprintf("element %d: expected entity ID string, got %T", i, item))
				continue
			}
			if !entities.IsEntityID(s) {
				fail("reference", fmt.Sprintf("element %d: value %q is not an entity ID", i, s))
			}
		}
	}

	return errs
}

// asNumber accepts the numeric types JSON and YAML decoding produce.
func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// asList accepts both []any and []string.
func asList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case []string:
		items := make([]any, len(l))
		for i, s := range l {
			items[i] = s
		}
		return items, true
	}
	return nil, false
}

func inEnum(enum []string, v string) bool {
	for _, e := range enum {
		if e == v {
			return true
		}
	}
	return false
}
