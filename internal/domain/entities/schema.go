package entities

// FieldType is the primitive type a schema declares for a field.
type FieldType string

const (
	FieldString        FieldType = "string"
	FieldNumber        FieldType = "number"
	FieldBoolean       FieldType = "boolean"
	FieldReference     FieldType = "reference"
	FieldStringList    FieldType = "string_list"
	FieldReferenceList FieldType = "reference_list"
)

// IsValid returns true if the field type is a known value.
func (t FieldType) IsValid() bool {
	switch t {
	case FieldString, FieldNumber, FieldBoolean, FieldReference, FieldStringList, FieldReferenceList:
		return true
	}
	return false
}

// IsReference reports whether values of this type point at other entities.
func (t FieldType) IsReference() bool {
	return t == FieldReference || t == FieldReferenceList
}

// Assertion declares that a field asserts a numeric property about a subject.
// Subject defaults to the entity itself; SubjectField names a reference field
// on the same entity whose target is the subject instead. When Unlimited is
// set the field asserts the property has no finite value; otherwise the
// field's own numeric value is asserted. When restricts the assertion to a
// specific field value ("true" for booleans, an enum member for strings).
type Assertion struct {
	Property     string `yaml:"property" json:"property"`
	Unlimited    bool   `yaml:"unlimited,omitempty" json:"unlimited,omitempty"`
	When         string `yaml:"when,omitempty" json:"when,omitempty"`
	SubjectField string `yaml:"subject_field,omitempty" json:"subject_field,omitempty"`
}

// FieldSpec declares the constraints for one schema field.
type FieldSpec struct {
	Type          FieldType  `yaml:"type" json:"type"`
	Required      bool       `yaml:"required,omitempty" json:"required,omitempty"`
	Enum          []string   `yaml:"enum,omitempty" json:"enum,omitempty"`
	ConflictsWith []string   `yaml:"conflicts_with,omitempty" json:"conflicts_with,omitempty"`
	Asserts       *Assertion `yaml:"asserts,omitempty" json:"asserts,omitempty"`
	Description   string     `yaml:"description,omitempty" json:"description,omitempty"`
}

// Schema is the structural contract for one entity type.
type Schema struct {
	Type        string               `yaml:"type" json:"type"`
	Description string               `yaml:"description,omitempty" json:"description,omitempty"`
	Fields      map[string]FieldSpec `yaml:"fields" json:"fields"`
}

// ReferenceFields returns the names of fields whose values point at other
// entities, sorted order not guaranteed.
func (s *Schema) ReferenceFields() []string {
	var names []string
	for name, spec := range s.Fields {
		if spec.Type.IsReference() {
			names = append(names, name)
		}
	}
	return names
}
