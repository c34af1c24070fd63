package models

import (
	"slices"
	"time"
)

// ============================================================================
// Constraints
// ============================================================================

// ConstraintType identifies a field constraint derived during schema
// inference or supplied in a user-defined schema.
type ConstraintType string

const (
	ConstraintRequired  ConstraintType = "required"
	ConstraintUnique    ConstraintType = "unique"
	ConstraintMinLength ConstraintType = "min_length"
	ConstraintMaxLength ConstraintType = "max_length"
	ConstraintMinValue  ConstraintType = "min_value"
	ConstraintMaxValue  ConstraintType = "max_value"
	ConstraintMinDate   ConstraintType = "min_date"
	ConstraintMaxDate   ConstraintType = "max_date"
	ConstraintEnum      ConstraintType = "enum"
	ConstraintFormat    ConstraintType = "format"
)

// ValidConstraintTypes contains all valid constraint type values.
var ValidConstraintTypes = []ConstraintType{
	ConstraintRequired,
	ConstraintUnique,
	ConstraintMinLength,
	ConstraintMaxLength,
	ConstraintMinValue,
	ConstraintMaxValue,
	ConstraintMinDate,
	ConstraintMaxDate,
	ConstraintEnum,
	ConstraintFormat,
}

// IsValidConstraintType checks if the given constraint type is valid.
func IsValidConstraintType(t ConstraintType) bool {
	return slices.Contains(ValidConstraintTypes, t)
}

// Format constants for the format constraint.
const (
	FormatEmail = "email"
	FormatURL   = "url"
	FormatPhone = "phone"
)

// Constraint is a single field constraint. Value carries the constraint
// payload: nothing for required/unique, an int for length bounds, a float64
// for value bounds, a time.Time for date bounds, a []Value for enum, and a
// format name string for format.
type Constraint struct {
	Type  ConstraintType `json:"type"`
	Value any            `json:"value,omitempty"`
}

// ============================================================================
// Schema
// ============================================================================

// SchemaSource records where a schema came from. A defined schema always
// overrides an inferred one.
type SchemaSource string

const (
	SchemaSourceInferred SchemaSource = "inferred"
	SchemaSourceDefined  SchemaSource = "defined"
)

// FieldSchema describes one field of a table schema.
type FieldSchema struct {
	Type        Kind         `json:"type"`
	Nullable    bool         `json:"nullable"`
	Constraints []Constraint `json:"constraints,omitempty"`
}

// IndexType identifies the kind of a suggested index.
type IndexType string

const (
	IndexTypeUnique IndexType = "unique"
	IndexTypePlain  IndexType = "plain"
)

// IndexSuggestion is a recommended index derived from inference.
type IndexSuggestion struct {
	Field string    `json:"field"`
	Type  IndexType `json:"type"`
}

// Schema describes the inferred or user-defined structure of a table.
type Schema struct {
	TableName string `json:"table_name"`

	// Type is the structural type of the table's stored value: "array" for
	// record collections, otherwise the top-level value type.
	Type ValueType `json:"type"`

	Properties map[string]*FieldSchema `json:"properties"`

	// FieldOrder preserves first-seen field order across the sample so that
	// repeated inference over the same data renders identically.
	FieldOrder []string `json:"field_order,omitempty"`

	Indexes []IndexSuggestion `json:"indexes,omitempty"`

	Source SchemaSource `json:"source"`

	// Warnings carries non-fatal analysis notes (skipped malformed records,
	// truncated samples). Analysis never fails on sparse or messy data.
	Warnings []string `json:"warnings,omitempty"`

	GeneratedAt time.Time `json:"generated_at"`
}

// Field returns the schema for the named field, or nil if absent.
func (s *Schema) Field(name string) *FieldSchema {
	if s == nil || s.Properties == nil {
		return nil
	}
	return s.Properties[name]
}

// HasConstraint reports whether the named field carries a constraint of the
// given type.
func (f *FieldSchema) HasConstraint(t ConstraintType) bool {
	if f == nil {
		return false
	}
	for _, c := range f.Constraints {
		if c.Type == t {
			return true
		}
	}
	return false
}

// Constraint returns the first constraint of the given type, or nil.
func (f *FieldSchema) Constraint(t ConstraintType) *Constraint {
	if f == nil {
		return nil
	}
	for i := range f.Constraints {
		if f.Constraints[i].Type == t {
			return &f.Constraints[i]
		}
	}
	return nil
}
