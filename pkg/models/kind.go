package models

import "slices"

// Kind is the inferred kind of a value or column. Unlike ValueType, Kind is
// the result of classification: date is a distinct kind layered on top of
// string-shaped values.
type Kind string

const (
	KindString    Kind = "string"
	KindNumber    Kind = "number"
	KindBoolean   Kind = "boolean"
	KindDate      Kind = "date"
	KindObject    Kind = "object"
	KindArray     Kind = "array"
	KindNull      Kind = "null"
	KindUndefined Kind = "undefined"
)

// ValidKinds contains all valid inferred kind values.
var ValidKinds = []Kind{
	KindString,
	KindNumber,
	KindBoolean,
	KindDate,
	KindObject,
	KindArray,
	KindNull,
	KindUndefined,
}

// IsValidKind checks if the given kind is valid.
func IsValidKind(k Kind) bool {
	return slices.Contains(ValidKinds, k)
}
