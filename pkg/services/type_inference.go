package services

import (
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/keyscope-dev/keyscope-engine/pkg/models"
)

// InferKind classifies a value into its inferred kind. Classification
// precedence: null > undefined > boolean > number > string (split into date
// vs plain string) > array > object. Total and deterministic over every
// JSON-representable input.
func InferKind(v models.Value) models.Kind {
	switch v.Type() {
	case models.ValueTypeNull:
		return models.KindNull
	case models.ValueTypeUndefined:
		return models.KindUndefined
	case models.ValueTypeBoolean:
		return models.KindBoolean
	case models.ValueTypeNumber:
		return models.KindNumber
	case models.ValueTypeString:
		s, _ := v.AsString()
		if IsDateString(s) {
			return models.KindDate
		}
		return models.KindString
	case models.ValueTypeArray:
		return models.KindArray
	case models.ValueTypeObject:
		return models.KindObject
	default:
		return models.KindString
	}
}

// Date format variant names reported in DateStats.
const (
	dateVariantISODate = "YYYY-MM-DD"
	dateVariantISO8601 = "ISO-8601"
	dateVariantSlash   = "M/D/YYYY"
	dateVariantDash    = "M-D-YYYY"
)

var (
	isoDatePattern     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	isoDateTimePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}`)
	slashDatePattern   = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`)
	dashDatePattern    = regexp.MustCompile(`^\d{1,2}-\d{1,2}-\d{4}$`)
)

// isoDateTimeLayouts are tried in order for ISO-8601 datetime strings.
var isoDateTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// ParseDate parses a string against the fixed set of recognized date
// patterns. A pattern match alone is insufficient: the string must also
// parse to a valid calendar date. Returns the parsed time, the format
// variant name, and whether the string is a date.
func ParseDate(s string) (time.Time, string, bool) {
	switch {
	case isoDatePattern.MatchString(s):
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return time.Time{}, "", false
		}
		return t, dateVariantISODate, true

	case isoDateTimePattern.MatchString(s):
		for _, layout := range isoDateTimeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, dateVariantISO8601, true
			}
		}
		return time.Time{}, "", false

	case slashDatePattern.MatchString(s):
		t, err := time.Parse("1/2/2006", s)
		if err != nil {
			return time.Time{}, "", false
		}
		return t, dateVariantSlash, true

	case dashDatePattern.MatchString(s):
		t, err := time.Parse("1-2-2006", s)
		if err != nil {
			return time.Time{}, "", false
		}
		return t, dateVariantDash, true
	}
	return time.Time{}, "", false
}

// IsDateString reports whether s matches one of the recognized date patterns
// and parses to a valid calendar date.
func IsDateString(s string) bool {
	_, _, ok := ParseDate(s)
	return ok
}

// valuePatterns are matched against column DATA (not column names). A value
// pattern holds for a column only when every sampled non-null value matches.
var (
	numericIDPattern = regexp.MustCompile(`^\d+$`)
	emailPattern     = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	urlPattern       = regexp.MustCompile(`^https?://`)
	phonePattern     = regexp.MustCompile(`^\+?[\d\s().-]{7,}$`)
)

// isUUIDValue reports whether s is a canonical UUID. The regex-shaped quick
// check is delegated to uuid.Validate, which also accepts the canonical
// variants we care about.
func isUUIDValue(s string) bool {
	return uuid.Validate(s) == nil
}
