package models

import "time"

// ============================================================================
// Column Patterns
// ============================================================================

// ColumnPatterns holds name- and value-shape heuristics detected for a
// column. Name heuristics (is_id, is_foreign_key, has_reference_suffix) look
// only at the column name; value heuristics (is_uuid, is_numeric_id,
// is_email, is_url, is_phone) hold only when every sampled non-null value
// matches the pattern.
type ColumnPatterns struct {
	IsID               bool `json:"is_id"`
	IsForeignKey       bool `json:"is_foreign_key"`
	IsUUID             bool `json:"is_uuid"`
	IsNumericID        bool `json:"is_numeric_id"`
	IsEmail            bool `json:"is_email"`
	IsURL              bool `json:"is_url"`
	IsPhone            bool `json:"is_phone"`
	HasReferenceSuffix bool `json:"has_reference_suffix"`
}

// ============================================================================
// Type-Specific Statistics
// ============================================================================

// StringStats holds length statistics for string-kinded columns.
type StringStats struct {
	MinLength int     `json:"min_length"`
	MaxLength int     `json:"max_length"`
	AvgLength float64 `json:"avg_length"`
}

// NumberStats holds value statistics for number-kinded columns.
type NumberStats struct {
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Avg       float64 `json:"avg"`
	Median    float64 `json:"median"`
	IsInteger bool    `json:"is_integer"`
}

// DateStats holds range statistics for date-kinded columns.
type DateStats struct {
	Earliest time.Time `json:"earliest"`
	Latest   time.Time `json:"latest"`
	SpanDays float64   `json:"span_days"`
	// FormatVariants lists the distinct date formats seen in the sample
	// (e.g. "2006-01-02" and RFC 3339 in the same column).
	FormatVariants []string `json:"format_variants,omitempty"`
}

// ============================================================================
// Column Analysis
// ============================================================================

// ColumnAnalysis is the per-field statistical and type profile computed from
// a record sample. It feeds both schema inference and relationship discovery.
type ColumnAnalysis struct {
	Name string `json:"name"`
	Type Kind   `json:"type"`

	// Nullable is true when the field is missing or null in at least one
	// sampled record.
	Nullable bool `json:"nullable"`

	// Unique is true when every sampled non-null value is distinct and at
	// least two non-null values were observed.
	Unique bool `json:"unique"`

	// Frequency is the fraction of sampled records that contain the field.
	Frequency float64 `json:"frequency"`

	// Cardinality is the count of distinct non-null values in the sample.
	Cardinality int `json:"cardinality"`

	// NonNullCount is the count of sampled records where the field is
	// present and non-null.
	NonNullCount int `json:"non_null_count"`

	// Examples holds up to a handful of sampled values for display.
	Examples []Value `json:"examples,omitempty"`

	Patterns ColumnPatterns `json:"patterns"`

	StringStats *StringStats `json:"string_stats,omitempty"`
	NumberStats *NumberStats `json:"number_stats,omitempty"`
	DateStats   *DateStats   `json:"date_stats,omitempty"`
}
