package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// Relationship Types
// ============================================================================

// RelationshipType classifies the cardinality of a detected relationship.
type RelationshipType string

const (
	RelationshipOneToOne   RelationshipType = "one_to_one"
	RelationshipOneToMany  RelationshipType = "one_to_many"
	RelationshipManyToOne  RelationshipType = "many_to_one"
	RelationshipManyToMany RelationshipType = "many_to_many"
)

// ValidRelationshipTypes contains all valid relationship type values.
var ValidRelationshipTypes = []RelationshipType{
	RelationshipOneToOne,
	RelationshipOneToMany,
	RelationshipManyToOne,
	RelationshipManyToMany,
}

// IsValidRelationshipType checks if the given relationship type is valid.
func IsValidRelationshipType(t RelationshipType) bool {
	return slices.Contains(ValidRelationshipTypes, t)
}

// ============================================================================
// Key Candidates
// ============================================================================

// PKCandidate is a column selected as a table's probable primary key after
// name and value scoring. A table with no column reaching the score floor
// has no PK candidate at all rather than a low-confidence guess.
type PKCandidate struct {
	Column string `json:"column"`
	Score  int    `json:"score"`
}

// FKCandidate is a column flagged as a probable foreign key from the
// column's own name and value patterns, before any cross-table evidence.
type FKCandidate struct {
	Column string `json:"column"`
	Score  int    `json:"score"`

	// Confidence is the candidate's standalone confidence, score scaled
	// into [0,1].
	Confidence float64 `json:"confidence"`

	// GuessedTable is the referenced-table name extracted from the column
	// name (e.g. "user" from "user_id"), empty when none could be derived.
	GuessedTable string `json:"guessed_table,omitempty"`
}

// ============================================================================
// Relationship
// ============================================================================

// RelationshipMetadata carries the evidence behind a detected relationship.
type RelationshipMetadata struct {
	CandidateScore int     `json:"candidate_score"`
	GuessedTable   string  `json:"guessed_table,omitempty"`
	ValueOverlap   float64 `json:"value_overlap"`

	// MatchedOnPrimaryKey is true when the target column was the target
	// table's PK candidate, false when a weaker id-named column was used.
	MatchedOnPrimaryKey bool `json:"matched_on_primary_key"`
}

// Relationship is a cross-table reference detected between a foreign-key
// candidate column and a target table's key column.
type Relationship struct {
	ID         uuid.UUID        `json:"id"`
	FromTable  string           `json:"from_table"`
	FromColumn string           `json:"from_column"`
	ToTable    string           `json:"to_table"`
	ToColumn   string           `json:"to_column"`
	Type       RelationshipType `json:"type"`

	// Confidence is a heuristic plausibility score, always in [0,1]. It is
	// not a statistical probability.
	Confidence float64 `json:"confidence"`

	DetectedAt time.Time            `json:"detected_at"`
	Metadata   RelationshipMetadata `json:"metadata"`
}

// PairKey returns the unordered endpoint key used for deduplication: for any
// pair of endpoints the same key is produced regardless of direction.
func (r *Relationship) PairKey() string {
	a := r.FromTable + "." + r.FromColumn
	b := r.ToTable + "." + r.ToColumn
	if a <= b {
		return a + "--" + b
	}
	return b + "--" + a
}
