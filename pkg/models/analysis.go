package models

import "time"

// ============================================================================
// Per-Table Analysis
// ============================================================================

// TableAnalysis is the full per-table profile produced by relationship
// analysis: column statistics plus key candidates.
type TableAnalysis struct {
	TableName string `json:"table_name"`

	// RecordCount is the total record count in the store; SampledCount is
	// how many records the analysis actually examined.
	RecordCount  int `json:"record_count"`
	SampledCount int `json:"sampled_count"`

	Columns map[string]*ColumnAnalysis `json:"columns"`

	// ColumnOrder preserves first-seen column order for deterministic
	// iteration over Columns.
	ColumnOrder []string `json:"column_order,omitempty"`

	PrimaryKey  *PKCandidate   `json:"primary_key,omitempty"`
	ForeignKeys []*FKCandidate `json:"foreign_keys,omitempty"`

	Warnings []string `json:"warnings,omitempty"`

	AnalyzedAt time.Time `json:"analyzed_at"`
}

// Column returns the analysis for the named column, or nil if absent.
func (a *TableAnalysis) Column(name string) *ColumnAnalysis {
	if a == nil || a.Columns == nil {
		return nil
	}
	return a.Columns[name]
}

// ============================================================================
// Confidence Distribution
// ============================================================================

// Confidence band boundaries. These are fixed constants consumed by the
// statistics output; renderers depend on the exact cut points.
const (
	ConfidenceHighFloor   = 0.8
	ConfidenceMediumFloor = 0.6
	ConfidenceLowFloor    = 0.4
)

// ConfidenceDistribution counts relationships per confidence band.
type ConfidenceDistribution struct {
	High    int `json:"high"`     // >= 0.8
	Medium  int `json:"medium"`   // >= 0.6
	Low     int `json:"low"`      // >= 0.4
	VeryLow int `json:"very_low"` // < 0.4
}

// Add records a confidence value into the matching band.
func (d *ConfidenceDistribution) Add(confidence float64) {
	switch {
	case confidence >= ConfidenceHighFloor:
		d.High++
	case confidence >= ConfidenceMediumFloor:
		d.Medium++
	case confidence >= ConfidenceLowFloor:
		d.Low++
	default:
		d.VeryLow++
	}
}

// ============================================================================
// Reports
// ============================================================================

// AnalysisStatistics summarizes a full relationship-analysis pass.
type AnalysisStatistics struct {
	TotalTables            int                    `json:"total_tables"`
	TablesWithData         int                    `json:"tables_with_data"`
	RelationshipsFound     int                    `json:"relationships_found"`
	ConfidenceDistribution ConfidenceDistribution `json:"confidence_distribution"`
}

// AnalysisReport is the output of a full cross-table relationship analysis.
// Relationships are sorted descending by confidence; consumers rely on that
// ordering.
type AnalysisReport struct {
	Tables        map[string]*TableAnalysis `json:"tables"`
	Relationships []*Relationship           `json:"relationships"`
	Statistics    AnalysisStatistics        `json:"statistics"`
}

// EngineReport is the combined output of the analysis facade: per-table
// schemas and analyses, the relationship list, statistics, and the ERD.
type EngineReport struct {
	Schemas       map[string]*Schema        `json:"schemas"`
	Tables        map[string]*TableAnalysis `json:"tables"`
	Relationships []*Relationship           `json:"relationships"`
	Statistics    AnalysisStatistics        `json:"statistics"`
	ERD           *ERD                      `json:"erd"`
	GeneratedAt   time.Time                 `json:"generated_at"`
}
