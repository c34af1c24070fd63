package models

import "time"

// ERDColumn is a column entry on an ERD node. PK/FK flags come from the
// table's own analysis, not from retained relationships: a column can be
// flagged as an FK candidate even when no relationship met the confidence
// threshold.
type ERDColumn struct {
	Name         string `json:"name"`
	Type         Kind   `json:"type"`
	IsPrimaryKey bool   `json:"is_primary_key"`
	IsForeignKey bool   `json:"is_foreign_key"`
}

// ERDNode is one table in the entity-relationship diagram.
type ERDNode struct {
	ID          string      `json:"id"`
	Label       string      `json:"label"`
	RecordCount int         `json:"record_count"`
	Columns     []ERDColumn `json:"columns"`
}

// ERDEdge is one retained relationship in the diagram.
type ERDEdge struct {
	ID         string           `json:"id"`
	From       string           `json:"from"`
	To         string           `json:"to"`
	FromColumn string           `json:"from_column"`
	ToColumn   string           `json:"to_column"`
	Label      string           `json:"label"`
	Type       RelationshipType `json:"type"`
	Confidence float64          `json:"confidence"`
}

// ERDMetadata describes how the diagram was produced.
type ERDMetadata struct {
	GeneratedAt       time.Time `json:"generated_at"`
	TableCount        int       `json:"table_count"`
	RelationshipCount int       `json:"relationship_count"`
}

// ERD is the renderable entity-relationship diagram: one node per table, one
// edge per retained relationship.
type ERD struct {
	Nodes    []ERDNode   `json:"nodes"`
	Edges    []ERDEdge   `json:"edges"`
	Metadata ERDMetadata `json:"metadata"`
}
