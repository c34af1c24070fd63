package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/keyscope-dev/keyscope-engine/pkg/adapters/store"
	"github.com/keyscope-dev/keyscope-engine/pkg/apperrors"
	"github.com/keyscope-dev/keyscope-engine/pkg/config"
	"github.com/keyscope-dev/keyscope-engine/pkg/models"
)

// Schema inference tunables. The enum rule is a density heuristic: a field
// qualifies when the sample shows few distinct values repeated often enough,
// not a guarantee that the value set is complete.
const (
	// enumMaxDistinct is the most distinct values a field may have and
	// still receive an enum constraint.
	enumMaxDistinct = 10

	// enumMinDensityRatio requires at least this many observations per
	// distinct value before an enum constraint is attached.
	enumMinDensityRatio = 2

	// maxRecordedStringLength suppresses the max-length constraint for very
	// long strings, where the bound is meaningless.
	maxRecordedStringLength = 1000
)

// indexNameHints are the column-name fragments that earn a plain-index
// suggestion (case-insensitive substring match).
var indexNameHints = []string{"id", "email", "username"}

// SchemaService infers table schemas from record samples and manages
// explicit user-defined schemas. A defined schema always overrides an
// inferred one.
type SchemaService interface {
	// InferSchema samples the table's records and derives a schema. A
	// missing or empty table yields (nil, nil) rather than an error.
	InferSchema(ctx context.Context, tableName string) (*models.Schema, error)

	// DefineSchema validates and stores an explicit schema. Invalid
	// definitions are rejected atomically with apperrors.ErrInvalidSchema,
	// leaving any prior definition unchanged.
	DefineSchema(ctx context.Context, schema *models.Schema) error

	// GetSchema returns the defined schema when one exists, otherwise the
	// inferred schema.
	GetSchema(ctx context.Context, tableName string) (*models.Schema, error)

	// DeleteSchema removes a defined schema. Deleting an absent definition
	// is a no-op.
	DeleteSchema(ctx context.Context, tableName string) error
}

type schemaService struct {
	records store.RecordStore
	cfg     config.EngineConfig
	logger  *zap.Logger

	mu      sync.RWMutex
	defined map[string]*models.Schema
}

// NewSchemaService creates a new SchemaService.
func NewSchemaService(records store.RecordStore, cfg config.EngineConfig, logger *zap.Logger) SchemaService {
	return &schemaService{
		records: records,
		cfg:     cfg,
		logger:  logger.Named("schema-inference"),
		defined: make(map[string]*models.Schema),
	}
}

func (s *schemaService) InferSchema(ctx context.Context, tableName string) (*models.Schema, error) {
	value, ok, err := s.records.GetTable(ctx, tableName)
	if err != nil {
		return nil, fmt.Errorf("get table %q: %w", tableName, err)
	}
	if !ok {
		return nil, nil
	}

	records, warnings := sampleTable(value, s.cfg.SampleSize)
	if len(records) == 0 {
		return nil, nil
	}

	analyses, order := buildColumnAnalyses(records, s.cfg.MaxExampleValues)

	schema := &models.Schema{
		TableName:   tableName,
		Type:        value.Type(),
		Properties:  make(map[string]*models.FieldSchema, len(order)),
		FieldOrder:  order,
		Source:      models.SchemaSourceInferred,
		Warnings:    warnings,
		GeneratedAt: time.Now().UTC(),
	}

	for _, name := range order {
		analysis := analyses[name]
		schema.Properties[name] = s.buildFieldSchema(analysis, enumValues(analysis, records))
		if suggestion := indexSuggestion(analysis); suggestion != nil {
			schema.Indexes = append(schema.Indexes, *suggestion)
		}
	}

	s.logger.Debug("Inferred schema",
		zap.String("table", tableName),
		zap.Int("fields", len(order)),
		zap.Int("sampled_records", len(records)))

	return schema, nil
}

// buildFieldSchema derives the constraint list for one field from its
// column analysis.
func (s *schemaService) buildFieldSchema(a *models.ColumnAnalysis, enum []models.Value) *models.FieldSchema {
	field := &models.FieldSchema{
		Type:     a.Type,
		Nullable: a.Nullable,
	}

	if !a.Nullable {
		field.Constraints = append(field.Constraints, models.Constraint{Type: models.ConstraintRequired})
	}
	if a.Unique {
		field.Constraints = append(field.Constraints, models.Constraint{Type: models.ConstraintUnique})
	}

	switch a.Type {
	case models.KindString:
		if a.StringStats != nil {
			field.Constraints = append(field.Constraints,
				models.Constraint{Type: models.ConstraintMinLength, Value: a.StringStats.MinLength})
			if a.StringStats.MaxLength <= maxRecordedStringLength {
				field.Constraints = append(field.Constraints,
					models.Constraint{Type: models.ConstraintMaxLength, Value: a.StringStats.MaxLength})
			}
		}
		if format := formatOf(a.Patterns); format != "" {
			field.Constraints = append(field.Constraints,
				models.Constraint{Type: models.ConstraintFormat, Value: format})
		}

	case models.KindNumber:
		if a.NumberStats != nil {
			field.Constraints = append(field.Constraints,
				models.Constraint{Type: models.ConstraintMinValue, Value: a.NumberStats.Min},
				models.Constraint{Type: models.ConstraintMaxValue, Value: a.NumberStats.Max})
		}

	case models.KindDate:
		if a.DateStats != nil {
			field.Constraints = append(field.Constraints,
				models.Constraint{Type: models.ConstraintMinDate, Value: a.DateStats.Earliest},
				models.Constraint{Type: models.ConstraintMaxDate, Value: a.DateStats.Latest})
		}
	}

	if len(enum) > 0 {
		field.Constraints = append(field.Constraints,
			models.Constraint{Type: models.ConstraintEnum, Value: enum})
	}

	return field
}

// formatOf maps all-values pattern matches to a format constraint. Formats
// are never attached on partial matches.
func formatOf(p models.ColumnPatterns) string {
	switch {
	case p.IsEmail:
		return models.FormatEmail
	case p.IsURL:
		return models.FormatURL
	case p.IsPhone:
		return models.FormatPhone
	default:
		return ""
	}
}

// enumValues returns the field's distinct values when the enum density rule
// holds: at most enumMaxDistinct distinct values, each observed at least
// enumMinDensityRatio times on average.
func enumValues(a *models.ColumnAnalysis, records []models.Value) []models.Value {
	if a.Cardinality == 0 || a.Cardinality > enumMaxDistinct {
		return nil
	}
	if a.NonNullCount < a.Cardinality*enumMinDensityRatio {
		return nil
	}

	seen := make(map[string]struct{}, a.Cardinality)
	var values []models.Value
	for _, record := range records {
		v := record.Field(a.Name)
		if v.IsUndefined() || v.IsNull() {
			continue
		}
		key := stringifyForSet(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		values = append(values, v.Clone())
	}
	return values
}

// indexSuggestion produces at most one suggestion per field: a unique index
// for unique fields, otherwise a plain index when the name hints at a
// lookup column.
func indexSuggestion(a *models.ColumnAnalysis) *models.IndexSuggestion {
	if a.Unique {
		return &models.IndexSuggestion{Field: a.Name, Type: models.IndexTypeUnique}
	}
	lower := strings.ToLower(a.Name)
	for _, hint := range indexNameHints {
		if strings.Contains(lower, hint) {
			return &models.IndexSuggestion{Field: a.Name, Type: models.IndexTypePlain}
		}
	}
	return nil
}

func (s *schemaService) DefineSchema(_ context.Context, schema *models.Schema) error {
	if err := validateSchemaDefinition(schema); err != nil {
		return err
	}

	stored := *schema
	stored.Source = models.SchemaSourceDefined
	stored.GeneratedAt = time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.defined[schema.TableName] = &stored

	s.logger.Info("Defined schema",
		zap.String("table", schema.TableName),
		zap.Int("fields", len(schema.Properties)))
	return nil
}

// validateSchemaDefinition performs the structural validation of the strict
// write path. Everything else in the engine degrades gracefully; schema
// definitions are rejected outright.
func validateSchemaDefinition(schema *models.Schema) error {
	if schema == nil {
		return fmt.Errorf("%w: schema is nil", apperrors.ErrInvalidSchema)
	}
	if schema.TableName == "" {
		return fmt.Errorf("%w: table name is empty", apperrors.ErrInvalidSchema)
	}
	if len(schema.Properties) == 0 {
		return fmt.Errorf("%w: no fields declared", apperrors.ErrInvalidSchema)
	}

	for name, field := range schema.Properties {
		if field == nil {
			return fmt.Errorf("%w: field %q has no definition", apperrors.ErrInvalidSchema, name)
		}
		if !models.IsValidKind(field.Type) {
			return fmt.Errorf("%w: field %q has unrecognized type %q", apperrors.ErrInvalidSchema, name, field.Type)
		}
		for _, c := range field.Constraints {
			if !models.IsValidConstraintType(c.Type) {
				return fmt.Errorf("%w: field %q has unrecognized constraint %q", apperrors.ErrInvalidSchema, name, c.Type)
			}
		}
	}
	return nil
}

func (s *schemaService) GetSchema(ctx context.Context, tableName string) (*models.Schema, error) {
	s.mu.RLock()
	defined, ok := s.defined[tableName]
	s.mu.RUnlock()
	if ok {
		return defined, nil
	}
	return s.InferSchema(ctx, tableName)
}

func (s *schemaService) DeleteSchema(_ context.Context, tableName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.defined, tableName)
	return nil
}
