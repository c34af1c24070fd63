package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/keyscope-dev/keyscope-engine/pkg/adapters/store/memory"
	"github.com/keyscope-dev/keyscope-engine/pkg/apperrors"
	"github.com/keyscope-dev/keyscope-engine/pkg/config"
	"github.com/keyscope-dev/keyscope-engine/pkg/models"
)

func testEngineConfig() config.EngineConfig {
	return config.EngineConfig{
		SampleSize:          100,
		ConfidenceThreshold: 0.4,
		MaxExampleValues:    5,
	}
}

func setupSchemaTest(t *testing.T) (SchemaService, *memory.Store) {
	t.Helper()
	records := memory.New(0, zap.NewNop())
	t.Cleanup(func() { records.Close() })
	return NewSchemaService(records, testEngineConfig(), zap.NewNop()), records
}

// seedUsers writes a users table where id is unique and required, email is a
// unique email-formatted string, age is numeric, status has two repeated
// values, and created_at holds ISO dates.
func seedUsers(t *testing.T, records *memory.Store, count int) {
	t.Helper()
	users := make([]models.Value, count)
	for i := 0; i < count; i++ {
		status := "active"
		if i%2 == 1 {
			status = "inactive"
		}
		users[i] = models.Object(map[string]models.Value{
			"id":         models.Number(float64(i + 1)),
			"email":      models.String(fmt.Sprintf("user%d@example.com", i+1)),
			"age":        models.Number(float64(20 + i)),
			"status":     models.String(status),
			"created_at": models.String(fmt.Sprintf("2024-01-%02d", i+1)),
		})
	}
	require.NoError(t, records.PutTable(context.Background(), "users", models.Array(users...)))
}

func TestSchemaService_InferSchema(t *testing.T) {
	svc, records := setupSchemaTest(t)
	seedUsers(t, records, 10)

	schema, err := svc.InferSchema(context.Background(), "users")
	require.NoError(t, err)
	require.NotNil(t, schema)

	assert.Equal(t, "users", schema.TableName)
	assert.Equal(t, models.SchemaSourceInferred, schema.Source)
	assert.ElementsMatch(t, []string{"id", "email", "age", "status", "created_at"}, schema.FieldOrder)

	id := schema.Field("id")
	require.NotNil(t, id)
	assert.Equal(t, models.KindNumber, id.Type)
	assert.False(t, id.Nullable)
	assert.True(t, id.HasConstraint(models.ConstraintRequired))
	assert.True(t, id.HasConstraint(models.ConstraintUnique))
	assert.False(t, id.HasConstraint(models.ConstraintEnum))
	assert.Nil(t, schema.Field("nonexistent"))

	email := schema.Properties["email"]
	require.NotNil(t, email)
	assert.Equal(t, models.KindString, email.Type)
	format := email.Constraint(models.ConstraintFormat)
	require.NotNil(t, format)
	assert.Equal(t, models.FormatEmail, format.Value)

	age := schema.Properties["age"]
	require.NotNil(t, age)
	minVal := age.Constraint(models.ConstraintMinValue)
	maxVal := age.Constraint(models.ConstraintMaxValue)
	require.NotNil(t, minVal)
	require.NotNil(t, maxVal)
	assert.Equal(t, 20.0, minVal.Value)
	assert.Equal(t, 29.0, maxVal.Value)

	created := schema.Properties["created_at"]
	require.NotNil(t, created)
	assert.Equal(t, models.KindDate, created.Type)
	assert.NotNil(t, created.Constraint(models.ConstraintMinDate))
	assert.NotNil(t, created.Constraint(models.ConstraintMaxDate))
}

func TestSchemaService_EnumDensityRule(t *testing.T) {
	svc, records := setupSchemaTest(t)

	// 10 observations over 2 distinct values satisfies the density rule.
	seedUsers(t, records, 10)
	schema, err := svc.InferSchema(context.Background(), "users")
	require.NoError(t, err)
	status := schema.Properties["status"]
	require.NotNil(t, status)

	enum := status.Constraint(models.ConstraintEnum)
	require.NotNil(t, enum)
	values, ok := enum.Value.([]models.Value)
	require.True(t, ok)
	assert.Len(t, values, 2)

	// email is fully distinct, so it never qualifies.
	assert.Nil(t, schema.Properties["email"].Constraint(models.ConstraintEnum))
}

func TestSchemaService_EnumRejectedWhenSparse(t *testing.T) {
	svc, records := setupSchemaTest(t)

	// 3 observations over 3 distinct values fails the 2x density rule.
	rows := []models.Value{
		models.Object(map[string]models.Value{"color": models.String("red")}),
		models.Object(map[string]models.Value{"color": models.String("green")}),
		models.Object(map[string]models.Value{"color": models.String("blue")}),
	}
	require.NoError(t, records.PutTable(context.Background(), "palette", models.Array(rows...)))

	schema, err := svc.InferSchema(context.Background(), "palette")
	require.NoError(t, err)
	assert.Nil(t, schema.Properties["color"].Constraint(models.ConstraintEnum))
}

func TestSchemaService_MaxLengthSuppressedForLongStrings(t *testing.T) {
	svc, records := setupSchemaTest(t)

	long := strings.Repeat("x", 1500)
	rows := []models.Value{
		models.Object(map[string]models.Value{"body": models.String(long)}),
		models.Object(map[string]models.Value{"body": models.String("short")}),
	}
	require.NoError(t, records.PutTable(context.Background(), "posts", models.Array(rows...)))

	schema, err := svc.InferSchema(context.Background(), "posts")
	require.NoError(t, err)
	body := schema.Properties["body"]
	require.NotNil(t, body)
	assert.NotNil(t, body.Constraint(models.ConstraintMinLength))
	assert.Nil(t, body.Constraint(models.ConstraintMaxLength))
}

func TestSchemaService_NoPartialFormatTagging(t *testing.T) {
	svc, records := setupSchemaTest(t)

	rows := []models.Value{
		models.Object(map[string]models.Value{"contact": models.String("a@example.com")}),
		models.Object(map[string]models.Value{"contact": models.String("not-an-email")}),
	}
	require.NoError(t, records.PutTable(context.Background(), "contacts", models.Array(rows...)))

	schema, err := svc.InferSchema(context.Background(), "contacts")
	require.NoError(t, err)
	assert.Nil(t, schema.Properties["contact"].Constraint(models.ConstraintFormat))
}

func TestSchemaService_IndexSuggestions(t *testing.T) {
	svc, records := setupSchemaTest(t)
	seedUsers(t, records, 10)

	schema, err := svc.InferSchema(context.Background(), "users")
	require.NoError(t, err)

	byField := make(map[string]models.IndexType)
	for _, idx := range schema.Indexes {
		byField[idx.Field] = idx.Type
	}
	assert.Equal(t, models.IndexTypeUnique, byField["id"])
	assert.Equal(t, models.IndexTypeUnique, byField["email"])
	_, hasStatus := byField["status"]
	assert.False(t, hasStatus)
}

func TestSchemaService_MissingAndEmptyTables(t *testing.T) {
	svc, records := setupSchemaTest(t)

	schema, err := svc.InferSchema(context.Background(), "absent")
	require.NoError(t, err)
	assert.Nil(t, schema)

	require.NoError(t, records.PutTable(context.Background(), "empty", models.Array()))
	schema, err = svc.InferSchema(context.Background(), "empty")
	require.NoError(t, err)
	assert.Nil(t, schema)
}

func TestSchemaService_NullableWhenAbsentOrNull(t *testing.T) {
	svc, records := setupSchemaTest(t)

	rows := []models.Value{
		models.Object(map[string]models.Value{"a": models.Number(1), "b": models.Number(1)}),
		models.Object(map[string]models.Value{"a": models.Null(), "b": models.Number(2)}),
		models.Object(map[string]models.Value{"b": models.Number(3)}),
	}
	require.NoError(t, records.PutTable(context.Background(), "mixed", models.Array(rows...)))

	schema, err := svc.InferSchema(context.Background(), "mixed")
	require.NoError(t, err)

	assert.True(t, schema.Field("a").Nullable)
	assert.False(t, schema.Field("a").HasConstraint(models.ConstraintRequired))

	assert.False(t, schema.Field("b").Nullable)
	assert.True(t, schema.Field("b").HasConstraint(models.ConstraintRequired))
}

func TestSchemaService_MajorityTypeWithFirstSeenTieBreak(t *testing.T) {
	svc, records := setupSchemaTest(t)

	rows := []models.Value{
		models.Object(map[string]models.Value{"v": models.String("hello")}),
		models.Object(map[string]models.Value{"v": models.Number(1)}),
	}
	require.NoError(t, records.PutTable(context.Background(), "ties", models.Array(rows...)))

	schema, err := svc.InferSchema(context.Background(), "ties")
	require.NoError(t, err)
	assert.Equal(t, models.KindString, schema.Properties["v"].Type)
}

func TestSchemaService_DefineSchema(t *testing.T) {
	svc, records := setupSchemaTest(t)
	seedUsers(t, records, 5)

	defined := &models.Schema{
		TableName: "users",
		Properties: map[string]*models.FieldSchema{
			"id": {Type: models.KindNumber, Constraints: []models.Constraint{
				{Type: models.ConstraintRequired},
			}},
		},
		FieldOrder: []string{"id"},
	}
	require.NoError(t, svc.DefineSchema(context.Background(), defined))

	got, err := svc.GetSchema(context.Background(), "users")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.SchemaSourceDefined, got.Source)
	assert.Len(t, got.Properties, 1)

	require.NoError(t, svc.DeleteSchema(context.Background(), "users"))
	got, err = svc.GetSchema(context.Background(), "users")
	require.NoError(t, err)
	assert.Equal(t, models.SchemaSourceInferred, got.Source)
}

func TestSchemaService_DefineSchemaRejectsInvalidAtomically(t *testing.T) {
	svc, _ := setupSchemaTest(t)
	ctx := context.Background()

	valid := &models.Schema{
		TableName: "items",
		Properties: map[string]*models.FieldSchema{
			"name": {Type: models.KindString},
		},
	}
	require.NoError(t, svc.DefineSchema(ctx, valid))

	tests := []struct {
		name   string
		schema *models.Schema
	}{
		{"nil schema", nil},
		{"empty table name", &models.Schema{Properties: map[string]*models.FieldSchema{"a": {Type: models.KindString}}}},
		{"no fields", &models.Schema{TableName: "items"}},
		{"unknown type", &models.Schema{TableName: "items", Properties: map[string]*models.FieldSchema{
			"a": {Type: models.Kind("decimal")},
		}}},
		{"unknown constraint", &models.Schema{TableName: "items", Properties: map[string]*models.FieldSchema{
			"a": {Type: models.KindString, Constraints: []models.Constraint{{Type: models.ConstraintType("checksum")}}},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.DefineSchema(ctx, tt.schema)
			assert.ErrorIs(t, err, apperrors.ErrInvalidSchema)
		})
	}

	// The earlier valid definition survives every rejection.
	got, err := svc.GetSchema(ctx, "items")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.SchemaSourceDefined, got.Source)
	assert.Contains(t, got.Properties, "name")
}

func TestSchemaService_ScalarTableGetsImplicitField(t *testing.T) {
	svc, records := setupSchemaTest(t)
	require.NoError(t, records.PutTable(context.Background(), "counter", models.Number(42)))

	schema, err := svc.InferSchema(context.Background(), "counter")
	require.NoError(t, err)
	require.NotNil(t, schema)
	assert.Equal(t, []string{"value"}, schema.FieldOrder)
	assert.Equal(t, models.KindNumber, schema.Properties["value"].Type)
}
