package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/keyscope-dev/keyscope-engine/pkg/apperrors"
	"github.com/keyscope-dev/keyscope-engine/pkg/models"
)

func record(id float64) models.Value {
	return models.Object(map[string]models.Value{"id": models.Number(id)})
}

func TestStore_PutGetDelete(t *testing.T) {
	s := New(0, zap.NewNop())
	defer s.Close()
	ctx := context.Background()

	value := models.Array(record(1), record(2))
	require.NoError(t, s.PutTable(ctx, "items", value))

	got, ok, err := s.GetTable(ctx, "items")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, value.Equal(got))

	count, err := s.GetRecordCount(ctx, "items")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	names, err := s.ListTableNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"items"}, names)

	require.NoError(t, s.DeleteTable(ctx, "items"))
	_, ok, err = s.GetTable(ctx, "items")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_GetTableMissing(t *testing.T) {
	s := New(0, zap.NewNop())
	defer s.Close()

	_, ok, err := s.GetTable(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, ok)

	count, err := s.GetRecordCount(context.Background(), "absent")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestStore_ReadIsolation(t *testing.T) {
	s := New(0, zap.NewNop())
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.PutTable(ctx, "items", models.Array(record(1))))

	got, _, err := s.GetTable(ctx, "items")
	require.NoError(t, err)
	got.Items()[0].Fields()["id"] = models.Number(999)

	fresh, _, err := s.GetTable(ctx, "items")
	require.NoError(t, err)
	id, _ := fresh.Items()[0].Field("id").AsNumber()
	assert.Equal(t, 1.0, id, "mutating a read result must not affect stored state")
}

func TestStore_CapacityEnforcement(t *testing.T) {
	s := New(64, zap.NewNop())
	defer s.Close()
	ctx := context.Background()

	small := models.Object(map[string]models.Value{"a": models.Number(1)})
	require.NoError(t, s.PutTable(ctx, "small", small))

	big := models.Object(map[string]models.Value{
		"body": models.String("xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx"),
	})
	err := s.PutTable(ctx, "big", big)
	require.ErrorIs(t, err, apperrors.ErrCapacityExceeded)

	// Rejected writes leave state untouched.
	names, err := s.ListTableNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"small"}, names)
}

func TestStore_OverwriteReclaimsQuota(t *testing.T) {
	s := New(128, zap.NewNop())
	defer s.Close()
	ctx := context.Background()

	padded := models.Object(map[string]models.Value{
		"body": models.String("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"),
	})
	require.NoError(t, s.PutTable(ctx, "doc", padded))

	// Replacing with a same-size value fits because the prior size is
	// released first.
	require.NoError(t, s.PutTable(ctx, "doc", padded))

	usage, err := s.Usage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, usage.TableCount)
	assert.LessOrEqual(t, usage.UsedBytes, usage.CapacityBytes)
}

func TestStore_DescribeTable(t *testing.T) {
	s := New(0, zap.NewNop())
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.PutTable(ctx, "items", models.Array(record(1), record(2), record(3))))

	info, err := s.DescribeTable(ctx, "items")
	require.NoError(t, err)
	assert.Equal(t, "items", info.Name)
	assert.Equal(t, 3, info.RecordCount)
	assert.Equal(t, models.ValueTypeArray, info.ValueType)
	assert.Positive(t, info.ByteSize)
	assert.False(t, info.UpdatedAt.IsZero())

	_, err = s.DescribeTable(ctx, "absent")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestStore_ClosedStoreRejectsEverything(t *testing.T) {
	s := New(0, zap.NewNop())
	ctx := context.Background()
	require.NoError(t, s.Close())

	_, _, err := s.GetTable(ctx, "x")
	assert.ErrorIs(t, err, apperrors.ErrClosed)
	assert.ErrorIs(t, s.PutTable(ctx, "x", models.Null()), apperrors.ErrClosed)
	assert.ErrorIs(t, s.DeleteTable(ctx, "x"), apperrors.ErrClosed)
	_, err = s.ListTableNames(ctx)
	assert.ErrorIs(t, err, apperrors.ErrClosed)
}
