//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/keyscope-dev/keyscope-engine/pkg/apperrors"
	"github.com/keyscope-dev/keyscope-engine/pkg/models"
)

func startPostgres(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "keyscope_test",
			"POSTGRES_USER":     "keyscope",
			"POSTGRES_PASSWORD": "test_password",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("postgresql://keyscope:test_password@%s:%s/keyscope_test?sslmode=disable",
		host, port.Port())
}

func TestStore_Integration(t *testing.T) {
	connStr := startPostgres(t)
	ctx := context.Background()

	s, err := Open(ctx, connStr, 0, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	value := models.Array(
		models.Object(map[string]models.Value{"id": models.Number(1), "name": models.String("ada")}),
		models.Object(map[string]models.Value{"id": models.Number(2), "name": models.String("grace")}),
	)
	require.NoError(t, s.PutTable(ctx, "people", value))

	t.Run("round trip", func(t *testing.T) {
		got, ok, err := s.GetTable(ctx, "people")
		require.NoError(t, err)
		require.True(t, ok)
		assert.True(t, value.Equal(got))

		count, err := s.GetRecordCount(ctx, "people")
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("upsert replaces", func(t *testing.T) {
		replacement := models.Array(models.Object(map[string]models.Value{"id": models.Number(9)}))
		require.NoError(t, s.PutTable(ctx, "people", replacement))

		got, _, err := s.GetTable(ctx, "people")
		require.NoError(t, err)
		assert.True(t, replacement.Equal(got))

		// Restore for later subtests.
		require.NoError(t, s.PutTable(ctx, "people", value))
	})

	t.Run("describe and usage", func(t *testing.T) {
		info, err := s.DescribeTable(ctx, "people")
		require.NoError(t, err)
		assert.Equal(t, 2, info.RecordCount)
		assert.Equal(t, models.ValueTypeArray, info.ValueType)

		usage, err := s.Usage(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, usage.TableCount)
		assert.Positive(t, usage.UsedBytes)
	})

	t.Run("missing table", func(t *testing.T) {
		_, ok, err := s.GetTable(ctx, "absent")
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = s.DescribeTable(ctx, "absent")
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.DeleteTable(ctx, "people"))
		names, err := s.ListTableNames(ctx)
		require.NoError(t, err)
		assert.Empty(t, names)
	})
}

func TestStore_IntegrationCapacity(t *testing.T) {
	connStr := startPostgres(t)
	ctx := context.Background()

	s, err := Open(ctx, connStr, 32, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.PutTable(ctx, "a", models.String("small")))
	err = s.PutTable(ctx, "b", models.String("a very long value that cannot fit"))
	assert.ErrorIs(t, err, apperrors.ErrCapacityExceeded)
}
