package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("test-version")
	require.NoError(t, err)

	assert.Equal(t, "test-version", cfg.Version)
	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 100, cfg.Engine.SampleSize)
	assert.Equal(t, 0.4, cfg.Engine.ConfidenceThreshold)
	assert.Equal(t, 5, cfg.Engine.MaxExampleValues)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, int64(DefaultCapacityBytes), cfg.Store.CapacityBytes)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("ENGINE_SAMPLE_SIZE", "25")
	t.Setenv("ENGINE_CONFIDENCE_THRESHOLD", "0.6")

	cfg, err := Load("v1")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, 25, cfg.Engine.SampleSize)
	assert.Equal(t, 0.6, cfg.Engine.ConfidenceThreshold)
}

func TestLoad_ClampsOutOfRangeThreshold(t *testing.T) {
	t.Setenv("ENGINE_CONFIDENCE_THRESHOLD", "3.5")
	cfg, err := Load("v1")
	require.NoError(t, err)
	assert.Equal(t, 1.0, cfg.Engine.ConfidenceThreshold)

	t.Setenv("ENGINE_CONFIDENCE_THRESHOLD", "-1")
	cfg, err = Load("v1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.Engine.ConfidenceThreshold)
}

func TestLoad_NormalizesNonPositiveTunables(t *testing.T) {
	t.Setenv("ENGINE_SAMPLE_SIZE", "0")
	t.Setenv("STORE_CAPACITY_BYTES", "-5")

	cfg, err := Load("v1")
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Engine.SampleSize)
	assert.Equal(t, int64(DefaultCapacityBytes), cfg.Store.CapacityBytes)
}

func TestPostgresConnectionString(t *testing.T) {
	c := PostgresConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "key scope",
		Password: "p@ss/word",
		Database: "engine",
		SSLMode:  "require",
	}
	got := c.ConnectionString()

	assert.True(t, strings.HasPrefix(got, "postgresql://"))
	assert.Contains(t, got, "db.internal:5433")
	assert.Contains(t, got, "sslmode=require")
	assert.NotContains(t, got, "p@ss/word", "password must be escaped")
}

func TestMSSQLConnectionString(t *testing.T) {
	c := MSSQLConfig{
		Host:     "localhost",
		Port:     1433,
		User:     "sa",
		Password: "secret",
		Database: "engine",
	}
	got := c.ConnectionString()

	assert.True(t, strings.HasPrefix(got, "sqlserver://"))
	assert.Contains(t, got, "localhost:1433")
	assert.Contains(t, got, "database=engine")
}
