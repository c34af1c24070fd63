package config

import (
	"fmt"
	"net/url"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultCapacityBytes is the default store capacity budget (5 MiB),
// measured on the JSON serialization of stored values.
const DefaultCapacityBytes = 5 * 1024 * 1024

// Config holds all configuration for keyscope-engine.
// Configuration can come from YAML file (config.yaml) or environment
// variables. Environment variables always override YAML values. Secrets
// (database passwords) must only come from environment variables.
type Config struct {
	Env     string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version string `yaml:"-"` // Set at load time, not from config

	Log    LogConfig    `yaml:"log"`
	Engine EngineConfig `yaml:"engine"`
	Store  StoreConfig  `yaml:"store"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	// Format is "json" for production output or "console" for development.
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"console"`
}

// EngineConfig holds analysis engine settings.
type EngineConfig struct {
	// SampleSize caps how many records are examined per table.
	SampleSize int `yaml:"sample_size" env:"ENGINE_SAMPLE_SIZE" env-default:"100"`

	// ConfidenceThreshold is the minimum confidence for a relationship to
	// be retained. Values outside [0,1] are clamped at load, not rejected.
	ConfidenceThreshold float64 `yaml:"confidence_threshold" env:"ENGINE_CONFIDENCE_THRESHOLD" env-default:"0.4"`

	// MaxExampleValues caps the example values kept per column analysis.
	MaxExampleValues int `yaml:"max_example_values" env:"ENGINE_MAX_EXAMPLE_VALUES" env-default:"5"`
}

// StoreConfig holds record store settings.
type StoreConfig struct {
	// Backend selects the registered store backend: memory, sqlite,
	// postgres, or mssql.
	Backend string `yaml:"backend" env:"STORE_BACKEND" env-default:"memory"`

	// CapacityBytes bounds the total serialized size of stored values.
	CapacityBytes int64 `yaml:"capacity_bytes" env:"STORE_CAPACITY_BYTES" env-default:"5242880"`

	// SQLitePath is the database file path for the sqlite backend.
	SQLitePath string `yaml:"sqlite_path" env:"STORE_SQLITE_PATH" env-default:"keyscope.db"`

	Postgres PostgresConfig `yaml:"postgres"`
	MSSQL    MSSQLConfig    `yaml:"mssql"`
}

// PostgresConfig holds connection settings for the postgres backend.
type PostgresConfig struct {
	Host     string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User     string `yaml:"user" env:"PGUSER" env-default:"keyscope"`
	Password string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database string `yaml:"database" env:"PGDATABASE" env-default:"keyscope"`
	SSLMode  string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// MSSQLConfig holds connection settings for the mssql backend.
type MSSQLConfig struct {
	Host     string `yaml:"host" env:"MSSQL_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"MSSQL_PORT" env-default:"1433"`
	User     string `yaml:"user" env:"MSSQL_USER" env-default:"sa"`
	Password string `yaml:"-" env:"MSSQL_PASSWORD"` // Secret - not in YAML
	Database string `yaml:"database" env:"MSSQL_DATABASE" env-default:"keyscope"`
}

// Load reads configuration from config.yaml (when present) with environment
// variable overrides. The version parameter is injected at build time and
// set on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	cfg.normalize()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// normalize clamps out-of-range tunables instead of rejecting them. An
// out-of-range confidence threshold is a configuration error that degrades
// to the nearest bound.
func (c *Config) normalize() {
	if c.Engine.ConfidenceThreshold < 0 {
		c.Engine.ConfidenceThreshold = 0
	}
	if c.Engine.ConfidenceThreshold > 1 {
		c.Engine.ConfidenceThreshold = 1
	}
	if c.Engine.SampleSize <= 0 {
		c.Engine.SampleSize = 100
	}
	if c.Engine.MaxExampleValues <= 0 {
		c.Engine.MaxExampleValues = 5
	}
	if c.Store.CapacityBytes <= 0 {
		c.Store.CapacityBytes = DefaultCapacityBytes
	}
}

func (c *Config) validate() error {
	if c.Store.Backend == "" {
		return fmt.Errorf("store backend must not be empty")
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection URL with proper escaping
// of user-provided fields.
func (c *PostgresConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgresql://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		url.QueryEscape(c.Database),
		c.SSLMode,
	)
}

// ConnectionString returns a SQL Server connection URL.
func (c *MSSQLConfig) ConnectionString() string {
	u := &url.URL{
		Scheme: "sqlserver",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
	}
	q := url.Values{}
	q.Set("database", c.Database)
	u.RawQuery = q.Encode()
	return u.String()
}
