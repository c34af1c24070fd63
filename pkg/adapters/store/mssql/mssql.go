// Package mssql provides a SQL Server-backed record store mirroring the
// postgres backend's single-relation layout, with NVARCHAR(MAX) bodies.
package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/microsoft/go-mssqldb"
	"go.uber.org/zap"

	"github.com/keyscope-dev/keyscope-engine/pkg/adapters/store"
	"github.com/keyscope-dev/keyscope-engine/pkg/apperrors"
	"github.com/keyscope-dev/keyscope-engine/pkg/config"
	"github.com/keyscope-dev/keyscope-engine/pkg/jsonutil"
	"github.com/keyscope-dev/keyscope-engine/pkg/models"
)

func init() {
	store.Register(store.BackendRegistration{
		Info: store.BackendInfo{
			Name:        "mssql",
			DisplayName: "Microsoft SQL Server",
			Description: "SQL Server-backed store with JSON bodies",
		},
		Factory: func(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (store.RecordStore, error) {
			return Open(ctx, cfg.MSSQL.ConnectionString(), cfg.CapacityBytes, logger)
		},
	})
}

const schemaDDL = `
IF OBJECT_ID('keyscope_tables', 'U') IS NULL
CREATE TABLE keyscope_tables (
    name NVARCHAR(450) PRIMARY KEY,
    body NVARCHAR(MAX) NOT NULL,
    byte_size BIGINT NOT NULL,
    updated_at DATETIMEOFFSET NOT NULL
)`

// Store is a SQL Server-backed RecordStore.
type Store struct {
	db       *sql.DB
	capacity int64
	logger   *zap.Logger
}

// Open connects to SQL Server and ensures the backing relation exists.
func Open(ctx context.Context, connString string, capacityBytes int64, logger *zap.Logger) (*Store, error) {
	if capacityBytes <= 0 {
		capacityBytes = config.DefaultCapacityBytes
	}

	db, err := sql.Open("sqlserver", connString)
	if err != nil {
		return nil, fmt.Errorf("open sqlserver connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlserver: %w", err)
	}

	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return &Store{
		db:       db,
		capacity: capacityBytes,
		logger:   logger.Named("mssql-store"),
	}, nil
}

func (s *Store) ListTableNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM keyscope_tables ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list table names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *Store) GetTable(ctx context.Context, name string) (models.Value, bool, error) {
	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM keyscope_tables WHERE name = @p1`, name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Value{}, false, nil
	}
	if err != nil {
		return models.Value{}, false, fmt.Errorf("get table %q: %w", name, err)
	}

	value, err := jsonutil.DecodeValue([]byte(body))
	if err != nil {
		return models.Value{}, false, fmt.Errorf("decode table %q: %w", name, err)
	}
	return value, true, nil
}

func (s *Store) GetRecordCount(ctx context.Context, name string) (int, error) {
	value, ok, err := s.GetTable(ctx, name)
	if err != nil || !ok {
		return 0, err
	}
	return store.RecordCountOf(value), nil
}

func (s *Store) PutTable(ctx context.Context, name string, value models.Value) error {
	data, err := jsonutil.EncodeValue(value)
	if err != nil {
		return err
	}
	size := int64(len(data))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin put: %w", err)
	}
	defer tx.Rollback()

	var used, prior int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(byte_size), 0) FROM keyscope_tables`).Scan(&used); err != nil {
		return fmt.Errorf("read usage: %w", err)
	}
	err = tx.QueryRowContext(ctx,
		`SELECT byte_size FROM keyscope_tables WHERE name = @p1`, name).Scan(&prior)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read prior size: %w", err)
	}

	if used-prior+size > s.capacity {
		return fmt.Errorf("%w: %d bytes used, %d requested, %d capacity",
			apperrors.ErrCapacityExceeded, used, size, s.capacity)
	}

	_, err = tx.ExecContext(ctx, `
		MERGE keyscope_tables AS target
		USING (SELECT @p1 AS name) AS source
		ON target.name = source.name
		WHEN MATCHED THEN
			UPDATE SET body = @p2, byte_size = @p3, updated_at = @p4
		WHEN NOT MATCHED THEN
			INSERT (name, body, byte_size, updated_at)
			VALUES (@p1, @p2, @p3, @p4);`,
		name, string(data), size, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("put table %q: %w", name, err)
	}
	return tx.Commit()
}

func (s *Store) DeleteTable(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM keyscope_tables WHERE name = @p1`, name); err != nil {
		return fmt.Errorf("delete table %q: %w", name, err)
	}
	return nil
}

func (s *Store) DescribeTable(ctx context.Context, name string) (*store.TableInfo, error) {
	var body string
	var size int64
	var updatedAt time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT body, byte_size, updated_at FROM keyscope_tables WHERE name = @p1`, name).
		Scan(&body, &size, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("table %q: %w", name, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("describe table %q: %w", name, err)
	}

	value, err := jsonutil.DecodeValue([]byte(body))
	if err != nil {
		return nil, fmt.Errorf("decode table %q: %w", name, err)
	}

	return &store.TableInfo{
		Name:        name,
		ByteSize:    size,
		UpdatedAt:   updatedAt,
		ValueType:   value.Type(),
		RecordCount: store.RecordCountOf(value),
	}, nil
}

func (s *Store) Usage(ctx context.Context) (store.UsageInfo, error) {
	var used int64
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(byte_size), 0), COUNT(*) FROM keyscope_tables`).Scan(&used, &count)
	if err != nil {
		return store.UsageInfo{}, fmt.Errorf("read usage: %w", err)
	}

	return store.UsageInfo{
		UsedBytes:     used,
		CapacityBytes: s.capacity,
		UsedFraction:  float64(used) / float64(s.capacity),
		TableCount:    count,
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

var _ store.RecordStore = (*Store)(nil)
