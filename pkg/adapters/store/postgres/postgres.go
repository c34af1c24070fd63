// Package postgres provides a PostgreSQL-backed record store. Values are
// stored as JSONB in a single keyscope_tables relation.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
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
			Name:        "postgres",
			DisplayName: "PostgreSQL",
			Description: "PostgreSQL-backed store with JSONB bodies",
		},
		Factory: func(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (store.RecordStore, error) {
			return Open(ctx, cfg.Postgres.ConnectionString(), cfg.CapacityBytes, logger)
		},
	})
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS keyscope_tables (
    name TEXT PRIMARY KEY,
    body JSONB NOT NULL,
    byte_size BIGINT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
)`

// Store is a PostgreSQL-backed RecordStore.
type Store struct {
	pool     *pgxpool.Pool
	capacity int64
	logger   *zap.Logger
}

// Open connects to PostgreSQL and ensures the backing relation exists.
func Open(ctx context.Context, connString string, capacityBytes int64, logger *zap.Logger) (*Store, error) {
	if capacityBytes <= 0 {
		capacityBytes = config.DefaultCapacityBytes
	}

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schemaDDL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return &Store{
		pool:     pool,
		capacity: capacityBytes,
		logger:   logger.Named("postgres-store"),
	}, nil
}

func (s *Store) ListTableNames(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT name FROM keyscope_tables ORDER BY name`)
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
	var body []byte
	err := s.pool.QueryRow(ctx,
		`SELECT body FROM keyscope_tables WHERE name = $1`, name).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Value{}, false, nil
	}
	if err != nil {
		return models.Value{}, false, fmt.Errorf("get table %q: %w", name, err)
	}

	value, err := jsonutil.DecodeValue(body)
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

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin put: %w", err)
	}
	defer tx.Rollback(ctx)

	var used, prior int64
	if err := tx.QueryRow(ctx,
		`SELECT COALESCE(SUM(byte_size), 0) FROM keyscope_tables`).Scan(&used); err != nil {
		return fmt.Errorf("read usage: %w", err)
	}
	err = tx.QueryRow(ctx,
		`SELECT byte_size FROM keyscope_tables WHERE name = $1`, name).Scan(&prior)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("read prior size: %w", err)
	}

	if used-prior+size > s.capacity {
		return fmt.Errorf("%w: %d bytes used, %d requested, %d capacity",
			apperrors.ErrCapacityExceeded, used, size, s.capacity)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO keyscope_tables (name, body, byte_size, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE SET
			body = EXCLUDED.body,
			byte_size = EXCLUDED.byte_size,
			updated_at = EXCLUDED.updated_at`,
		name, data, size, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("put table %q: %w", name, err)
	}
	return tx.Commit(ctx)
}

func (s *Store) DeleteTable(ctx context.Context, name string) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM keyscope_tables WHERE name = $1`, name); err != nil {
		return fmt.Errorf("delete table %q: %w", name, err)
	}
	return nil
}

func (s *Store) DescribeTable(ctx context.Context, name string) (*store.TableInfo, error) {
	var body []byte
	var size int64
	var updatedAt time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT body, byte_size, updated_at FROM keyscope_tables WHERE name = $1`, name).
		Scan(&body, &size, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("table %q: %w", name, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("describe table %q: %w", name, err)
	}

	value, err := jsonutil.DecodeValue(body)
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
	err := s.pool.QueryRow(ctx,
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
	s.pool.Close()
	return nil
}

var _ store.RecordStore = (*Store)(nil)
