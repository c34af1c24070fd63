// Package sqlite provides a file-backed record store over a single
// tables(name, body, byte_size, updated_at) relation. Schema is managed by
// embedded golang-migrate migrations.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
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
			Name:        "sqlite",
			DisplayName: "SQLite",
			Description: "File-backed store using a local SQLite database",
		},
		Factory: func(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (store.RecordStore, error) {
			return Open(ctx, cfg.SQLitePath, cfg.CapacityBytes, logger)
		},
	})
}

// Store is a SQLite-backed RecordStore.
type Store struct {
	db       *sql.DB
	capacity int64
	logger   *zap.Logger
}

// Open opens (and creates, if needed) the SQLite database at path and runs
// pending migrations.
func Open(ctx context.Context, path string, capacityBytes int64, logger *zap.Logger) (*Store, error) {
	if capacityBytes <= 0 {
		capacityBytes = config.DefaultCapacityBytes
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}

	log := logger.Named("sqlite-store")
	if err := runMigrations(db, log); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, capacity: capacityBytes, logger: log}, nil
}

func (s *Store) ListTableNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM tables ORDER BY name`)
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
	err := s.db.QueryRowContext(ctx, `SELECT body FROM tables WHERE name = ?`, name).Scan(&body)
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
		`SELECT COALESCE(SUM(byte_size), 0) FROM tables`).Scan(&used); err != nil {
		return fmt.Errorf("read usage: %w", err)
	}
	err = tx.QueryRowContext(ctx,
		`SELECT byte_size FROM tables WHERE name = ?`, name).Scan(&prior)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read prior size: %w", err)
	}

	if used-prior+size > s.capacity {
		return fmt.Errorf("%w: %d bytes used, %d requested, %d capacity",
			apperrors.ErrCapacityExceeded, used, size, s.capacity)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tables (name, body, byte_size, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			body = excluded.body,
			byte_size = excluded.byte_size,
			updated_at = excluded.updated_at`,
		name, string(data), size, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("put table %q: %w", name, err)
	}
	return tx.Commit()
}

func (s *Store) DeleteTable(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tables WHERE name = ?`, name); err != nil {
		return fmt.Errorf("delete table %q: %w", name, err)
	}
	return nil
}

func (s *Store) DescribeTable(ctx context.Context, name string) (*store.TableInfo, error) {
	var body string
	var size int64
	var updatedAt time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT body, byte_size, updated_at FROM tables WHERE name = ?`, name).
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
		`SELECT COALESCE(SUM(byte_size), 0), COUNT(*) FROM tables`).Scan(&used, &count)
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
