package store

import (
	"context"
	"time"

	"github.com/keyscope-dev/keyscope-engine/pkg/models"
)

// TableInfo is per-key metadata tracked by a store backend.
type TableInfo struct {
	Name      string           `json:"name"`
	ByteSize  int64            `json:"byte_size"`
	UpdatedAt time.Time        `json:"updated_at"`
	ValueType models.ValueType `json:"value_type"`

	// RecordCount is the element count for array values, 1 for any other
	// non-null value, 0 for null.
	RecordCount int `json:"record_count"`
}

// UsageInfo reports store capacity accounting.
type UsageInfo struct {
	UsedBytes     int64   `json:"used_bytes"`
	CapacityBytes int64   `json:"capacity_bytes"`
	UsedFraction  float64 `json:"used_fraction"`
	TableCount    int     `json:"table_count"`
}

// RecordStore is the key/value persistence capability the analysis engine
// sits on. Each string key (table name) holds one JSON-serializable value,
// typically an array of record objects. Implementations enforce a fixed
// capacity budget measured on the serialized value size.
type RecordStore interface {
	// ListTableNames returns all table names in sorted order.
	ListTableNames(ctx context.Context) ([]string, error)

	// GetTable returns the value stored under name. The second return is
	// false when the table does not exist; absence is not an error.
	GetTable(ctx context.Context, name string) (models.Value, bool, error)

	// GetRecordCount returns the record count for a table: array length for
	// array values, 1 for any other non-null value, 0 when absent.
	GetRecordCount(ctx context.Context, name string) (int, error)

	// PutTable stores a value under name, replacing any previous value.
	// A put that would exceed the capacity budget fails with
	// apperrors.ErrCapacityExceeded and leaves prior state unchanged.
	PutTable(ctx context.Context, name string, value models.Value) error

	// DeleteTable removes a table. Deleting an absent table is a no-op.
	DeleteTable(ctx context.Context, name string) error

	// DescribeTable returns per-key metadata, or apperrors.ErrNotFound when
	// the table does not exist.
	DescribeTable(ctx context.Context, name string) (*TableInfo, error)

	// Usage reports current capacity accounting.
	Usage(ctx context.Context) (UsageInfo, error)

	// Close releases backend resources.
	Close() error
}

// RecordCountOf computes the record count for a stored value.
func RecordCountOf(v models.Value) int {
	switch v.Type() {
	case models.ValueTypeArray:
		return v.Len()
	case models.ValueTypeNull, models.ValueTypeUndefined:
		return 0
	default:
		return 1
	}
}
