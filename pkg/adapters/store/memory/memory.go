// Package memory provides the default map-backed record store. Values are
// deep-copied on read and write so callers can never mutate stored state
// through a shared reference.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

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
			Name:        "memory",
			DisplayName: "In-Memory",
			Description: "Volatile map-backed store, capacity-enforced",
		},
		Factory: func(_ context.Context, cfg config.StoreConfig, logger *zap.Logger) (store.RecordStore, error) {
			return New(cfg.CapacityBytes, logger), nil
		},
	})
}

type entry struct {
	value     models.Value
	byteSize  int64
	updatedAt time.Time
}

// Store is a map-backed RecordStore.
type Store struct {
	mu       sync.RWMutex
	tables   map[string]*entry
	used     int64
	capacity int64
	closed   bool
	logger   *zap.Logger
}

// New creates a memory store with the given capacity budget.
func New(capacityBytes int64, logger *zap.Logger) *Store {
	if capacityBytes <= 0 {
		capacityBytes = config.DefaultCapacityBytes
	}
	return &Store{
		tables:   make(map[string]*entry),
		capacity: capacityBytes,
		logger:   logger.Named("memory-store"),
	}
}

func (s *Store) ListTableNames(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, apperrors.ErrClosed
	}

	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) GetTable(_ context.Context, name string) (models.Value, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return models.Value{}, false, apperrors.ErrClosed
	}

	e, ok := s.tables[name]
	if !ok {
		return models.Value{}, false, nil
	}
	return e.value.Clone(), true, nil
}

func (s *Store) GetRecordCount(_ context.Context, name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, apperrors.ErrClosed
	}

	e, ok := s.tables[name]
	if !ok {
		return 0, nil
	}
	return store.RecordCountOf(e.value), nil
}

func (s *Store) PutTable(_ context.Context, name string, value models.Value) error {
	data, err := jsonutil.EncodeValue(value)
	if err != nil {
		return err
	}
	size := int64(len(data))

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return apperrors.ErrClosed
	}

	var prior int64
	if e, ok := s.tables[name]; ok {
		prior = e.byteSize
	}
	if s.used-prior+size > s.capacity {
		return fmt.Errorf("%w: %d bytes used, %d requested, %d capacity",
			apperrors.ErrCapacityExceeded, s.used, size, s.capacity)
	}

	s.tables[name] = &entry{
		value:     value.Clone(),
		byteSize:  size,
		updatedAt: time.Now().UTC(),
	}
	s.used = s.used - prior + size
	return nil
}

func (s *Store) DeleteTable(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return apperrors.ErrClosed
	}

	if e, ok := s.tables[name]; ok {
		s.used -= e.byteSize
		delete(s.tables, name)
	}
	return nil
}

func (s *Store) DescribeTable(_ context.Context, name string) (*store.TableInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, apperrors.ErrClosed
	}

	e, ok := s.tables[name]
	if !ok {
		return nil, fmt.Errorf("table %q: %w", name, apperrors.ErrNotFound)
	}
	return &store.TableInfo{
		Name:        name,
		ByteSize:    e.byteSize,
		UpdatedAt:   e.updatedAt,
		ValueType:   e.value.Type(),
		RecordCount: store.RecordCountOf(e.value),
	}, nil
}

func (s *Store) Usage(_ context.Context) (store.UsageInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return store.UsageInfo{}, apperrors.ErrClosed
	}

	return store.UsageInfo{
		UsedBytes:     s.used,
		CapacityBytes: s.capacity,
		UsedFraction:  float64(s.used) / float64(s.capacity),
		TableCount:    len(s.tables),
	}, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.tables = nil
	s.used = 0
	return nil
}

var _ store.RecordStore = (*Store)(nil)
