package store

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/keyscope-dev/keyscope-engine/pkg/config"
)

// BackendInfo describes a registered store backend.
type BackendInfo struct {
	Name        string `json:"name"`         // "memory", "sqlite", "postgres", "mssql"
	DisplayName string `json:"display_name"` // "In-Memory", "SQLite"
	Description string `json:"description"`
}

// BackendRegistration contains info + factory for creating a backend.
type BackendRegistration struct {
	Info    BackendInfo
	Factory func(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (RecordStore, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]BackendRegistration)
)

// Register is called by each backend's init() function.
// Thread-safe for concurrent init() calls.
func Register(reg BackendRegistration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Info.Name] = reg
}

// RegisteredBackends returns info for all registered backends.
func RegisteredBackends() []BackendInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]BackendInfo, 0, len(registry))
	for _, reg := range registry {
		result = append(result, reg.Info)
	}
	return result
}

// GetFactory returns the factory for a backend name.
// Returns nil if the backend is not registered.
func GetFactory(name string) func(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (RecordStore, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	if reg, ok := registry[name]; ok {
		return reg.Factory
	}
	return nil
}

// IsRegistered checks if a backend name is available.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}
