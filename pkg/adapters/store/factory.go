package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/keyscope-dev/keyscope-engine/pkg/apperrors"
	"github.com/keyscope-dev/keyscope-engine/pkg/config"
)

// Open creates a RecordStore for the backend named in cfg.Backend. The
// backend package must have been imported so its init() registration ran.
func Open(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (RecordStore, error) {
	factory := GetFactory(cfg.Backend)
	if factory == nil {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownBackend, cfg.Backend)
	}

	s, err := factory(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Backend, err)
	}
	return s, nil
}
