package apperrors

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrCapacityExceeded = errors.New("store capacity exceeded")
	ErrInvalidSchema    = errors.New("invalid schema definition")
	ErrUnknownBackend   = errors.New("unknown store backend")
	ErrClosed           = errors.New("store is closed")
)
