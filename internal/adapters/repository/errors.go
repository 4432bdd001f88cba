package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound          = errors.New("not found")
	ErrUnsupportedDriver = errors.New("unsupported database driver")
	ErrInvalidDataset    = errors.New("invalid dataset")
)

// ErrUnknownKind is returned for an entity kind without a backing table.
var ErrUnknownKind = errors.New("unknown entity kind")
