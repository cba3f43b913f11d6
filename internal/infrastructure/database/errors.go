package database

import "errors"

var (
	// ErrNoPath is returned by Open when no database path is configured.
	ErrNoPath = errors.New("database: no path configured")

	// ErrReadOnly is returned when migrating a database opened read-only.
	ErrReadOnly = errors.New("database: opened read-only")
)
