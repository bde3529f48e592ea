package sqlite

import "errors"

var (
	ErrEmptyPath               = errors.New("sqlite database path is required")
	ErrFailedToOpen            = errors.New("failed to open sqlite database")
	ErrFailedToApplyMigrations = errors.New("failed to apply migrations")
	ErrHealthcheckFailed       = errors.New("sqlite healthcheck failed")
)
