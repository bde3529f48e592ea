package badger

import "errors"

var (
	ErrEmptyDir          = errors.New("badger directory is required unless running in memory")
	ErrFailedToOpen      = errors.New("failed to open badger database")
	ErrHealthcheckFailed = errors.New("badger healthcheck failed")
)
