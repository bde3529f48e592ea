package relay

import "errors"

var (
	ErrEngineClosed          = errors.New("relay engine is closed")
	ErrJournalAlreadyStarted = errors.New("journal already started")
	ErrJournalNotStarted     = errors.New("journal not started")
	ErrJournalFull           = errors.New("journal queue is full")
	ErrJournalClosed         = errors.New("journal is closed")
	ErrSeed                  = errors.New("failed to seed history")
)
