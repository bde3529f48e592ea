package session

import "errors"

var (
	ErrTransportRead     = errors.New("transport read failed")
	ErrTransportWrite    = errors.New("transport write failed")
	ErrSessionClosed     = errors.New("session is closed")
	ErrSessionNotFound   = errors.New("session not found")
	ErrAlreadyRegistered = errors.New("session already registered")
)
