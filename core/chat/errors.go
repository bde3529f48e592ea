package chat

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedPayload = errors.New("malformed payload")
	ErrEmptyField       = errors.New("empty field")
	ErrFieldTooLong     = errors.New("field too long")

	// ErrPersist wraps every failure reported by a Store implementation.
	ErrPersist = errors.New("persist failed")
)

// ValidationKind classifies why an inbound message was rejected.
type ValidationKind int

const (
	MalformedPayload ValidationKind = iota + 1
	EmptyField
	FieldTooLong
)

func (k ValidationKind) String() string {
	switch k {
	case MalformedPayload:
		return "malformed_payload"
	case EmptyField:
		return "empty_field"
	case FieldTooLong:
		return "field_too_long"
	default:
		return "unknown"
	}
}

// ValidationError is returned when a client message cannot be admitted.
// Field is the wire name ("name" or "message"); Max is set for FieldTooLong.
type ValidationError struct {
	Kind  ValidationKind
	Field string
	Max   int
	Err   error
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case EmptyField:
		return fmt.Sprintf("%s: %q", ErrEmptyField, e.Field)
	case FieldTooLong:
		return fmt.Sprintf("%s: %q exceeds %d characters", ErrFieldTooLong, e.Field, e.Max)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", ErrMalformedPayload, e.Err)
		}
		return ErrMalformedPayload.Error()
	}
}

// Unwrap exposes both the kind sentinel and the underlying cause to errors.Is/As.
func (e *ValidationError) Unwrap() []error {
	var sentinel error
	switch e.Kind {
	case EmptyField:
		sentinel = ErrEmptyField
	case FieldTooLong:
		sentinel = ErrFieldTooLong
	default:
		sentinel = ErrMalformedPayload
	}
	if e.Err == nil {
		return []error{sentinel}
	}
	return []error{sentinel, e.Err}
}

func malformed(err error) *ValidationError {
	return &ValidationError{Kind: MalformedPayload, Err: err}
}
