package auth

import "errors"

var (
	// ErrAuth is matched by every verification failure.
	ErrAuth = errors.New("authentication failed")

	ErrMissingSecret = errors.New("auth: signing secret is required")
	ErrMissingToken  = errors.New("token is missing")
	ErrInvalidToken  = errors.New("token is invalid")
	ErrExpiredToken  = errors.New("token has expired")
)
