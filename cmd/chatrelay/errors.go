package main

import "errors"

var (
	errUnknownDriver = errors.New("unknown store driver")
	errAuthDisabled  = errors.New("JWT_SECRET is not set")
)
