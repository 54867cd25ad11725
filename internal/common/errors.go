// Package common defines sentinel errors shared by the store, media and
// HTTP layers. Callers should match them with errors.Is.
package common

import "errors"

var (
	// store errors
	ErrorNotFound = errors.New("not found")

	// request errors
	ErrorValidation    = errors.New("validation error")
	ErrUnknownResource = errors.New("unknown resource")
	ErrNotOrderable    = errors.New("collection does not support reordering")

	// auth errors
	ErrorUnauthorized = errors.New("unauthorized")
	ErrInvalidToken   = errors.New("invalid token")

	// media errors
	ErrRemoteNotConfigured = errors.New("remote media storage is not configured")
)
