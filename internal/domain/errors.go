package domain

import "errors"

var (
	// ErrUnauthorized is returned when an identity attempts an operation it
	// does not own (sharing, removal, clearing) or has no identity at all.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound is returned when a chat or user does not exist.
	ErrNotFound = errors.New("not found")
)
