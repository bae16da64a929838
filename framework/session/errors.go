package session

import "errors"

var (
	// ErrNotFound is returned by a Store for an unknown or expired id, and by
	// Value for a missing key.
	ErrNotFound = errors.New("session: not found")

	// ErrTypeMismatch is returned by Value when the stored value has another type.
	ErrTypeMismatch = errors.New("session: type mismatch")
)
