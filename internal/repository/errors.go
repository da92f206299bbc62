package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable is returned when the storage backend is unreachable or
	// erroring. Callers keep their in-memory state and never fall back to
	// defaults on this error.
	ErrUnavailable = errors.New("storage unavailable")

	// ErrMalformedData is returned when persisted local data cannot be
	// decoded. Stores recover by discarding only the corrupt key.
	ErrMalformedData = errors.New("malformed local data")
)
