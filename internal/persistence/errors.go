package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a uniqueness constraint is violated.
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrConstraintViolation is returned when a check or foreign-key
	// constraint rejects the write.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrConflict is returned when an optimistic-concurrency version guard
	// rejects a tracker mutation.
	ErrConflict = errors.New("persistence: version conflict")
)
