package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a uniqueness constraint is violated.
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrConflict is returned when a booking insert loses the overlap
	// re-check performed inside its transaction.
	ErrConflict = errors.New("persistence: conflicting booking")
	// ErrConstraintViolation is returned when stored data violates a check
	// constraint such as a non-positive capacity or inverted time range.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
)
