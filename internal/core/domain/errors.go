package domain

import "errors"

var (
	// ErrValidation marks user-correctable input problems.
	ErrValidation = errors.New("validation failed")

	// ErrTodoNotFound covers both genuine absence and ownership mismatch.
	// Callers must not be able to tell the two apart; the distinction is
	// logged internally for audit only.
	ErrTodoNotFound = errors.New("todo not found")

	// ErrStorage wraps persistence failures. The underlying detail is logged
	// and never surfaced to callers.
	ErrStorage = errors.New("storage failure")
)
