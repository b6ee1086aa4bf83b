package model

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrCapacityExceeded = errors.New("subtask limit reached")
	ErrMinimumViolation = errors.New("cannot remove the only subtask")
	ErrInvalidTask      = errors.New("invalid task")
	ErrForbidden        = errors.New("insufficient permissions")
	ErrInvalidInput     = errors.New("invalid input")
)
