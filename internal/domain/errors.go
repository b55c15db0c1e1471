package domain

import "errors"

var (
	// ErrUnauthorizedValidator is returned when the caller IP does not resolve to an active validator
	ErrUnauthorizedValidator = errors.New("caller is not an authorized validator")

	// ErrBatchTooLarge is returned when a submission batch exceeds the configured maximum size
	ErrBatchTooLarge = errors.New("batch exceeds maximum size")
)
