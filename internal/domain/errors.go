package domain

import "errors"

var (
	// ErrValidation marks bad caller input. It is returned before any I/O.
	ErrValidation = errors.New("validation failed")

	// ErrLocalFailed wraps any storage error raised while searching the backing store.
	ErrLocalFailed = errors.New("local search failed")

	// ErrSearchUnavailable is returned when neither the upstream API nor the
	// backing store could answer a search.
	ErrSearchUnavailable = errors.New("search unavailable")
)
