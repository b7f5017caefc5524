package entity

import "errors"

// Entity model errors.
var (
	// ErrInvalidName is returned when a name has no internal whitespace,
	// so no initial+surname match key can be derived from it.
	ErrInvalidName = errors.New("name has no internal whitespace")

	// ErrNameMismatch is returned when a merge or update is attempted
	// across two authors with different match keys. This is a logic
	// error in the caller and is never silently ignored.
	ErrNameMismatch = errors.New("match keys do not match")
)
