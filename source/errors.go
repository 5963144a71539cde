package source

import "errors"

var (
	// ErrNothingToWatch is returned when none of the watch directories exist.
	ErrNothingToWatch = errors.New("no watchable directories")
)
