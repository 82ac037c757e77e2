package workflow

import "errors"

var (
	// ErrInvalidEvent is returned when an event is malformed.
	ErrInvalidEvent = errors.New("invalid workflow event")

	// ErrSinkClosed is returned when appending to a closed sink.
	ErrSinkClosed = errors.New("workflow sink closed")

	// ErrSinkUnavailable is returned when the sink backend cannot be reached.
	ErrSinkUnavailable = errors.New("workflow sink unavailable")
)
