package queue

import "errors"

var (
	// ErrClosed is returned when a job is submitted after Close.
	ErrClosed = errors.New("queue: closed")

	// ErrUnknownJobType is returned when a job row names a type the
	// worker does not understand.
	ErrUnknownJobType = errors.New("queue: unknown job type")
)
