package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrForbidden       = errors.New("forbidden")

	// ErrUserBusy means an answer is already being generated for this user.
	ErrUserBusy = errors.New("user already has an answer in flight")

	// ErrAnswerTimeout is stored verbatim into a failed job's result so the
	// router can tell a timeout apart from a generic upstream failure.
	ErrAnswerTimeout = errors.New("AI processing timeout")

	ErrUnsupportedChannel = errors.New("unsupported channel")
	ErrInvalidPushToken   = errors.New("invalid or expired push token")

	// ErrTerminalStatus is returned when an update would move a completed or
	// failed job back to a non-terminal status.
	ErrTerminalStatus = errors.New("job already in terminal status")
)
