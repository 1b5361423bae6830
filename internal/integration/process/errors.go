package process

import "errors"

var (
	// ErrNotStarted is returned when signalling a process that is not running.
	ErrNotStarted = errors.New("process not started")

	// ErrAlreadyStarted is returned when starting a process twice.
	ErrAlreadyStarted = errors.New("process already started")

	// ErrNotFound is returned when a process ID is unknown.
	ErrNotFound = errors.New("process not found")

	// ErrSupervisorShutdown is returned by Start after Shutdown.
	ErrSupervisorShutdown = errors.New("supervisor is shutting down")

	// ErrLimit is returned by Start when the process limit is reached.
	ErrLimit = errors.New("process limit reached")
)
