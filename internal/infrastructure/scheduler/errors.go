package scheduler

import "errors"

var (
	// ErrRunInProgress is returned when a billing run is already executing
	ErrRunInProgress = errors.New("billing run already in progress")

	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")
)
