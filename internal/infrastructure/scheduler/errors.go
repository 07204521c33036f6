package scheduler

import "errors"

var (
	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrSweepInProgress is returned by RunOnce when another instance holds the sweep lock
	ErrSweepInProgress = errors.New("sweep already in progress")
)
