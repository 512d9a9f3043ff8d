package manager

import "errors"

var (
	// ErrJobNotFound is returned when no job matches the requested ID.
	ErrJobNotFound = errors.New("manager: job not found")

	// ErrAmbiguousID is returned when an ID prefix matches several jobs.
	ErrAmbiguousID = errors.New("manager: ambiguous job ID prefix")

	// ErrInvalidJob wraps every JobSpec validation failure.
	ErrInvalidJob = errors.New("manager: invalid job")

	// ErrInvalidEnv wraps global environment validation failures.
	ErrInvalidEnv = errors.New("manager: invalid environment")
)
