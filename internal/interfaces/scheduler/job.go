package scheduler

import "context"

// Job represents a unit of work that can be executed by the worker pool.
type Job interface {
	// Execute runs the job. The context carries the per-job timeout and is
	// cancelled on forced shutdown.
	Execute(ctx context.Context) error

	// UserID returns the user whose data the job touches, for logging.
	UserID() string

	// Description returns a human-readable description of the job.
	Description() string
}

// Discarder is implemented by jobs that need to know when the pool drops
// them without running Execute.
type Discarder interface {
	Discard()
}
