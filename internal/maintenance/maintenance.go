// Package maintenance runs crondeck's own periodic housekeeping while
// `crondeck serve` is up: snapshotting the crontab so edits made outside
// crondeck land in the backup history, and pruning old snapshots.
package maintenance

import "context"

// Job defines a periodic background task.
type Job interface {
	// Name returns a unique identifier for this job (used for logging and dedup).
	Name() string

	// Schedule returns a 5-field cron expression (e.g., "*/15 * * * *").
	Schedule() string

	// Run executes the job. Implementations should check ctx.Done() for
	// graceful cancellation.
	Run(ctx context.Context) error
}
