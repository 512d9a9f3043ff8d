package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/flemzord/crondeck/internal/audit"
	"github.com/flemzord/crondeck/internal/backup"
)

// Snapshotter saves the current crontab to the backup history.
// *manager.Manager satisfies it.
type Snapshotter interface {
	Snapshot(ctx context.Context, reason string) (backup.Backup, bool, error)
}

// Pruner deletes all but the newest keep snapshots. *backup.Store
// satisfies it.
type Pruner interface {
	Prune(ctx context.Context, keep int) (int64, error)
}

// Compile-time interface check.
var _ Pruner = (*backup.Store)(nil)

// SnapshotJob records the crontab periodically so edits made with
// `crontab -e` or other tools can be restored too.
type SnapshotJob struct {
	Source       Snapshotter
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "*/15 * * * *"
}

// Compile-time interface check.
var _ Job = (*SnapshotJob)(nil)

// Name implements Job.
func (j *SnapshotJob) Name() string { return "snapshot" }

// Schedule implements Job.
func (j *SnapshotJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "*/15 * * * *"
}

// Run snapshots the crontab. Unchanged content is not stored again.
func (j *SnapshotJob) Run(ctx context.Context) error {
	b, saved, err := j.Source.Snapshot(ctx, "scheduled")
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	if saved {
		loggerOrDefault(j.Logger).Info("crontab changed, snapshot saved", "backup", b.ID, "jobs", b.JobCount)
	}
	return nil
}

// PruneJob keeps the backup history at a bounded size.
type PruneJob struct {
	Store        Pruner
	Keep         int
	Audit        *audit.Logger
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "30 3 * * *"
}

// Compile-time interface check.
var _ Job = (*PruneJob)(nil)

// Name implements Job.
func (j *PruneJob) Name() string { return "prune" }

// Schedule implements Job.
func (j *PruneJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "30 3 * * *"
}

// Run deletes snapshots beyond Keep. A non-positive Keep keeps everything.
func (j *PruneJob) Run(ctx context.Context) error {
	if j.Keep <= 0 {
		return nil
	}
	n, err := j.Store.Prune(ctx, j.Keep)
	if err != nil {
		return fmt.Errorf("prune: %w", err)
	}
	if n > 0 {
		loggerOrDefault(j.Logger).Info("pruned old snapshots", "count", n, "keep", j.Keep)
		j.Audit.Record(audit.Event{
			Action: audit.BackupPrune,
			Source: "scheduler",
			Fields: map[string]string{"deleted": strconv.FormatInt(n, 10), "keep": strconv.Itoa(j.Keep)},
		})
	}
	return nil
}

func loggerOrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
