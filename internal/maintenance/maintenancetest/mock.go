// Package maintenancetest provides test doubles for the maintenance package.
package maintenancetest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flemzord/crondeck/internal/backup"
	"github.com/flemzord/crondeck/internal/maintenance"
)

// MockJob is a configurable test double for maintenance.Job.
type MockJob struct {
	NameVal     string
	ScheduleVal string
	RunFunc     func(ctx context.Context) error

	mu       sync.Mutex
	calls    int
	lastCall time.Time
}

// Compile-time interface check.
var _ maintenance.Job = (*MockJob)(nil)

// Name implements maintenance.Job.
func (m *MockJob) Name() string { return m.NameVal }

// Schedule implements maintenance.Job.
func (m *MockJob) Schedule() string { return m.ScheduleVal }

// Run implements maintenance.Job and increments the call counter.
func (m *MockJob) Run(ctx context.Context) error {
	m.mu.Lock()
	m.calls++
	m.lastCall = time.Now()
	m.mu.Unlock()

	if m.RunFunc != nil {
		return m.RunFunc(ctx)
	}
	return nil
}

// CallCount returns the number of times Run was called.
func (m *MockJob) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastCall returns the time of the last Run call.
func (m *MockJob) LastCall() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastCall
}

// MockSnapshotter is a test double for maintenance.Snapshotter.
type MockSnapshotter struct {
	SnapshotFunc  func(ctx context.Context, reason string) (backup.Backup, bool, error)
	SnapshotCalls atomic.Int32
}

// Compile-time interface check.
var _ maintenance.Snapshotter = (*MockSnapshotter)(nil)

// Snapshot implements maintenance.Snapshotter.
func (m *MockSnapshotter) Snapshot(ctx context.Context, reason string) (backup.Backup, bool, error) {
	m.SnapshotCalls.Add(1)
	if m.SnapshotFunc != nil {
		return m.SnapshotFunc(ctx, reason)
	}
	return backup.Backup{}, false, nil
}

// MockPruner is a test double for maintenance.Pruner.
type MockPruner struct {
	PruneFunc  func(ctx context.Context, keep int) (int64, error)
	PruneCalls atomic.Int32
}

// Compile-time interface check.
var _ maintenance.Pruner = (*MockPruner)(nil)

// Prune implements maintenance.Pruner.
func (m *MockPruner) Prune(ctx context.Context, keep int) (int64, error) {
	m.PruneCalls.Add(1)
	if m.PruneFunc != nil {
		return m.PruneFunc(ctx, keep)
	}
	return 0, nil
}
