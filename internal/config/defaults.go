package config

import (
	"time"

	"github.com/flemzord/crondeck/internal/system"
)

// Default values applied by ApplyDefaults.
const (
	DefaultVersion          = "1"
	DefaultBackupKeep       = 50
	DefaultSnapshotSchedule = "*/15 * * * *"
	DefaultPruneSchedule    = "30 3 * * *"
	DefaultShell            = "/bin/sh"
	DefaultRunTimeout       = 10 * time.Minute
	DefaultRepository       = "flemzord/crondeck"
)

// ApplyDefaults fills every unset field.
func (c *Config) ApplyDefaults() {
	if c.Version == "" {
		c.Version = DefaultVersion
	}
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir()
	}

	if c.Crontab.Backend == "" {
		c.Crontab.Backend = BackendSystem
	}
	if c.Crontab.Binary == "" {
		c.Crontab.Binary = system.DefaultBinary
	}

	if c.Backups.Keep == 0 {
		c.Backups.Keep = DefaultBackupKeep
	}
	if c.Backups.SnapshotSchedule == "" {
		c.Backups.SnapshotSchedule = DefaultSnapshotSchedule
	}
	if c.Backups.PruneSchedule == "" {
		c.Backups.PruneSchedule = DefaultPruneSchedule
	}

	c.Gateway.Defaults()

	if c.Runner.Shell == "" {
		c.Runner.Shell = DefaultShell
	}
	if c.Runner.Timeout <= 0 {
		c.Runner.Timeout = DefaultRunTimeout
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	if c.Update.Repository == "" {
		c.Update.Repository = DefaultRepository
	}
}
