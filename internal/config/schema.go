// Package config handles YAML configuration loading, environment variable
// expansion, defaults and validation for crondeck.
package config

import (
	"time"

	"github.com/flemzord/crondeck/internal/gateway"
	"github.com/flemzord/crondeck/internal/telemetry"
)

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	// DataDir holds the backup database and the audit log. Defaults to
	// $XDG_DATA_HOME/crondeck.
	DataDir string `yaml:"data_dir"`

	Crontab   CrontabConfig    `yaml:"crontab"`
	Backups   BackupConfig     `yaml:"backups"`
	Gateway   gateway.Config   `yaml:"gateway"`
	Runner    RunnerConfig     `yaml:"runner"`
	Log       LogConfig        `yaml:"log"`
	Telemetry telemetry.Config `yaml:"telemetry"`
	Update    UpdateConfig     `yaml:"update"`
}

// Crontab backends.
const (
	BackendSystem = "system"
	BackendFile   = "file"
)

// CrontabConfig selects where the crontab lives.
type CrontabConfig struct {
	// Backend is "system" (crontab(1)) or "file".
	Backend string `yaml:"backend"`

	// Path is the crontab file for the file backend.
	Path string `yaml:"path"`

	// Binary is the crontab program for the system backend.
	Binary string `yaml:"binary"`

	// User edits another user's crontab (crontab -u). Requires privileges.
	User string `yaml:"user"`
}

// BackupConfig controls crontab snapshots.
type BackupConfig struct {
	// Enabled defaults to true.
	Enabled *bool `yaml:"enabled"`

	// Keep is how many snapshots are retained. Negative keeps everything.
	Keep int `yaml:"keep"`

	// SnapshotSchedule is the cron expression at which `serve` snapshots
	// the crontab, catching edits made outside crondeck.
	SnapshotSchedule string `yaml:"snapshot_schedule"`

	// PruneSchedule is the cron expression at which old snapshots are
	// removed.
	PruneSchedule string `yaml:"prune_schedule"`
}

// IsEnabled reports whether backups are on.
func (b BackupConfig) IsEnabled() bool {
	return b.Enabled == nil || *b.Enabled
}

// RunnerConfig controls "run now".
type RunnerConfig struct {
	// Shell runs job commands with "-c". Defaults to /bin/sh.
	Shell string `yaml:"shell"`

	// Timeout bounds a manual run. Defaults to 10m.
	Timeout time.Duration `yaml:"timeout"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// UpdateConfig configures `version --check`.
type UpdateConfig struct {
	// Repository is the GitHub "owner/name" releases are published to.
	Repository string `yaml:"repository"`
}
