package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/flemzord/crondeck/internal/logging"
	"github.com/flemzord/crondeck/internal/schedule"
)

// Validate checks the structural validity of a Config after defaults have
// been applied. All problems are reported together.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	errs = append(errs, validateCrontab(cfg.Crontab)...)
	errs = append(errs, validateBackups(cfg.Backups)...)
	errs = append(errs, validateGateway(cfg)...)

	if !filepath.IsAbs(cfg.Runner.Shell) {
		errs = append(errs, fmt.Errorf("config: runner.shell must be an absolute path, got %q", cfg.Runner.Shell))
	}
	if cfg.Runner.Timeout <= 0 {
		errs = append(errs, errors.New("config: runner.timeout must be positive"))
	}

	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("config: log.level: %w", err))
	}
	if cfg.Log.Format != "text" && cfg.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("config: log.format must be \"text\" or \"json\", got %q", cfg.Log.Format))
	}

	if rate := cfg.Telemetry.SampleRate; rate != nil && (*rate < 0 || *rate > 1) {
		errs = append(errs, fmt.Errorf("config: telemetry.sample_rate must be between 0 and 1, got %v", *rate))
	}

	if owner, name, ok := strings.Cut(cfg.Update.Repository, "/"); !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		errs = append(errs, fmt.Errorf("config: update.repository must be \"owner/name\", got %q", cfg.Update.Repository))
	}

	return errors.Join(errs...)
}

func validateCrontab(c CrontabConfig) []error {
	var errs []error
	switch c.Backend {
	case BackendSystem:
		if c.Binary == "" {
			errs = append(errs, errors.New("config: crontab.binary is required for the system backend"))
		}
	case BackendFile:
		if c.Path == "" {
			errs = append(errs, errors.New("config: crontab.path is required for the file backend"))
		}
		if c.User != "" {
			errs = append(errs, errors.New("config: crontab.user only applies to the system backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown crontab.backend %q (supported: %q, %q)", c.Backend, BackendSystem, BackendFile))
	}
	return errs
}

func validateBackups(b BackupConfig) []error {
	var errs []error
	if res := schedule.Validate(b.SnapshotSchedule); !res.Valid {
		errs = append(errs, fmt.Errorf("config: backups.snapshot_schedule: %s", res.Error))
	}
	if res := schedule.Validate(b.PruneSchedule); !res.Valid {
		errs = append(errs, fmt.Errorf("config: backups.prune_schedule: %s", res.Error))
	}
	return errs
}

func validateGateway(cfg *Config) []error {
	var errs []error
	auth := cfg.Gateway.Auth
	if (auth.BasicUser == "") != (auth.BasicPass == "") {
		errs = append(errs, errors.New("config: gateway.auth.basic_user and basic_pass must be set together"))
	}
	if cfg.Gateway.Bind == "" {
		errs = append(errs, errors.New("config: gateway.bind is required"))
	}
	if cfg.Gateway.RateLimit < 0 {
		errs = append(errs, errors.New("config: gateway.rate_limit must not be negative"))
	}
	return errs
}
