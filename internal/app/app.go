// Package app assembles crondeck's services from configuration and runs
// the long-lived server mode.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/dig"

	"github.com/flemzord/crondeck/internal/audit"
	"github.com/flemzord/crondeck/internal/backup"
	"github.com/flemzord/crondeck/internal/config"
	"github.com/flemzord/crondeck/internal/logging"
	"github.com/flemzord/crondeck/internal/manager"
	"github.com/flemzord/crondeck/internal/mcpserver"
	"github.com/flemzord/crondeck/internal/system"
	"github.com/flemzord/crondeck/internal/telemetry"
)

// AuditFile is the audit log name inside the data directory.
const AuditFile = "audit.jsonl"

// Options configures New.
type Options struct {
	// Config must already be loaded and validated.
	Config *config.Config

	Version string

	// LogOutput receives the process log. Defaults to os.Stderr.
	LogOutput io.Writer
}

// App holds the resolved services. Callers use the exported fields; they
// never need to import dig directly.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Redactor *logging.Redactor
	Audit    *audit.Logger
	Crontab  system.Crontab
	Registry *prometheus.Registry
	Manager  *manager.Manager

	// Backups is nil when backups are disabled.
	Backups *backup.Store

	version   string
	telemetry *telemetry.Provider
	closers   *closers
}

// buildVersion is a named string so dig can tell it apart from other
// strings.
type buildVersion string

// logOutput wraps the log writer for the same reason.
type logOutput struct{ io.Writer }

// closers collects release functions from providers, run in reverse order
// by Close.
type closers struct {
	fns []func(context.Context) error
}

func (c *closers) add(fn func(context.Context) error) { c.fns = append(c.fns, fn) }

// managerParams are the manager's dependencies.
type managerParams struct {
	dig.In

	Config    *config.Config
	Crontab   system.Crontab
	Backups   *backup.Store
	Audit     *audit.Logger
	Redactor  *logging.Redactor
	Metrics   *manager.Metrics
	Logger    *slog.Logger
	Telemetry *telemetry.Provider
}

// New builds and wires all services from opts. Close releases them.
func New(ctx context.Context, opts Options) (*App, error) {
	if opts.Config == nil {
		return nil, errors.New("app: config is required")
	}
	out := opts.LogOutput
	if out == nil {
		out = os.Stderr
	}
	cl := &closers{}

	d := dig.New()
	providers := []any{
		func() *config.Config { return opts.Config },
		func() buildVersion { return buildVersion(opts.Version) },
		func() logOutput { return logOutput{out} },
		func() *closers { return cl },
		logging.NewRedactor,
		newLogger,
		newAudit,
		func(cfg *config.Config, cl *closers) (*backup.Store, error) { return newBackupStore(ctx, cfg, cl) },
		newCrontab,
		newRegistry,
		func(reg *prometheus.Registry) *manager.Metrics { return manager.NewMetrics(reg) },
		func(cfg *config.Config, v buildVersion, cl *closers) (*telemetry.Provider, error) {
			return newTelemetry(ctx, cfg, v, cl)
		},
		newManager,
	}
	for _, p := range providers {
		if err := d.Provide(p); err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
	}

	var a *App
	err := d.Invoke(func(
		cfg *config.Config,
		logger *slog.Logger,
		redactor *logging.Redactor,
		auditLog *audit.Logger,
		tab system.Crontab,
		reg *prometheus.Registry,
		store *backup.Store,
		tp *telemetry.Provider,
		mgr *manager.Manager,
	) {
		a = &App{
			Config:    cfg,
			Logger:    logger,
			Redactor:  redactor,
			Audit:     auditLog,
			Crontab:   tab,
			Registry:  reg,
			Manager:   mgr,
			Backups:   store,
			version:   opts.Version,
			telemetry: tp,
			closers:   cl,
		}
	})
	if err != nil {
		// Release whatever the providers that did run opened.
		_ = cl.close(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("app: %w", dig.RootCause(err))
	}
	return a, nil
}

// Close flushes traces and closes the backup database and audit log.
func (a *App) Close(ctx context.Context) error {
	return a.closers.close(ctx)
}

func (c *closers) close(ctx context.Context) error {
	var errs []error
	for _, fn := range slices.Backward(c.fns) {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	c.fns = nil
	return errors.Join(errs...)
}

// MCP returns an MCP server bound to the manager.
func (a *App) MCP() *mcpserver.Server {
	return mcpserver.New(a.Manager, a.version, a.Logger)
}

// Version is the build version the app was created with.
func (a *App) Version() string { return a.version }

func newLogger(cfg *config.Config, r *logging.Redactor, out logOutput) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return logging.New(out, level, cfg.Log.Format, r), nil
}

func newAudit(cfg *config.Config, r *logging.Redactor, cl *closers) (*audit.Logger, error) {
	l, f, err := audit.OpenFile(filepath.Join(cfg.DataDir, AuditFile), r)
	if err != nil {
		return nil, err
	}
	cl.add(func(context.Context) error { return f.Close() })
	return l, nil
}

// newBackupStore opens the backup database, or returns nil when backups are
// disabled.
func newBackupStore(ctx context.Context, cfg *config.Config, cl *closers) (*backup.Store, error) {
	if !cfg.Backups.IsEnabled() {
		return nil, nil
	}
	store, err := backup.Open(ctx, filepath.Join(cfg.DataDir, backup.DefaultFile))
	if err != nil {
		return nil, err
	}
	cl.add(func(context.Context) error { return store.Close() })
	return store, nil
}

func newCrontab(cfg *config.Config, logger *slog.Logger) system.Crontab {
	if cfg.Crontab.Backend == config.BackendFile {
		return system.NewFileCrontab(manager.ExpandHome(cfg.Crontab.Path))
	}
	return system.NewCommandCrontab(cfg.Crontab.Binary, cfg.Crontab.User, logger)
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func newTelemetry(ctx context.Context, cfg *config.Config, v buildVersion, cl *closers) (*telemetry.Provider, error) {
	tp, err := telemetry.New(ctx, cfg.Telemetry, string(v))
	if err != nil {
		return nil, err
	}
	cl.add(tp.Shutdown)
	return tp, nil
}

func newManager(p managerParams) *manager.Manager {
	opts := manager.Options{
		Crontab:    p.Crontab,
		Audit:      p.Audit,
		Redactor:   p.Redactor,
		Metrics:    p.Metrics,
		Logger:     p.Logger,
		Tracer:     p.Telemetry.Tracer(manager.TracerName),
		Shell:      p.Config.Runner.Shell,
		RunTimeout: p.Config.Runner.Timeout,
	}
	// A nil *backup.Store must not become a non-nil interface.
	if p.Backups != nil {
		opts.Backups = p.Backups
	}
	return manager.New(opts)
}
