// Package manager edits the crontab on behalf of the CLI, the HTTP API and
// the MCP server.
//
// Every change reads the current crontab, parses it, applies the edit,
// serializes the document and installs the result. The text being replaced
// is snapshotted first, so any edit can be undone from the backup history.
// The crontab itself is the only state: nothing is cached between calls.
package manager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/flemzord/crondeck/internal/audit"
	"github.com/flemzord/crondeck/internal/backup"
	"github.com/flemzord/crondeck/internal/crontab"
	"github.com/flemzord/crondeck/internal/logging"
	"github.com/flemzord/crondeck/internal/schedule"
	"github.com/flemzord/crondeck/internal/system"
)

// TracerName identifies spans created by this package.
const TracerName = "github.com/flemzord/crondeck/internal/manager"

// NextRunCount is how many upcoming occurrences a JobView carries.
const NextRunCount = 5

// minPrefix is the shortest ID prefix accepted in place of a full ID.
const minPrefix = 4

// Snapshotter stores crontab text before it is replaced.
// *backup.Store satisfies it.
type Snapshotter interface {
	Save(ctx context.Context, content, reason string) (backup.Backup, bool, error)
}

// Compile-time interface check.
var _ Snapshotter = (*backup.Store)(nil)

// Options configures a Manager.
type Options struct {
	// Crontab is read and written on every operation. Required.
	Crontab system.Crontab

	// Backups receives the previous crontab text before each write. Nil
	// disables snapshots.
	Backups Snapshotter

	Audit    *audit.Logger
	Redactor *logging.Redactor
	Metrics  *Metrics
	Logger   *slog.Logger
	Tracer   trace.Tracer

	// Shell runs commands for Run. Defaults to /bin/sh.
	Shell string

	// RunTimeout bounds Run. Defaults to 10 minutes.
	RunTimeout time.Duration

	// Now defaults to time.Now.
	Now func() time.Time
}

// Manager applies job and environment edits to a crontab. Safe for
// concurrent use; writes are serialized.
type Manager struct {
	crontab  system.Crontab
	backups  Snapshotter
	audit    *audit.Logger
	redactor *logging.Redactor
	metrics  *Metrics
	logger   *slog.Logger
	tracer   trace.Tracer
	shell    string
	timeout  time.Duration
	now      func() time.Time

	mu sync.Mutex
}

// New creates a Manager.
func New(opts Options) *Manager {
	m := &Manager{
		crontab:  opts.Crontab,
		backups:  opts.Backups,
		audit:    opts.Audit,
		redactor: opts.Redactor,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		tracer:   opts.Tracer,
		shell:    opts.Shell,
		timeout:  opts.RunTimeout,
		now:      opts.Now,
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	m.logger = m.logger.With("component", "manager")
	if m.tracer == nil {
		m.tracer = otel.Tracer(TracerName)
	}
	if m.redactor == nil {
		m.redactor = logging.NewRedactor()
	}
	if m.shell == "" {
		m.shell = "/bin/sh"
	}
	if m.timeout <= 0 {
		m.timeout = 10 * time.Minute
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// JobView is a job plus the values derived from its schedule.
type JobView struct {
	crontab.Job `yaml:",inline"`

	NextRuns      []time.Time `json:"next_runs" yaml:"next_runs"`
	HumanSchedule string      `json:"human_schedule" yaml:"human_schedule"`
}

func (m *Manager) view(j crontab.Job) JobView {
	return JobView{
		Job:           j,
		NextRuns:      schedule.NextRuns(j.Schedule, NextRunCount, m.now()),
		HumanSchedule: schedule.Describe(j.Schedule),
	}
}

// List returns every job in file order.
func (m *Manager) List(ctx context.Context) ([]JobView, error) {
	doc, err := m.load(ctx, "list")
	if err != nil {
		return nil, err
	}
	views := make([]JobView, 0, len(doc.Jobs))
	for _, j := range doc.Jobs {
		views = append(views, m.view(j))
	}
	return views, nil
}

// Get returns the job with the given ID or unique ID prefix.
func (m *Manager) Get(ctx context.Context, id string) (JobView, error) {
	doc, err := m.load(ctx, "get")
	if err != nil {
		return JobView{}, err
	}
	i, err := resolve(doc, id)
	if err != nil {
		return JobView{}, err
	}
	return m.view(doc.Jobs[i]), nil
}

// Create validates spec, appends it as a new job and returns it.
func (m *Manager) Create(ctx context.Context, spec JobSpec) (JobView, error) {
	spec = spec.Normalize()
	if err := spec.Validate(); err != nil {
		return JobView{}, err
	}

	now := m.now()
	job := crontab.Job{ID: crontab.NewID(), CreatedAt: now, UpdatedAt: now}
	spec.apply(&job)

	err := m.mutate(ctx, "create", func(doc *crontab.Document) (audit.Event, error) {
		doc.Jobs = append(doc.Jobs, job)
		return jobEvent(audit.JobCreate, job), nil
	})
	if err != nil {
		return JobView{}, err
	}
	m.logger.Info("job created", "id", job.ID, "name", job.Name)
	return m.view(job), nil
}

// Update replaces the editable fields of a job with spec.
func (m *Manager) Update(ctx context.Context, id string, spec JobSpec) (JobView, error) {
	spec = spec.Normalize()
	if err := spec.Validate(); err != nil {
		return JobView{}, err
	}

	var job crontab.Job
	err := m.mutate(ctx, "update", func(doc *crontab.Document) (audit.Event, error) {
		i, err := resolve(doc, id)
		if err != nil {
			return audit.Event{}, err
		}
		spec.apply(&doc.Jobs[i])
		doc.Jobs[i].UpdatedAt = m.now()
		job = doc.Jobs[i]
		return jobEvent(audit.JobUpdate, job), nil
	})
	if err != nil {
		return JobView{}, err
	}
	m.logger.Info("job updated", "id", job.ID, "name", job.Name)
	return m.view(job), nil
}

// Delete removes a job and returns it.
func (m *Manager) Delete(ctx context.Context, id string) (crontab.Job, error) {
	var job crontab.Job
	err := m.mutate(ctx, "delete", func(doc *crontab.Document) (audit.Event, error) {
		i, err := resolve(doc, id)
		if err != nil {
			return audit.Event{}, err
		}
		job = doc.Jobs[i]
		doc.Jobs = slices.Delete(doc.Jobs, i, i+1)
		return jobEvent(audit.JobDelete, job), nil
	})
	if err != nil {
		return crontab.Job{}, err
	}
	m.logger.Info("job deleted", "id", job.ID, "name", job.Name)
	return job, nil
}

// SetEnabled comments a job out or back in.
func (m *Manager) SetEnabled(ctx context.Context, id string, enabled bool) (JobView, error) {
	op, action := "disable", audit.JobDisable
	if enabled {
		op, action = "enable", audit.JobEnable
	}

	var job crontab.Job
	err := m.mutate(ctx, op, func(doc *crontab.Document) (audit.Event, error) {
		i, err := resolve(doc, id)
		if err != nil {
			return audit.Event{}, err
		}
		doc.Jobs[i].Enabled = enabled
		doc.Jobs[i].UpdatedAt = m.now()
		job = doc.Jobs[i]
		return audit.Event{Action: action, JobID: job.ID, JobName: job.Name}, nil
	})
	if err != nil {
		return JobView{}, err
	}
	m.logger.Info("job "+op+"d", "id", job.ID, "name", job.Name)
	return m.view(job), nil
}

// Duplicate inserts a disabled copy of a job right after it. The copy gets
// a new ID and a "(copy)" name suffix.
func (m *Manager) Duplicate(ctx context.Context, id string) (JobView, error) {
	var job crontab.Job
	err := m.mutate(ctx, "duplicate", func(doc *crontab.Document) (audit.Event, error) {
		i, err := resolve(doc, id)
		if err != nil {
			return audit.Event{}, err
		}
		now := m.now()
		job = doc.Jobs[i].Clone()
		job.ID = crontab.NewID()
		job.Name += " (copy)"
		job.Enabled = false
		job.CreatedAt, job.UpdatedAt = now, now
		doc.Jobs = slices.Insert(doc.Jobs, i+1, job)

		ev := jobEvent(audit.JobDuplicate, job)
		ev.Detail = "copy of " + doc.Jobs[i].ID
		return ev, nil
	})
	if err != nil {
		return JobView{}, err
	}
	m.logger.Info("job duplicated", "id", job.ID, "name", job.Name)
	return m.view(job), nil
}

// GlobalEnv returns the variables defined at the top of the crontab.
func (m *Manager) GlobalEnv(ctx context.Context) (crontab.GlobalEnv, error) {
	doc, err := m.load(ctx, "env")
	if err != nil {
		return nil, err
	}
	return doc.Env, nil
}

// SetGlobalEnv replaces the whole global environment.
func (m *Manager) SetGlobalEnv(ctx context.Context, env map[string]string) error {
	return m.PatchGlobalEnv(ctx, env, nil, true)
}

// PatchGlobalEnv sets the variables in set and removes those in unset. With
// replace, variables not in set are removed too.
func (m *Manager) PatchGlobalEnv(ctx context.Context, set map[string]string, unset []string, replace bool) error {
	if errs := validateEnv(set); len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidEnv, errors.Join(errs...))
	}
	return m.mutate(ctx, "set_env", func(doc *crontab.Document) (audit.Event, error) {
		if replace {
			doc.Env = crontab.GlobalEnv{}
		}
		maps.Copy(doc.Env, set)
		for _, k := range unset {
			delete(doc.Env, k)
		}
		return envEvent(set, unset), nil
	})
}

// ImportEnv reads dotenv formatted variables from r into the global
// environment. Existing variables are kept unless overwrite is set. It
// returns the names that were written.
func (m *Manager) ImportEnv(ctx context.Context, r io.Reader, overwrite bool) ([]string, error) {
	vars, err := godotenv.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("manager: parsing dotenv: %w", err)
	}
	if errs := validateEnv(vars); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEnv, errors.Join(errs...))
	}

	var written []string
	err = m.mutate(ctx, "import_env", func(doc *crontab.Document) (audit.Event, error) {
		set := make(map[string]string, len(vars))
		for k, v := range vars {
			if _, exists := doc.Env[k]; exists && !overwrite {
				continue
			}
			doc.Env[k] = v
			set[k] = v
		}
		written = crontab.GlobalEnv(set).Keys()
		ev := envEvent(set, nil)
		ev.Detail = "imported from dotenv"
		return ev, nil
	})
	if err != nil {
		return nil, err
	}
	return written, nil
}

// Raw returns the crontab text as installed.
func (m *Manager) Raw(ctx context.Context) (string, error) {
	ctx, span := m.tracer.Start(ctx, "manager.raw")
	defer span.End()

	text, err := m.crontab.Read(ctx)
	if err != nil {
		err = fmt.Errorf("manager: reading crontab: %w", err)
		recordSpanError(span, err)
		return "", err
	}
	return text, nil
}

// Restore installs text verbatim, snapshotting the current crontab first.
// reason is recorded in the audit log.
func (m *Manager) Restore(ctx context.Context, text, reason string) error {
	return m.install(ctx, "restore", func(string) (string, audit.Event, error) {
		return text, audit.Event{Action: audit.CrontabRestore, Detail: reason}, nil
	})
}

// Snapshot stores the current crontab in the backup history. It reports
// false when the content matches the latest snapshot or backups are off.
func (m *Manager) Snapshot(ctx context.Context, reason string) (backup.Backup, bool, error) {
	if m.backups == nil {
		return backup.Backup{}, false, nil
	}
	text, err := m.Raw(ctx)
	if err != nil {
		return backup.Backup{}, false, err
	}
	b, saved, err := m.backups.Save(ctx, text, reason)
	if err != nil {
		return backup.Backup{}, false, fmt.Errorf("manager: saving snapshot: %w", err)
	}
	return b, saved, nil
}

// load reads and parses the crontab.
func (m *Manager) load(ctx context.Context, op string) (doc *crontab.Document, err error) {
	ctx, span := m.tracer.Start(ctx, "manager."+op)
	defer func() {
		m.metrics.operation(op, err)
		recordSpanError(span, err)
		span.End()
	}()

	text, err := m.crontab.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("manager: reading crontab: %w", err)
	}
	doc = m.parse(text)
	span.SetAttributes(attribute.Int("crondeck.jobs", len(doc.Jobs)))
	return doc, nil
}

// redactGroup names the crontab's secret values in the redactor.
const redactGroup = "crontab"

// parse parses text, replaces the secret env values known to the redactor
// and refreshes the job gauges.
func (m *Manager) parse(text string) *crontab.Document {
	doc := crontab.Parse(text)

	envs := []map[string]string{doc.Env}
	enabled := 0
	for _, j := range doc.Jobs {
		envs = append(envs, j.Env)
		if j.Enabled {
			enabled++
		}
	}
	// Values removed from the crontab stop being redacted on the next read.
	m.redactor.ReplaceEnv(redactGroup, envs...)
	m.metrics.counted(enabled, len(doc.Jobs)-enabled)
	return doc
}

// mutate applies fn to the parsed crontab and installs the result.
func (m *Manager) mutate(ctx context.Context, op string, fn func(*crontab.Document) (audit.Event, error)) error {
	return m.install(ctx, op, func(before string) (string, audit.Event, error) {
		doc := m.parse(before)
		ev, err := fn(doc)
		if err != nil {
			return "", audit.Event{}, err
		}
		return doc.Serialize(), ev, nil
	})
}

// install is the single write path: read, compute, snapshot, write, audit.
// Writes are skipped when the text does not change.
func (m *Manager) install(ctx context.Context, op string, fn func(before string) (string, audit.Event, error)) (err error) {
	ctx, span := m.tracer.Start(ctx, "manager."+op)
	defer func() {
		m.metrics.operation(op, err)
		recordSpanError(span, err)
		span.End()
	}()

	m.mu.Lock()
	defer m.mu.Unlock()

	before, err := m.crontab.Read(ctx)
	if err != nil {
		return fmt.Errorf("manager: reading crontab: %w", err)
	}

	after, ev, err := fn(before)
	if err != nil {
		return err
	}
	if after == before {
		span.SetAttributes(attribute.Bool("crondeck.changed", false))
		m.logger.Debug("crontab unchanged", "op", op)
		return nil
	}

	if m.backups != nil && strings.TrimSpace(before) != "" {
		if _, _, err := m.backups.Save(ctx, before, "before "+op); err != nil {
			return fmt.Errorf("manager: snapshot before %s: %w", op, err)
		}
	}

	if err := m.crontab.Write(ctx, after); err != nil {
		return fmt.Errorf("manager: installing crontab: %w", err)
	}
	m.metrics.wrote()
	span.SetAttributes(attribute.Bool("crondeck.changed", true))

	ev.Source = sourceFrom(ctx)
	m.audit.Record(ev)
	return nil
}

// resolve finds a job by exact ID, or by a unique prefix of at least
// minPrefix characters.
func resolve(doc *crontab.Document, id string) (int, error) {
	id = strings.TrimSpace(id)
	if i := doc.Find(id); i >= 0 {
		return i, nil
	}
	if len(id) < minPrefix {
		return -1, fmt.Errorf("%w: %q", ErrJobNotFound, id)
	}

	found := -1
	for i, j := range doc.Jobs {
		if strings.HasPrefix(j.ID, id) {
			if found >= 0 {
				return -1, fmt.Errorf("%w: %q", ErrAmbiguousID, id)
			}
			found = i
		}
	}
	if found < 0 {
		return -1, fmt.Errorf("%w: %q", ErrJobNotFound, id)
	}
	return found, nil
}

func jobEvent(action audit.Action, j crontab.Job) audit.Event {
	return audit.Event{
		Action:  action,
		JobID:   j.ID,
		JobName: j.Name,
		Fields: map[string]string{
			"schedule": j.Schedule,
			"command":  j.Command,
			"enabled":  fmt.Sprint(j.Enabled),
		},
	}
}

func envEvent(set map[string]string, unset []string) audit.Event {
	fields := make(map[string]string, len(set)+len(unset))
	for k := range set {
		fields[k] = "set"
	}
	for _, k := range unset {
		fields[k] = "unset"
	}
	return audit.Event{Action: audit.EnvUpdate, Fields: fields}
}

func recordSpanError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
