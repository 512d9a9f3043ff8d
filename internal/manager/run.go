package manager

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/flemzord/crondeck/internal/audit"
)

// MaxRunOutput caps the output kept from a manual run.
const MaxRunOutput = 1 << 20

// RunResult describes one manual execution of a job.
type RunResult struct {
	JobID     string        `json:"job_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	ExitCode  int           `json:"exit_code"`
	Output    string        `json:"output"`
	Truncated bool          `json:"truncated,omitempty"`
	TimedOut  bool          `json:"timed_out,omitempty"`
}

// Success reports whether the command exited with status 0.
func (r RunResult) Success() bool { return r.ExitCode == 0 && !r.TimedOut }

// Run executes a job's command now with the configured shell, the global
// and job environment and the job's working directory. Output is captured
// (stdout and stderr combined) rather than sent to the job's log file.
//
// A non-zero exit is reported in the result, not as an error. Errors mean
// the job could not be found or the shell could not be started.
func (m *Manager) Run(ctx context.Context, id string) (res RunResult, err error) {
	ctx, span := m.tracer.Start(ctx, "manager.run")
	defer func() {
		m.metrics.operation("run", err)
		recordSpanError(span, err)
		span.End()
	}()

	text, err := m.crontab.Read(ctx)
	if err != nil {
		return RunResult{}, fmt.Errorf("manager: reading crontab: %w", err)
	}
	doc := m.parse(text)
	i, err := resolve(doc, id)
	if err != nil {
		return RunResult{}, err
	}
	job := doc.Jobs[i]
	span.SetAttributes(attribute.String("crondeck.job_id", job.ID))

	env := maps.Clone(map[string]string(doc.Env))
	if env == nil {
		env = make(map[string]string)
	}
	maps.Copy(env, job.Env)

	runCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, m.shell, "-c", job.Command)
	cmd.Env = os.Environ()
	for k, v := range env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	if job.WorkingDir != "" {
		cmd.Dir = ExpandHome(job.WorkingDir)
	}
	out := &cappedBuffer{limit: MaxRunOutput}
	cmd.Stdout, cmd.Stderr = out, out
	cmd.WaitDelay = 5 * time.Second

	res = RunResult{JobID: job.ID, StartedAt: m.now()}
	m.logger.Info("running job", "id", job.ID, "name", job.Name)

	runErr := cmd.Run()
	res.Duration = m.now().Sub(res.StartedAt)
	res.Output = out.String()
	res.Truncated = out.truncated

	var exitErr *exec.ExitError
	switch {
	case runErr == nil:
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		res.TimedOut = true
		res.ExitCode = -1
	case errors.As(runErr, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		return res, fmt.Errorf("manager: running %s: %w", job.ID, runErr)
	}

	m.metrics.ran(res)
	span.SetAttributes(attribute.Int("crondeck.exit_code", res.ExitCode))
	m.logger.Info("job finished", "id", job.ID, "exit_code", res.ExitCode,
		"duration", res.Duration, "timed_out", res.TimedOut)

	m.audit.Record(audit.Event{
		Action:  audit.JobRun,
		JobID:   job.ID,
		JobName: job.Name,
		Source:  sourceFrom(ctx),
		Fields: map[string]string{
			"exit_code": fmt.Sprint(res.ExitCode),
			"duration":  res.Duration.String(),
		},
	})
	return res, nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(p string) string {
	if p != "~" && (len(p) < 2 || p[:2] != "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[1:])
}

// cappedBuffer keeps the first limit bytes written to it and discards the
// rest. Safe for concurrent use.
type cappedBuffer struct {
	mu        sync.Mutex
	buf       []byte
	limit     int
	truncated bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if room := b.limit - len(b.buf); room < len(p) {
		b.buf = append(b.buf, p[:max(room, 0)]...)
		b.truncated = true
		return len(p), nil
	}
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
