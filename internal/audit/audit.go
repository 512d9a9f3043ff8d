// Package audit records crontab changes as JSON lines.
package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/flemzord/crondeck/internal/logging"
)

// DefaultFile is the audit log file name inside the data directory.
const DefaultFile = "audit.jsonl"

// Action identifies what happened.
type Action string

// Audited actions.
const (
	JobCreate      Action = "job_create"
	JobUpdate      Action = "job_update"
	JobDelete      Action = "job_delete"
	JobEnable      Action = "job_enable"
	JobDisable     Action = "job_disable"
	JobDuplicate   Action = "job_duplicate"
	JobRun         Action = "job_run"
	EnvUpdate      Action = "env_update"
	CrontabRestore Action = "crontab_restore"
	BackupPrune    Action = "backup_prune"
	AuthFailure    Action = "auth_failure"
)

// Event is one audit record.
type Event struct {
	Time    time.Time         `json:"time"`
	Action  Action            `json:"action"`
	JobID   string            `json:"job_id,omitempty"`
	JobName string            `json:"job_name,omitempty"`
	Source  string            `json:"source,omitempty"` // cli, api, mcp, scheduler
	Detail  string            `json:"detail,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Options configures a Logger.
type Options struct {
	// Writer receives one JSON object per line. Nil disables output.
	Writer io.Writer

	// Redactor scrubs Detail and Fields before they are written.
	Redactor *logging.Redactor

	// OnEvent is called with every event after redaction.
	OnEvent func(Event)

	// Now defaults to time.Now.
	Now func() time.Time
}

// Logger writes audit events. A nil *Logger discards events. Safe for
// concurrent use.
type Logger struct {
	opts Options
	mu   sync.Mutex
}

// New returns a Logger.
func New(opts Options) *Logger {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Logger{opts: opts}
}

// OpenFile returns a Logger appending to path. Close the returned file when
// done.
func OpenFile(path string, r *logging.Redactor) (*Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, nil, fmt.Errorf("audit: create directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("audit: open %s: %w", path, err)
	}
	return New(Options{Writer: f, Redactor: r}), f, nil
}

// Record stamps and writes ev. The caller's Fields map is not modified.
func (l *Logger) Record(ev Event) {
	if l == nil {
		return
	}
	ev.Time = l.opts.Now().UTC()
	ev.Fields = maps.Clone(ev.Fields)

	if r := l.opts.Redactor; r != nil {
		ev.Detail = r.Redact(ev.Detail)
		for k, v := range ev.Fields {
			ev.Fields[k] = r.Redact(v)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.opts.OnEvent != nil {
		l.opts.OnEvent(ev)
	}
	if l.opts.Writer != nil {
		_ = json.NewEncoder(l.opts.Writer).Encode(ev)
	}
}
