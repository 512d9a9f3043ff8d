// Package crontab converts between crontab text and structured job records.
//
// Job metadata that plain cron has no room for (name, description, tags,
// per-job environment, log redirection, working directory) is stored in
// comment lines directly above each schedule line:
//
//	# crondeck:ID:01927f6e-8d3a-7c41-9a5e-0c2b4d6e8f10
//	# crondeck:NAME:Nightly backup
//	# crondeck:LOG:/var/log/backup.log
//	0 2 * * * mkdir -p '/var/log' && /usr/local/bin/backup.sh >> '/var/log/backup.log' 2>&1
//
// The crontab text is the only source of truth: every Parse rebuilds the
// document from scratch and Serialize produces the complete file. Lines that
// are not jobs this package can model are kept verbatim in place. Parse of
// Serialize returns the same jobs except for timestamps and tags that break
// the constraints documented on Job.Tags.
package crontab

import (
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Job is one managed cron entry.
type Job struct {
	ID          string            `json:"id" yaml:"id"`
	Name        string            `json:"name" yaml:"name"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Schedule    string            `json:"schedule" yaml:"schedule"`
	Command     string            `json:"command" yaml:"command"`
	Enabled     bool              `json:"enabled" yaml:"enabled"`
	Env         map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
	WorkingDir  string            `json:"working_dir,omitempty" yaml:"working_dir,omitempty"`
	LogFile     string            `json:"log_file,omitempty" yaml:"log_file,omitempty"`
	LogStderr   string            `json:"log_stderr,omitempty" yaml:"log_stderr,omitempty"`

	// Tags are stored comma-joined on one metadata line, so a tag must be
	// non-empty, carry no surrounding whitespace and contain no comma. Parse
	// trims and splits, which normalizes any tag that breaks this.
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`

	// Timestamps are not stored in the crontab; Parse sets both to the
	// time of the read.
	CreatedAt time.Time `json:"created_at" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
}

// Clone returns a deep copy of j.
func (j Job) Clone() Job {
	cp := j
	if j.Env != nil {
		cp.Env = maps.Clone(j.Env)
	}
	if j.Tags != nil {
		cp.Tags = slices.Clone(j.Tags)
	}
	return cp
}

// GlobalEnv holds the KEY=VALUE lines that precede every job in the crontab.
// Values apply to all jobs unless a job's own Env overrides the key.
type GlobalEnv map[string]string

// Keys returns the variable names in sorted order.
func (e GlobalEnv) Keys() []string {
	return slices.Sorted(maps.Keys(e))
}

// Document is a parsed crontab: the global environment header followed by
// jobs in file order.
type Document struct {
	Env  GlobalEnv
	Jobs []Job

	// verbatim holds the lines Parse could not model (plain comments,
	// @reboot style entries, environment lines after the first job, lines
	// with an unescaped %), keyed by the ID of the job they preceded. Lines
	// after the last job are keyed by "". Serialize writes them back in
	// place.
	verbatim map[string][]string

	// order is the job ID sequence at parse time. It re-anchors verbatim
	// lines whose job has since been removed. Only set with verbatim.
	order []string
}

// Find returns the index of the job with the given ID, or -1.
func (d *Document) Find(id string) int {
	return slices.IndexFunc(d.Jobs, func(j Job) bool { return j.ID == id })
}

// NewID returns a fresh, time-ordered job identifier.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// interpreters are commands whose first argument is the interesting part
// of a job's command line when deriving a display name.
var interpreters = map[string]bool{
	"sh": true, "bash": true, "zsh": true, "dash": true,
	"python": true, "python3": true, "node": true, "deno": true, "bun": true,
	"ruby": true, "perl": true, "php": true,
}

const maxDerivedName = 40

// DeriveName builds a display label from a command: the script's base name
// for interpreter or script invocations, otherwise the first characters of
// the command.
func DeriveName(command string) string {
	fields := strings.Fields(command)
	// Skip leading VAR=value assignments.
	for len(fields) > 0 && envAssignment.MatchString(fields[0]) {
		fields = fields[1:]
	}
	if len(fields) == 0 {
		return "Untitled job"
	}

	target := fields[0]
	if interpreters[filepath.Base(target)] {
		for _, f := range fields[1:] {
			if !strings.HasPrefix(f, "-") {
				target = f
				break
			}
		}
	}
	if strings.Contains(target, "/") {
		if base := filepath.Base(strings.Trim(target, `'"`)); base != "." && base != "/" {
			return base
		}
	}

	trimmed := strings.TrimSpace(command)
	if r := []rune(trimmed); len(r) > maxDerivedName {
		return string(r[:maxDerivedName]) + "…"
	}
	return trimmed
}
