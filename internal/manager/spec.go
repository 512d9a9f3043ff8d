package manager

import (
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/flemzord/crondeck/internal/crontab"
	"github.com/flemzord/crondeck/internal/schedule"
)

// envName matches a valid environment variable name.
var envName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// JobSpec holds the user-editable fields of a job. Create and Update take a
// JobSpec; IDs and timestamps are owned by the manager.
type JobSpec struct {
	Name        string            `json:"name,omitempty" yaml:"name,omitempty"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Schedule    string            `json:"schedule" yaml:"schedule"`
	Command     string            `json:"command" yaml:"command"`
	Enabled     *bool             `json:"enabled,omitempty" yaml:"enabled,omitempty"` // nil means true
	Env         map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
	WorkingDir  string            `json:"working_dir,omitempty" yaml:"working_dir,omitempty"`
	LogFile     string            `json:"log_file,omitempty" yaml:"log_file,omitempty"`
	LogStderr   string            `json:"log_stderr,omitempty" yaml:"log_stderr,omitempty"`
	Tags        []string          `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// SpecFromJob returns the editable fields of j.
func SpecFromJob(j crontab.Job) JobSpec {
	enabled := j.Enabled
	c := j.Clone()
	return JobSpec{
		Name:        c.Name,
		Description: c.Description,
		Schedule:    c.Schedule,
		Command:     c.Command,
		Enabled:     &enabled,
		Env:         c.Env,
		WorkingDir:  c.WorkingDir,
		LogFile:     c.LogFile,
		LogStderr:   c.LogStderr,
		Tags:        c.Tags,
	}
}

// Normalize trims the free-text fields, collapses schedule whitespace and
// drops empty tags.
func (s JobSpec) Normalize() JobSpec {
	s.Name = strings.TrimSpace(s.Name)
	s.Description = strings.TrimSpace(s.Description)
	s.Schedule = schedule.Normalize(s.Schedule)
	s.Command = strings.TrimSpace(s.Command)
	s.WorkingDir = strings.TrimSpace(s.WorkingDir)
	s.LogFile = strings.TrimSpace(s.LogFile)
	s.LogStderr = strings.TrimSpace(s.LogStderr)

	var tags []string
	for _, t := range s.Tags {
		if t = strings.TrimSpace(t); t != "" && !slices.Contains(tags, t) {
			tags = append(tags, t)
		}
	}
	s.Tags = tags
	if len(s.Env) == 0 {
		s.Env = nil
	} else {
		s.Env = maps.Clone(s.Env)
	}
	return s
}

// Validate reports every problem with s. The returned error wraps
// ErrInvalidJob.
func (s JobSpec) Validate() error {
	var errs []error

	if res := schedule.Validate(s.Schedule); !res.Valid {
		errs = append(errs, fmt.Errorf("schedule: %s", res.Error))
	}

	switch {
	case strings.TrimSpace(s.Command) == "":
		errs = append(errs, errors.New("command is required"))
	case strings.ContainsAny(s.Command, "\r\n"):
		errs = append(errs, errors.New("command must be a single line"))
	}

	if strings.ContainsAny(s.Name, "\r\n") {
		errs = append(errs, errors.New("name must be a single line"))
	}

	errs = append(errs, validateEnv(s.Env)...)

	for _, p := range []struct{ field, value string }{
		{"working_dir", s.WorkingDir},
		{"log_file", s.LogFile},
		{"log_stderr", s.LogStderr},
	} {
		if err := validatePath(p.value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.field, err))
		}
	}
	if s.LogStderr != "" && s.LogFile == "" {
		errs = append(errs, errors.New("log_stderr requires log_file"))
	}

	for _, t := range s.Tags {
		if strings.ContainsAny(t, ",\r\n") {
			errs = append(errs, fmt.Errorf("tag %q must not contain commas or newlines", t))
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidJob, errors.Join(errs...))
}

// apply copies s onto j, leaving ID and timestamps alone.
func (s JobSpec) apply(j *crontab.Job) {
	j.Name = s.Name
	if j.Name == "" {
		j.Name = crontab.DeriveName(s.Command)
	}
	j.Description = s.Description
	j.Schedule = s.Schedule
	j.Command = s.Command
	j.Enabled = s.Enabled == nil || *s.Enabled
	j.Env = s.Env
	j.WorkingDir = s.WorkingDir
	j.LogFile = s.LogFile
	j.LogStderr = s.LogStderr
	j.Tags = s.Tags
}

// validateEnv checks variable names and rejects values that would break
// the line-oriented crontab format.
func validateEnv(env map[string]string) []error {
	var errs []error
	for _, k := range slices.Sorted(maps.Keys(env)) {
		if !envName.MatchString(k) {
			errs = append(errs, fmt.Errorf("env: invalid variable name %q", k))
			continue
		}
		if strings.ContainsAny(env[k], "\r\n") {
			errs = append(errs, fmt.Errorf("env: %s: value must be a single line", k))
		}
	}
	return errs
}

func validatePath(p string) error {
	switch {
	case p == "":
		return nil
	case strings.ContainsAny(p, "\r\n"):
		return errors.New("must be a single line")
	case filepath.IsAbs(p), p == "~", strings.HasPrefix(p, "~/"):
		return nil
	}
	return fmt.Errorf("%q must be absolute or start with ~/", p)
}
