package manager

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/flemzord/crondeck/internal/crontab"
)

func TestJobSpecValidate(t *testing.T) {
	t.Parallel()

	valid := JobSpec{Schedule: "*/5 * * * *", Command: "echo ok"}

	tests := []struct {
		name   string
		mutate func(*JobSpec)
		want   string
	}{
		{name: "valid"},
		{name: "bad schedule", mutate: func(s *JobSpec) { s.Schedule = "* * *" }, want: "expected 5 fields"},
		{name: "empty command", mutate: func(s *JobSpec) { s.Command = "  " }, want: "command is required"},
		{name: "multiline command", mutate: func(s *JobSpec) { s.Command = "a\nb" }, want: "command must be a single line"},
		{name: "multiline name", mutate: func(s *JobSpec) { s.Name = "a\nb" }, want: "name must be a single line"},
		{name: "env name", mutate: func(s *JobSpec) { s.Env = map[string]string{"BAD-NAME": "x"} }, want: `invalid variable name "BAD-NAME"`},
		{name: "env value", mutate: func(s *JobSpec) { s.Env = map[string]string{"OK": "a\nb"} }, want: "OK: value must be a single line"},
		{name: "relative workdir", mutate: func(s *JobSpec) { s.WorkingDir = "jobs" }, want: "working_dir"},
		{name: "tilde workdir", mutate: func(s *JobSpec) { s.WorkingDir = "~/jobs" }},
		{name: "relative log", mutate: func(s *JobSpec) { s.LogFile = "out.log" }, want: "log_file"},
		{name: "stderr without log", mutate: func(s *JobSpec) { s.LogStderr = "/tmp/err.log" }, want: "log_stderr requires log_file"},
		{name: "tag with comma", mutate: func(s *JobSpec) { s.Tags = []string{"a,b"} }, want: "must not contain commas"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			spec := valid
			if tt.mutate != nil {
				tt.mutate(&spec)
			}
			err := spec.Validate()
			if tt.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidJob) || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want ErrInvalidJob containing %q", err, tt.want)
			}
		})
	}
}

func TestJobSpecNormalize(t *testing.T) {
	t.Parallel()

	got := JobSpec{
		Name:     " n ",
		Schedule: " 0   1 * * * ",
		Command:  "\tcmd\t",
		Env:      map[string]string{},
		Tags:     []string{" a", "b", "a", " "},
	}.Normalize()

	want := JobSpec{Name: "n", Schedule: "0 1 * * *", Command: "cmd", Tags: []string{"a", "b"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Normalize() = %+v, want %+v", got, want)
	}
}

func TestSpecFromJobRoundTrip(t *testing.T) {
	t.Parallel()

	j := crontab.Job{
		ID:         "x",
		Name:       "name",
		Schedule:   "0 0 * * *",
		Command:    "cmd",
		Enabled:    false,
		Env:        map[string]string{"A": "1"},
		LogFile:    "/tmp/x.log",
		LogStderr:  "/tmp/x.err",
		WorkingDir: "/srv",
		Tags:       []string{"t"},
	}
	var got crontab.Job
	got.ID = j.ID
	SpecFromJob(j).apply(&got)
	if !reflect.DeepEqual(got, j) {
		t.Errorf("apply(SpecFromJob(j)) = %+v, want %+v", got, j)
	}
}

func TestJobSpecDerivesName(t *testing.T) {
	t.Parallel()

	var j crontab.Job
	JobSpec{Schedule: "* * * * *", Command: "/opt/bin/report.sh"}.apply(&j)
	if j.Name != "report.sh" || !j.Enabled {
		t.Errorf("job = %+v", j)
	}
}
