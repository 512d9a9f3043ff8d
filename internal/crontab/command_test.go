package crontab

import "testing"

func TestBuildCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		job  Job
		want string
	}{
		{
			name: "bare command",
			job:  Job{Command: "echo hi"},
			want: "echo hi",
		},
		{
			name: "log file merges stderr",
			job:  Job{Command: "/usr/local/bin/backup.sh", LogFile: "/var/log/backup.log"},
			want: "mkdir -p '/var/log' && /usr/local/bin/backup.sh >> '/var/log/backup.log' 2>&1",
		},
		{
			name: "separate stderr in another directory",
			job:  Job{Command: "run", LogFile: "/var/log/out.log", LogStderr: "/tmp/err.log"},
			want: "mkdir -p '/var/log' '/tmp' && run >> '/var/log/out.log' 2>> '/tmp/err.log'",
		},
		{
			name: "everything",
			job: Job{
				Command:    "./run.sh",
				WorkingDir: "/srv/app",
				Env:        map[string]string{"B": "2", "A": "x y"},
				LogFile:    "~/logs/out.log",
				LogStderr:  "~/logs/err.log",
			},
			want: "mkdir -p ~/'logs' && cd '/srv/app' && A='x y' B='2' ./run.sh >> ~/'logs/out.log' 2>> ~/'logs/err.log'",
		},
		{
			name: "existing redirect skips logging",
			job:  Job{Command: "run > /dev/null", LogFile: "/var/log/out.log"},
			want: "run > /dev/null",
		},
		{
			name: "percent escaped for cron",
			job:  Job{Command: "date +%F", Env: map[string]string{"P": "50%"}},
			want: `P='50\%' date +\%F`,
		},
		{
			name: "env value with quote",
			job:  Job{Command: "run", Env: map[string]string{"MSG": "it's"}},
			want: `MSG='it'\''s' run`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := BuildCommand(tt.job); got != tt.want {
				t.Errorf("BuildCommand() =\n  %q\nwant\n  %q", got, tt.want)
			}
		})
	}
}

func TestUnwrapCommand(t *testing.T) {
	t.Parallel()

	jobs := []Job{
		{Command: "echo hi"},
		{Command: "/usr/local/bin/backup.sh", LogFile: "/var/log/backup.log"},
		{Command: "run > /dev/null", LogFile: "/var/log/out.log"},
		{Command: "./run.sh", WorkingDir: "~/app", Env: map[string]string{"A": "a > b"}, LogFile: "/tmp/x.log"},
		{Command: "printf '%s' done", Env: map[string]string{"K": "v"}},
		{Command: `echo 100\% %d`, LogFile: "/tmp/100%/out.log"},
	}

	for _, j := range jobs {
		meta := j
		meta.Command = ""
		if got := unwrapCommand(BuildCommand(j), meta); got != j.Command {
			t.Errorf("unwrapCommand(BuildCommand(%+v)) = %q, want %q", j, got, j.Command)
		}
	}
}

func TestUnwrapCommandHandEdited(t *testing.T) {
	t.Parallel()

	// The LOG metadata is still there but somebody removed the redirection.
	meta := Job{LogFile: "/var/log/out.log"}
	if got := unwrapCommand("run --now", meta); got != "run --now" {
		t.Errorf("unwrapCommand() = %q, want command untouched", got)
	}
}

func TestHasOutputRedirect(t *testing.T) {
	t.Parallel()

	tests := map[string]bool{
		"echo hi":             false,
		"echo hi > out":       true,
		"echo hi >> out":      true,
		"run 2>&1":            true,
		"run &> all.log":      true,
		"run;>x":              true,
		"curl 'a=b'":          false,
		"test 1 -gt 0":        false,
		"grep -c foo | wc -l": false,
		"run 2>/dev/null":     true,
	}
	for cmd, want := range tests {
		if got := HasOutputRedirect(cmd); got != want {
			t.Errorf("HasOutputRedirect(%q) = %v, want %v", cmd, got, want)
		}
	}
}

func TestHasUnescapedPercent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want bool
	}{
		{"date", false},
		{`date +\%F`, false},
		{"date +%F", true},
		{"%start", true},
		{`a\\%b`, false},
		{BuildCommand(Job{Command: "x%y%"}), false},
	}
	for _, tt := range tests {
		if got := hasUnescapedPercent(tt.in); got != tt.want {
			t.Errorf("hasUnescapedPercent(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
