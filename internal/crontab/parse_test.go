package crontab

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"
)

var testNow = time.Date(2026, 3, 14, 9, 26, 0, 0, time.UTC)

// seqIDs returns a deterministic ID generator.
func seqIDs() func(string, int) string {
	n := 0
	return func(string, int) string {
		n++
		return fmt.Sprintf("gen-%d", n)
	}
}

func parseTest(text string) *Document {
	return parse(text, testNow, seqIDs())
}

func TestParseEmpty(t *testing.T) {
	t.Parallel()

	for _, text := range []string{"", "\n\n", "# just a comment\n"} {
		doc := parseTest(text)
		if len(doc.Jobs) != 0 || len(doc.Env) != 0 {
			t.Errorf("Parse(%q) = %+v, want empty document", text, doc)
		}
	}
}

func TestParseGlobalEnv(t *testing.T) {
	t.Parallel()

	text := strings.Join([]string{
		"SHELL=/bin/bash",
		"",
		`MAILTO=""`,
		"GREETING = 'hello world'",
		"PATH=/usr/bin:/bin",
		"",
		"* * * * * echo hi",
		"LATE=ignored",
	}, "\n")

	doc := parseTest(text)
	want := GlobalEnv{
		"SHELL":    "/bin/bash",
		"MAILTO":   "",
		"GREETING": "hello world",
		"PATH":     "/usr/bin:/bin",
	}
	if !reflect.DeepEqual(doc.Env, want) {
		t.Errorf("Env = %v, want %v", doc.Env, want)
	}
	if len(doc.Jobs) != 1 {
		t.Fatalf("len(Jobs) = %d, want 1", len(doc.Jobs))
	}
}

func TestParseJobWithMetadata(t *testing.T) {
	t.Parallel()

	text := strings.Join([]string{
		"# crondeck:ID:job-1",
		"# crondeck:NAME:Nightly backup",
		`# crondeck:DESC:line one\nline two`,
		`# crondeck:ENV:{"A":"x y","B":"2"}`,
		"# crondeck:TAGS:ops, nightly,,db",
		"# crondeck:LOG:/var/log/backup.log",
		"# crondeck:WORKDIR:/srv",
		"0 2 * * * mkdir -p '/var/log' && cd '/srv' && A='x y' B='2' ./backup.sh >> '/var/log/backup.log' 2>&1",
		"",
	}, "\n")

	doc := parseTest(text)
	if len(doc.Jobs) != 1 {
		t.Fatalf("len(Jobs) = %d, want 1", len(doc.Jobs))
	}
	got := doc.Jobs[0]
	want := Job{
		ID:          "job-1",
		Name:        "Nightly backup",
		Description: "line one\nline two",
		Schedule:    "0 2 * * *",
		Command:     "./backup.sh",
		Enabled:     true,
		Env:         map[string]string{"A": "x y", "B": "2"},
		WorkingDir:  "/srv",
		LogFile:     "/var/log/backup.log",
		Tags:        []string{"ops", "nightly", "db"},
		CreatedAt:   testNow,
		UpdatedAt:   testNow,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("job =\n  %+v\nwant\n  %+v", got, want)
	}
}

func TestParseDisabledJob(t *testing.T) {
	t.Parallel()

	doc := parseTest("#   */5  *  * * MON-fri   /opt/check.sh --quiet\n")
	if len(doc.Jobs) != 1 {
		t.Fatalf("len(Jobs) = %d, want 1", len(doc.Jobs))
	}
	j := doc.Jobs[0]
	if j.Enabled {
		t.Error("Enabled = true, want false")
	}
	if j.Schedule != "*/5 * * * MON-fri" {
		t.Errorf("Schedule = %q", j.Schedule)
	}
	if j.Command != "/opt/check.sh --quiet" {
		t.Errorf("Command = %q", j.Command)
	}
	if j.Name != "check.sh" {
		t.Errorf("Name = %q, want derived %q", j.Name, "check.sh")
	}
	if j.ID != "gen-1" {
		t.Errorf("ID = %q, want generated", j.ID)
	}
}

func TestParseSkipsUnknownLines(t *testing.T) {
	t.Parallel()

	text := strings.Join([]string{
		"# m h  dom mon dow   command",
		"@reboot /usr/bin/startup",
		"not a cron line",
		"# crondeck:NAME:kept",
		"# a plain comment between metadata and its job",
		"# crondeck:BOGUS:whatever",
		"15 * * * * date",
	}, "\n")

	doc := parseTest(text)
	if len(doc.Jobs) != 1 {
		t.Fatalf("len(Jobs) = %d, want 1", len(doc.Jobs))
	}
	if doc.Jobs[0].Name != "kept" {
		t.Errorf("Name = %q, want metadata to survive plain comments", doc.Jobs[0].Name)
	}

	want := []string{
		"# m h  dom mon dow   command",
		"@reboot /usr/bin/startup",
		"not a cron line",
		"# a plain comment between metadata and its job",
	}
	if got := doc.verbatim[doc.Jobs[0].ID]; !reflect.DeepEqual(got, want) {
		t.Errorf("verbatim lines = %q, want %q", got, want)
	}
}

func TestParseUnescapedPercent(t *testing.T) {
	t.Parallel()

	text := strings.Join([]string{
		`0 1 * * * date +\%F > /tmp/today`,
		"0 2 * * * mail -s report ops%see attached",
	}, "\n")

	doc := parseTest(text)
	if len(doc.Jobs) != 1 {
		t.Fatalf("len(Jobs) = %d, want 1", len(doc.Jobs))
	}
	if got := doc.Jobs[0].Command; got != "date +%F > /tmp/today" {
		t.Errorf("Command = %q, want escapes removed", got)
	}
	if got := doc.verbatim[""]; len(got) != 1 || got[0] != "0 2 * * * mail -s report ops%see attached" {
		t.Errorf("stdin line not kept verbatim: %q", got)
	}
}

func TestParseBlankLineResetsMetadata(t *testing.T) {
	t.Parallel()

	text := strings.Join([]string{
		"# crondeck:ID:orphan",
		"# crondeck:NAME:Orphaned",
		"",
		"0 * * * * /usr/bin/true",
	}, "\n")

	doc := parseTest(text)
	if len(doc.Jobs) != 1 {
		t.Fatalf("len(Jobs) = %d, want 1", len(doc.Jobs))
	}
	j := doc.Jobs[0]
	if j.ID == "orphan" || j.Name == "Orphaned" {
		t.Errorf("metadata leaked across blank line: %+v", j)
	}
	if j.Name != "true" {
		t.Errorf("Name = %q, want %q", j.Name, "true")
	}
}

func TestParseBlankLineSeparatesBlocks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		lines []string
		want  []Job
	}{
		{
			name: "each block has its job",
			lines: []string{
				"# crondeck:ID:first",
				"# crondeck:NAME:First",
				"# crondeck:TAGS:a",
				"0 1 * * * one",
				"",
				"# crondeck:ID:second",
				"# crondeck:NAME:Second",
				"0 2 * * * two",
			},
			want: []Job{
				{ID: "first", Name: "First", Tags: []string{"a"}, Command: "one"},
				{ID: "second", Name: "Second", Command: "two"},
			},
		},
		{
			name: "second block replaces the first",
			lines: []string{
				"# crondeck:ID:first",
				"# crondeck:TAGS:a",
				"",
				"# crondeck:ID:second",
				"# crondeck:NAME:Second",
				"0 2 * * * two",
			},
			want: []Job{
				{ID: "second", Name: "Second", Command: "two"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			doc := parseTest(strings.Join(tt.lines, "\n"))
			if len(doc.Jobs) != len(tt.want) {
				t.Fatalf("len(Jobs) = %d, want %d", len(doc.Jobs), len(tt.want))
			}
			for i, want := range tt.want {
				got := doc.Jobs[i]
				if got.ID != want.ID || got.Name != want.Name || got.Command != want.Command ||
					!reflect.DeepEqual(got.Tags, want.Tags) {
					t.Errorf("Jobs[%d] = %+v, want %+v", i, got, want)
				}
			}
		})
	}
}

func TestParseTagsNormalized(t *testing.T) {
	t.Parallel()

	doc := parseTest("# crondeck:TAGS: padded ,,b\n* * * * * x\n")
	if got := doc.Jobs[0].Tags; !reflect.DeepEqual(got, []string{"padded", "b"}) {
		t.Errorf("Tags = %q, want trimmed and non-empty", got)
	}
}

func TestParseInvalidEnvMetadata(t *testing.T) {
	t.Parallel()

	text := strings.Join([]string{
		"# crondeck:ENV:{not json",
		"# crondeck:NAME:broken env",
		"* * * * * A='1' run",
	}, "\n")

	doc := parseTest(text)
	if len(doc.Jobs) != 1 {
		t.Fatalf("len(Jobs) = %d, want 1", len(doc.Jobs))
	}
	j := doc.Jobs[0]
	if j.Env != nil {
		t.Errorf("Env = %v, want nil", j.Env)
	}
	if j.Command != "A='1' run" {
		t.Errorf("Command = %q, want the full text", j.Command)
	}
	if j.Name != "broken env" {
		t.Errorf("Name = %q", j.Name)
	}
}

func TestParseDuplicateIDs(t *testing.T) {
	t.Parallel()

	text := strings.Join([]string{
		"# crondeck:ID:same",
		"* * * * * a",
		"",
		"# crondeck:ID:same",
		"* * * * * b",
	}, "\n")

	doc := parseTest(text)
	if len(doc.Jobs) != 2 {
		t.Fatalf("len(Jobs) = %d, want 2", len(doc.Jobs))
	}
	if doc.Jobs[0].ID != "same" || doc.Jobs[1].ID == "same" {
		t.Errorf("IDs = %q, %q; want the second one regenerated", doc.Jobs[0].ID, doc.Jobs[1].ID)
	}
}

func TestParseCRLF(t *testing.T) {
	t.Parallel()

	doc := parseTest("A=1\r\n\r\n# crondeck:NAME:win\r\n5 4 * * sun echo ok\r\n")
	if doc.Env["A"] != "1" {
		t.Errorf("Env[A] = %q", doc.Env["A"])
	}
	if len(doc.Jobs) != 1 || doc.Jobs[0].Command != "echo ok" || doc.Jobs[0].Name != "win" {
		t.Errorf("Jobs = %+v", doc.Jobs)
	}
}

func TestParseDefaultsTimestamps(t *testing.T) {
	t.Parallel()

	doc := Parse("* * * * * echo hi\n")
	if len(doc.Jobs) != 1 {
		t.Fatalf("len(Jobs) = %d, want 1", len(doc.Jobs))
	}
	j := doc.Jobs[0]
	if j.ID == "" || j.CreatedAt.IsZero() || !j.CreatedAt.Equal(j.UpdatedAt) {
		t.Errorf("job defaults not applied: %+v", j)
	}
}

func TestParseStableIDs(t *testing.T) {
	t.Parallel()

	text := "* * * * * echo hi\n* * * * * echo hi\n# crondeck:ID:x\n0 0 * * * date\n"
	a, b := Parse(text), Parse(text)
	if len(a.Jobs) != 3 {
		t.Fatalf("len(Jobs) = %d, want 3", len(a.Jobs))
	}
	for i := range a.Jobs {
		if a.Jobs[i].ID != b.Jobs[i].ID {
			t.Errorf("job %d ID changed between reads: %q vs %q", i, a.Jobs[i].ID, b.Jobs[i].ID)
		}
	}
	if a.Jobs[0].ID == a.Jobs[1].ID {
		t.Error("identical lines share an ID")
	}
	if a.Jobs[2].ID != "x" {
		t.Errorf("metadata ID = %q, want x", a.Jobs[2].ID)
	}
}

func TestDeriveName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		command string
		want    string
	}{
		{command: "/usr/local/bin/backup.sh --full", want: "backup.sh"},
		{command: "python3 -u /opt/jobs/report.py", want: "report.py"},
		{command: "FOO=1 BAR=2 bash ./scripts/deploy.sh", want: "deploy.sh"},
		{command: "echo hello", want: "echo hello"},
		{command: "   ", want: "Untitled job"},
		{command: strings.Repeat("x", 50), want: strings.Repeat("x", 40) + "…"},
	}
	for _, tt := range tests {
		if got := DeriveName(tt.command); got != tt.want {
			t.Errorf("DeriveName(%q) = %q, want %q", tt.command, got, tt.want)
		}
	}
}

func FuzzParse(f *testing.F) {
	f.Add("")
	f.Add("A=1\n\n# crondeck:ID:x\n* * * * * echo\n")
	f.Add("#0 0 1 jan mon run > /dev/null\n")
	f.Add("# crondeck:ENV:{\"a\":\"b\"}\n# crondeck:LOG:/x/y\n* * * * * a='b' c\n")

	f.Fuzz(func(t *testing.T, text string) {
		doc := parse(text, testNow, seqIDs())
		ids := make(map[string]bool)
		for _, j := range doc.Jobs {
			if j.ID == "" || ids[j.ID] {
				t.Fatalf("missing or duplicate ID in %+v", doc.Jobs)
			}
			ids[j.ID] = true
			if j.Name == "" {
				t.Fatalf("job without a name: %+v", j)
			}
		}
	})
}
