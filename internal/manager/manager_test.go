package manager

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/flemzord/crondeck/internal/audit"
	"github.com/flemzord/crondeck/internal/backup"
	"github.com/flemzord/crondeck/internal/crontab"
	"github.com/flemzord/crondeck/internal/logging"
	"github.com/flemzord/crondeck/internal/system/systemtest"
)

var testNow = time.Date(2026, 3, 14, 9, 26, 0, 0, time.UTC)

// fakeSnapshots records every Save call.
type fakeSnapshots struct {
	mu    sync.Mutex
	saved []string
	err   error
}

func (f *fakeSnapshots) Save(_ context.Context, content, reason string) (backup.Backup, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return backup.Backup{}, false, f.err
	}
	f.saved = append(f.saved, content)
	return backup.Backup{ID: int64(len(f.saved)), Reason: reason, Content: content}, true, nil
}

type harness struct {
	m      *Manager
	tab    *systemtest.MemoryCrontab
	snaps  *fakeSnapshots
	events *[]audit.Event
	reg    *prometheus.Registry
}

func newHarness(t *testing.T, text string) harness {
	t.Helper()

	var (
		mu     sync.Mutex
		events []audit.Event
	)
	tab := systemtest.NewMemoryCrontab(text)
	snaps := &fakeSnapshots{}
	reg := prometheus.NewRegistry()
	m := New(Options{
		Crontab: tab,
		Backups: snaps,
		Audit: audit.New(audit.Options{OnEvent: func(ev audit.Event) {
			mu.Lock()
			events = append(events, ev)
			mu.Unlock()
		}}),
		Metrics: NewMetrics(reg),
		Logger:  logging.Discard(),
		Now:     func() time.Time { return testNow },
	})
	return harness{m: m, tab: tab, snaps: snaps, events: &events, reg: reg}
}

func boolPtr(b bool) *bool { return &b }

func TestCreateAndList(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "")
	ctx := WithSource(context.Background(), SourceCLI)

	view, err := h.m.Create(ctx, JobSpec{
		Name:     "  Nightly backup ",
		Schedule: "0  2 * * *",
		Command:  " /usr/local/bin/backup.sh ",
		Env:      map[string]string{"TARGET": "s3://bucket"},
		LogFile:  "/var/log/backup.log",
		Tags:     []string{"ops", " ops", ""},
	})
	if err != nil {
		t.Fatal(err)
	}
	if view.ID == "" || view.Name != "Nightly backup" || view.Schedule != "0 2 * * *" {
		t.Errorf("created = %+v", view.Job)
	}
	if !view.Enabled {
		t.Error("Enabled = false, want true by default")
	}
	if !reflect.DeepEqual(view.Tags, []string{"ops"}) {
		t.Errorf("Tags = %v", view.Tags)
	}
	if len(view.NextRuns) != NextRunCount || !view.NextRuns[0].Equal(time.Date(2026, 3, 15, 2, 0, 0, 0, time.UTC)) {
		t.Errorf("NextRuns = %v", view.NextRuns)
	}
	if view.HumanSchedule == "" {
		t.Errorf("HumanSchedule = %q", view.HumanSchedule)
	}

	if !strings.Contains(h.tab.Text(), "# crondeck:ID:"+view.ID) {
		t.Errorf("crontab missing metadata:\n%s", h.tab.Text())
	}
	if len(h.snaps.saved) != 0 {
		t.Errorf("snapshot of an empty crontab was taken")
	}

	jobs, err := h.m.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 1 || jobs[0].ID != view.ID || jobs[0].Command != "/usr/local/bin/backup.sh" {
		t.Errorf("List() = %+v", jobs)
	}

	if len(*h.events) != 1 || (*h.events)[0].Action != audit.JobCreate || (*h.events)[0].Source != SourceCLI {
		t.Errorf("events = %+v", *h.events)
	}
}

func TestCreateInvalid(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "")
	_, err := h.m.Create(context.Background(), JobSpec{Schedule: "61 * * * *", Command: "echo\nrm"})
	if !errors.Is(err, ErrInvalidJob) {
		t.Fatalf("err = %v, want ErrInvalidJob", err)
	}
	for _, want := range []string{"schedule: minute", "single line"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("err = %v, want it to contain %q", err, want)
		}
	}
	if len(h.tab.Writes()) != 0 {
		t.Error("crontab was written")
	}
}

func TestUpdate(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "# crondeck:ID:job-1\n# crondeck:NAME:old\n* * * * * echo old\n")
	ctx := context.Background()

	view, err := h.m.Update(ctx, "job-1", JobSpec{Name: "new", Schedule: "@hourly", Command: "echo new"})
	if !errors.Is(err, ErrInvalidJob) {
		t.Fatalf("err = %v, want ErrInvalidJob for @hourly", err)
	}

	view, err = h.m.Update(ctx, "job-1", JobSpec{Name: "new", Schedule: "0 * * * *", Command: "echo new", Enabled: boolPtr(false)})
	if err != nil {
		t.Fatal(err)
	}
	if view.ID != "job-1" || view.Name != "new" || view.Enabled {
		t.Errorf("updated = %+v", view.Job)
	}
	if !strings.Contains(h.tab.Text(), "#0 * * * * echo new") {
		t.Errorf("crontab =\n%s", h.tab.Text())
	}
	if len(h.snaps.saved) != 1 || !strings.Contains(h.snaps.saved[0], "echo old") {
		t.Errorf("snapshots = %q, want the previous text", h.snaps.saved)
	}

	if _, err := h.m.Update(ctx, "missing", JobSpec{Schedule: "* * * * *", Command: "x"}); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("err = %v, want ErrJobNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "# crondeck:ID:a\n* * * * * a\n\n# crondeck:ID:b\n* * * * * b\n")
	ctx := context.Background()

	job, err := h.m.Delete(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if job.Command != "a" {
		t.Errorf("deleted = %+v", job)
	}
	jobs, err := h.m.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 1 || jobs[0].ID != "b" {
		t.Errorf("List() = %+v", jobs)
	}
	if _, err := h.m.Delete(ctx, "a"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("err = %v, want ErrJobNotFound", err)
	}
}

func TestSetEnabled(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "# crondeck:ID:job-1\n* * * * * echo hi\n")
	ctx := context.Background()

	if _, err := h.m.SetEnabled(ctx, "job-1", false); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(h.tab.Text(), "\n#* * * * * echo hi") {
		t.Errorf("crontab =\n%s", h.tab.Text())
	}
	writes := len(h.tab.Writes())

	// Disabling twice changes nothing.
	if _, err := h.m.SetEnabled(ctx, "job-1", false); err != nil {
		t.Fatal(err)
	}
	if got := len(h.tab.Writes()); got != writes {
		t.Errorf("writes = %d, want %d", got, writes)
	}

	view, err := h.m.SetEnabled(ctx, "job-1", true)
	if err != nil {
		t.Fatal(err)
	}
	if !view.Enabled {
		t.Error("Enabled = false")
	}

	var actions []audit.Action
	for _, ev := range *h.events {
		actions = append(actions, ev.Action)
	}
	if !reflect.DeepEqual(actions, []audit.Action{audit.JobDisable, audit.JobEnable}) {
		t.Errorf("actions = %v", actions)
	}
}

func TestDuplicate(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "# crondeck:ID:a\n# crondeck:NAME:first\n* * * * * a\n\n# crondeck:ID:b\n* * * * * b\n")

	view, err := h.m.Duplicate(context.Background(), "a")
	if err != nil {
		t.Fatal(err)
	}
	if view.ID == "a" || view.Name != "first (copy)" || view.Enabled || view.Command != "a" {
		t.Errorf("copy = %+v", view.Job)
	}

	jobs, err := h.m.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, j := range jobs {
		ids = append(ids, j.ID)
	}
	if !reflect.DeepEqual(ids, []string{"a", view.ID, "b"}) {
		t.Errorf("order = %v", ids)
	}
}

func TestResolvePrefix(t *testing.T) {
	t.Parallel()

	doc := &crontab.Document{Jobs: []crontab.Job{
		{ID: "0192aaaa-1111"},
		{ID: "0192aaaa-2222"},
		{ID: "0193bbbb-3333"},
	}}

	tests := []struct {
		id      string
		want    int
		wantErr error
	}{
		{id: "0192aaaa-2222", want: 1},
		{id: "0193", want: 2},
		{id: "0192", wantErr: ErrAmbiguousID},
		{id: "019", wantErr: ErrJobNotFound},
		{id: "ffff", wantErr: ErrJobNotFound},
	}
	for _, tt := range tests {
		got, err := resolve(doc, tt.id)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("resolve(%q) err = %v, want %v", tt.id, err, tt.wantErr)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("resolve(%q) = %d, %v; want %d", tt.id, got, err, tt.want)
		}
	}
}

func TestGlobalEnv(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "SHELL=/bin/bash\nMAILTO=ops@example.com\n\n* * * * * date\n")
	ctx := context.Background()

	if err := h.m.PatchGlobalEnv(ctx, map[string]string{"PATH": "/usr/bin:/bin"}, []string{"MAILTO"}, false); err != nil {
		t.Fatal(err)
	}
	env, err := h.m.GlobalEnv(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := crontab.GlobalEnv{"SHELL": "/bin/bash", "PATH": "/usr/bin:/bin"}
	if !reflect.DeepEqual(env, want) {
		t.Errorf("GlobalEnv() = %v, want %v", env, want)
	}

	if err := h.m.SetGlobalEnv(ctx, map[string]string{"TZ": "UTC"}); err != nil {
		t.Fatal(err)
	}
	env, err = h.m.GlobalEnv(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(env, crontab.GlobalEnv{"TZ": "UTC"}) {
		t.Errorf("GlobalEnv() = %v", env)
	}

	if err := h.m.SetGlobalEnv(ctx, map[string]string{"1BAD": "x"}); !errors.Is(err, ErrInvalidEnv) {
		t.Errorf("err = %v, want ErrInvalidEnv", err)
	}

	jobs, err := h.m.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 1 {
		t.Errorf("env edits lost jobs: %+v", jobs)
	}
}

func TestImportEnv(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "KEEP=old\n")
	ctx := context.Background()

	dotenv := "# comment\nKEEP=new\nexport API_TOKEN=abcd1234\nQUOTED=\"hello world\"\n"
	written, err := h.m.ImportEnv(ctx, strings.NewReader(dotenv), false)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(written, []string{"API_TOKEN", "QUOTED"}) {
		t.Errorf("written = %v", written)
	}
	env, err := h.m.GlobalEnv(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if env["KEEP"] != "old" || env["QUOTED"] != "hello world" || env["API_TOKEN"] != "abcd1234" {
		t.Errorf("env = %v", env)
	}

	if _, err := h.m.ImportEnv(ctx, strings.NewReader("KEEP=new\n"), true); err != nil {
		t.Fatal(err)
	}
	env, _ = h.m.GlobalEnv(ctx)
	if env["KEEP"] != "new" {
		t.Errorf("KEEP = %q, want overwritten", env["KEEP"])
	}
}

func TestRestoreAndRaw(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "* * * * * current\n")
	ctx := context.Background()

	if err := h.m.Restore(ctx, "0 0 * * * restored\n", "backup #3"); err != nil {
		t.Fatal(err)
	}
	raw, err := h.m.Raw(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if raw != "0 0 * * * restored\n" {
		t.Errorf("Raw() = %q", raw)
	}
	if len(h.snaps.saved) != 1 || h.snaps.saved[0] != "* * * * * current\n" {
		t.Errorf("snapshots = %q", h.snaps.saved)
	}
	last := (*h.events)[len(*h.events)-1]
	if last.Action != audit.CrontabRestore || last.Detail != "backup #3" {
		t.Errorf("event = %+v", last)
	}
}

func TestSnapshot(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "* * * * * current\n")
	b, saved, err := h.m.Snapshot(context.Background(), "manual")
	if err != nil {
		t.Fatal(err)
	}
	if !saved || b.Reason != "manual" || b.Content != "* * * * * current\n" {
		t.Errorf("Snapshot() = %+v, %v", b, saved)
	}

	noBackups := New(Options{Crontab: systemtest.NewMemoryCrontab("x"), Logger: logging.Discard()})
	if _, saved, err := noBackups.Snapshot(context.Background(), "manual"); err != nil || saved {
		t.Errorf("Snapshot() without store = %v, %v", saved, err)
	}
}

func TestBackupFailureBlocksWrite(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "# crondeck:ID:a\n* * * * * a\n")
	h.snaps.err = errors.New("disk full")

	if _, err := h.m.Delete(context.Background(), "a"); err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("err = %v, want the snapshot failure", err)
	}
	if len(h.tab.Writes()) != 0 {
		t.Error("crontab was written without a snapshot")
	}
}

func TestCrontabErrors(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "")
	h.tab.ReadErr = errors.New("permission denied")
	if _, err := h.m.List(context.Background()); err == nil {
		t.Error("List() succeeded with a failing crontab")
	}

	h = newHarness(t, "")
	h.tab.WriteErr = errors.New("crontab: installing new crontab failed")
	_, err := h.m.Create(context.Background(), JobSpec{Schedule: "* * * * *", Command: "date"})
	if err == nil || !strings.Contains(err.Error(), "installing crontab") {
		t.Errorf("err = %v", err)
	}
	if got := testutil.ToFloat64(h.m.metrics.operations.WithLabelValues("create", "error")); got != 1 {
		t.Errorf("create errors = %v, want 1", got)
	}
}

func TestMetrics(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "* * * * * a\n#* * * * * b\n0 * * * * c\n")
	if _, err := h.m.List(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := testutil.ToFloat64(h.m.metrics.jobs.WithLabelValues("enabled")); got != 2 {
		t.Errorf("enabled jobs = %v, want 2", got)
	}
	if got := testutil.ToFloat64(h.m.metrics.jobs.WithLabelValues("disabled")); got != 1 {
		t.Errorf("disabled jobs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(h.m.metrics.operations.WithLabelValues("list", "ok")); got != 1 {
		t.Errorf("list ok = %v, want 1", got)
	}
}

func TestConcurrentCreate(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "")
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.m.Create(context.Background(), JobSpec{Schedule: "* * * * *", Command: "date"}); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	jobs, err := h.m.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 10 {
		t.Errorf("len(jobs) = %d, want 10", len(jobs))
	}
}

func TestMutationsKeepUnmanagedLines(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "MAILTO=a@b\n\n@reboot /usr/bin/startup\n@daily /usr/bin/rotate\n"+
		"0 * * * * date\nPATH=/opt/bin\n*/5 * * * * /opt/bin/poll\n")
	ctx := context.Background()

	assertOrder := func(step string, lines ...string) {
		t.Helper()
		text := h.tab.Text()
		last := -1
		for _, l := range lines {
			i := strings.Index(text, l)
			if i < 0 || i < last {
				t.Fatalf("%s: %q missing or out of order in\n%s", step, l, text)
			}
			last = i
		}
	}

	if _, err := h.m.Create(ctx, JobSpec{Schedule: "0 3 * * *", Command: "echo new"}); err != nil {
		t.Fatal(err)
	}
	assertOrder("create", "MAILTO=a@b", "@reboot /usr/bin/startup", "@daily /usr/bin/rotate",
		"0 * * * * date", "PATH=/opt/bin", "*/5 * * * * /opt/bin/poll", "0 3 * * * echo new")

	jobs, err := h.m.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 3 {
		t.Fatalf("len(jobs) = %d, want 3", len(jobs))
	}
	if _, err := h.m.Delete(ctx, jobs[0].ID); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(h.tab.Text(), "* * * * date") {
		t.Errorf("deleted job still installed:\n%s", h.tab.Text())
	}
	assertOrder("delete", "@reboot /usr/bin/startup", "@daily /usr/bin/rotate",
		"PATH=/opt/bin", "*/5 * * * * /opt/bin/poll", "0 3 * * * echo new")

	if _, err := h.m.SetEnabled(ctx, jobs[1].ID, false); err != nil {
		t.Fatal(err)
	}
	assertOrder("disable", "@reboot /usr/bin/startup", "PATH=/opt/bin", "#*/5 * * * * /opt/bin/poll")
}

func TestCreateEscapesPercent(t *testing.T) {
	t.Parallel()

	h := newHarness(t, "")
	ctx := context.Background()

	view, err := h.m.Create(ctx, JobSpec{Schedule: "0 0 * * *", Command: "tar czf /b/$(date +%F).tgz /data"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(h.tab.Text(), `$(date +\%F)`) {
		t.Errorf("%% not escaped for cron:\n%s", h.tab.Text())
	}
	got, err := h.m.Get(ctx, view.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Command != "tar czf /b/$(date +%F).tgz /data" {
		t.Errorf("Command = %q", got.Command)
	}
}

func TestSecretsTracked(t *testing.T) {
	t.Parallel()

	r := logging.NewRedactor()
	m := New(Options{
		Crontab:  systemtest.NewMemoryCrontab("API_TOKEN=topsecretvalue\n\n* * * * * date\n"),
		Redactor: r,
		Logger:   logging.Discard(),
	})
	if _, err := m.List(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := r.Redact("token is topsecretvalue"); strings.Contains(got, "topsecretvalue") {
		t.Errorf("Redact() = %q", got)
	}
}

func TestSecretsForgottenWhenRemoved(t *testing.T) {
	t.Parallel()

	r := logging.NewRedactor()
	m := New(Options{
		Crontab:  systemtest.NewMemoryCrontab("API_TOKEN=topsecretvalue\n\n* * * * * date\n"),
		Redactor: r,
		Logger:   logging.Discard(),
	})
	ctx := context.Background()
	if err := m.PatchGlobalEnv(ctx, nil, []string{"API_TOKEN"}, false); err != nil {
		t.Fatal(err)
	}
	if _, err := m.List(ctx); err != nil {
		t.Fatal(err)
	}
	if got := r.Redact("old value topsecretvalue"); got != "old value topsecretvalue" {
		t.Errorf("Redact() = %q, want removed value no longer tracked", got)
	}
}
