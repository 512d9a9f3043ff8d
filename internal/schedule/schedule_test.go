package schedule

import (
	"testing"
	"time"

	"github.com/robfig/cron/v3"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		expr  string
		valid bool
	}{
		{"* * * * *", true},
		{"  0   9 * *  1-5 ", true},
		{"*/15 0-23/2 1,15 jan-mar MON-fri", true},
		{"5/10 * * * *", true},
		{"59 23 31 12 6", true},
		{"0 0 1 DEC sun", true},
		{"", false},
		{"   ", false},
		{"* * * *", false},
		{"* * * * * *", false},
		{"60 * * * *", false},
		{"* 24 * * *", false},
		{"* * 0 * *", false},
		{"* * 32 * *", false},
		{"* * * 13 *", false},
		{"* * * * 7", false},
		{"*/0 * * * *", false},
		{"10-5 * * * *", false},
		{"1,,2 * * * *", false},
		{"-1 * * * *", false},
		{"+5 * * * *", false},
		{"? * * * *", false},
		{"* * * foo *", false},
		{"@daily", false},
		{"* * * * mon-", false},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			t.Parallel()
			got := Validate(tt.expr)
			if got.Valid != tt.valid {
				t.Fatalf("Validate(%q) = %+v, want valid=%v", tt.expr, got, tt.valid)
			}
			if !got.Valid && got.Error == "" {
				t.Errorf("Validate(%q) has no error message", tt.expr)
			}
			if got.Valid && got.Error != "" {
				t.Errorf("Validate(%q) valid but Error = %q", tt.expr, got.Error)
			}
		})
	}
}

func TestValidateErrorMessage(t *testing.T) {
	t.Parallel()

	got := Validate("60 * * * *")
	if got.Error != "minute: value 60 out of range 0-59" {
		t.Errorf("Error = %q", got.Error)
	}
	if got := Validate("* * * *"); got.Error != "expected 5 fields, got 4" {
		t.Errorf("Error = %q", got.Error)
	}
}

func TestNextRunsHourly(t *testing.T) {
	t.Parallel()

	from := time.Date(2026, 5, 1, 10, 17, 42, 0, time.Local)
	runs := NextRuns("0 * * * *", 3, from)
	if len(runs) != 3 {
		t.Fatalf("len(runs) = %d, want 3", len(runs))
	}
	prev := from
	for i, r := range runs {
		if !r.After(prev) {
			t.Errorf("runs[%d] = %v, not after %v", i, r, prev)
		}
		if r.Minute() != 0 || r.Second() != 0 || r.Nanosecond() != 0 {
			t.Errorf("runs[%d] = %v, not on the hour", i, r)
		}
		prev = r
	}
	if want := time.Date(2026, 5, 1, 11, 0, 0, 0, time.Local); !runs[0].Equal(want) {
		t.Errorf("runs[0] = %v, want %v", runs[0], want)
	}
}

func TestNextRunsFromExactOccurrence(t *testing.T) {
	t.Parallel()

	from := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	runs := NextRuns("0 12 * * *", 2, from)
	if len(runs) != 2 {
		t.Fatalf("len(runs) = %d, want 2", len(runs))
	}
	if want := from.AddDate(0, 0, 1); !runs[0].Equal(want) {
		t.Errorf("runs[0] = %v, want %v", runs[0], want)
	}
	if want := from.AddDate(0, 0, 2); !runs[1].Equal(want) {
		t.Errorf("runs[1] = %v, want %v", runs[1], want)
	}
}

func TestNextRunsEmpty(t *testing.T) {
	t.Parallel()

	now := time.Now()
	cases := []struct {
		expr  string
		count int
	}{
		{"* * * * *", 0},
		{"* * * * *", -1},
		{"invalid", 5},
		{"60 * * * *", 5},
		{"", 1},
	}
	for _, c := range cases {
		runs := NextRuns(c.expr, c.count, now)
		if runs == nil || len(runs) != 0 {
			t.Errorf("NextRuns(%q, %d) = %v, want empty slice", c.expr, c.count, runs)
		}
	}
}

func TestNextRunsImpossibleDate(t *testing.T) {
	t.Parallel()

	// February 30th never happens.
	if runs := NextRuns("0 0 30 2 *", 3, time.Now()); len(runs) != 0 {
		t.Errorf("NextRuns = %v, want none", runs)
	}
}

func TestNext(t *testing.T) {
	t.Parallel()

	from := time.Date(2026, 1, 1, 0, 0, 30, 0, time.UTC)
	got, ok := Next("*/5 * * * *", from)
	if !ok || !got.Equal(time.Date(2026, 1, 1, 0, 5, 0, 0, time.UTC)) {
		t.Errorf("Next() = %v, %v", got, ok)
	}
	if _, ok := Next("nope", from); ok {
		t.Error("Next(invalid) ok = true")
	}
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		expr string
		want string
	}{
		{"* * * * *", "Every minute"},
		{"0 * * * *", "Every hour"},
		{"0  0 * * *", "Every day at midnight"},
		{"0 0 * * 0", "Every Sunday at midnight"},
		{"0 0 1 * *", "On the 1st of every month at midnight"},
		{"*/5 * * * *", "Every 5 minutes"},
		{"30 * * * *", "At minute 30 of every hour"},
		{"0 */2 * * *", "At minute 0, every 2 hours"},
		{"*/10 9-17 * * *", "Every 10 minutes past hour 9 through 17"},
		{"0 9 * * 1-5", "At 09:00, on Monday through Friday"},
		{"15 14 1,15 * *", "At 14:15, on day 1, 15 of the month"},
		{"0 12 * jan,JUL *", "At 12:00, in January, July"},
		{"0 0 */2 * *", "At 00:00, every 2 days"},
		{"0 6 * * */2", "At 06:00, every 2 days of the week"},
		{"0 8 * 1-6/2 *", "At 08:00, in every 2 months from January through June"},
		{"* * *", InvalidDescription},
		{"", InvalidDescription},
		{"61 * * * *", InvalidDescription},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			t.Parallel()
			if got := Describe(tt.expr); got != tt.want {
				t.Errorf("Describe(%q) = %q, want %q", tt.expr, got, tt.want)
			}
		})
	}
}

func TestFromNaturalLanguage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text       string
		schedule   string
		confidence float64
	}{
		{"every minute", "* * * * *", 1.0},
		{"Every   HOUR", "0 * * * *", 1.0},
		{"hourly", "0 * * * *", 1.0},
		{"daily", "0 0 * * *", 1.0},
		{"weekly", "0 0 * * 0", 0.8},
		{"monthly", "0 0 1 * *", 0.8},
		{"every 15 minutes", "*/15 * * * *", 1.0},
		{"every 1 minute", "*/1 * * * *", 1.0},
		{"every 6 hours", "0 */6 * * *", 1.0},
		{"9 am", "0 9 * * *", 0.9},
		{"at 7:30am", "30 7 * * *", 0.9},
		{"12 am", "0 0 * * *", 0.9},
		{"AM 8 o'clock", "0 8 * * *", 0.9},
		{"7 pm", "0 19 * * *", 0.9},
		{"12 PM", "0 12 * * *", 0.9},
		{"pm 3 o'clock", "0 15 * * *", 0.9},
		{"9 o'clock 30 minutes", "30 9 * * *", 0.9},
		{"18 o'clock and 5 minutes", "5 18 * * *", 0.9},
		{"every 0 minutes", "", 0},
		{"every 60 minutes", "", 0},
		{"13 pm", "", 0},
		{"25 o'clock 0 minutes", "", 0},
		{"whenever you feel like it", "", 0},
		{"", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()
			got := FromNaturalLanguage(tt.text)
			if got.Schedule != tt.schedule || got.Confidence != tt.confidence {
				t.Errorf("FromNaturalLanguage(%q) = %+v, want {%q %v}", tt.text, got, tt.schedule, tt.confidence)
			}
			if got.Schedule != "" && !IsValid(got.Schedule) {
				t.Errorf("FromNaturalLanguage(%q) produced invalid schedule %q", tt.text, got.Schedule)
			}
		})
	}
}

func TestPresets(t *testing.T) {
	t.Parallel()

	list := Presets()
	if len(list) < 15 {
		t.Fatalf("len(Presets()) = %d, want at least 15", len(list))
	}
	ids := make(map[string]bool)
	for _, p := range list {
		if ids[p.ID] {
			t.Errorf("duplicate preset id %q", p.ID)
		}
		ids[p.ID] = true
		if r := Validate(p.Schedule); !r.Valid {
			t.Errorf("preset %q has invalid schedule %q: %s", p.ID, p.Schedule, r.Error)
		}
		if p.Name == "" || p.Description == "" {
			t.Errorf("preset %q is missing a name or description", p.ID)
		}
	}

	list[0].Schedule = "mutated"
	if Presets()[0].Schedule == "mutated" {
		t.Error("Presets() exposes the internal catalog")
	}

	if p, ok := PresetByID("weekdays-morning"); !ok || p.Schedule != "0 9 * * 1-5" {
		t.Errorf("PresetByID(weekdays-morning) = %+v, %v", p, ok)
	}
	if _, ok := PresetByID("nope"); ok {
		t.Error("PresetByID(nope) ok = true")
	}
}

// FuzzValidate checks that whatever Validate accepts, the cron library can
// schedule, and that the other entry points never panic.
func FuzzValidate(f *testing.F) {
	f.Add("*/5 * * * *")
	f.Add("0 0 * * *")
	f.Add("0 0 1 1 *")
	f.Add("1-5/2 * * jan-dec sun-sat")
	f.Add("invalid")
	f.Add("")
	f.Add("60 * * * *")

	p := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	f.Fuzz(func(t *testing.T, expr string) {
		_ = Describe(expr)
		_ = FromNaturalLanguage(expr)
		if !Validate(expr).Valid {
			return
		}
		if _, err := p.Parse(Normalize(expr)); err != nil {
			t.Fatalf("Validate accepted %q but cron rejects it: %v", expr, err)
		}
		_ = NextRuns(expr, 2, from)
	})
}
