// Package schedule validates five-field cron expressions, computes their
// upcoming occurrences and translates them to and from short English
// phrases.
//
// Every function in this package is pure and safe for concurrent use.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
)

// Result is the outcome of Validate. Error is empty when Valid is true.
type Result struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// field describes the accepted values of one cron field.
type field struct {
	name  string
	unit  string
	min   int
	max   int
	names []string // names[i] is the alias of min+i
}

var (
	monthNames = []string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"}
	dayNames   = []string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

	fields = [5]field{
		{name: "minute", unit: "minute", min: 0, max: 59},
		{name: "hour", unit: "hour", min: 0, max: 23},
		{name: "day of month", unit: "day", min: 1, max: 31},
		{name: "month", unit: "month", min: 1, max: 12, names: monthNames},
		{name: "day of week", unit: "day", min: 0, max: 6, names: dayNames},
	}
)

// Normalize collapses the whitespace of expr to single spaces.
func Normalize(expr string) string {
	return strings.Join(strings.Fields(expr), " ")
}

// Validate checks that expr is a five-field cron expression whose fields are
// each "*", a value, a range "a-b", a step "*/n", "a/n" or "a-b/n", or a
// comma separated list of those. Months and weekdays also accept their
// three-letter English names.
func Validate(expr string) Result {
	if err := check(expr); err != nil {
		return Result{Error: err.Error()}
	}
	return Result{Valid: true}
}

// IsValid reports whether Validate accepts expr.
func IsValid(expr string) bool {
	return check(expr) == nil
}

func check(expr string) error {
	parts := strings.Fields(expr)
	switch {
	case len(parts) == 0:
		return fmt.Errorf("schedule is empty")
	case len(parts) != len(fields):
		return fmt.Errorf("expected 5 fields, got %d", len(parts))
	}
	for i, p := range parts {
		if err := fields[i].check(p); err != nil {
			return fmt.Errorf("%s: %w", fields[i].name, err)
		}
	}
	return nil
}

func (f field) check(spec string) error {
	for _, item := range strings.Split(spec, ",") {
		if item == "" {
			return fmt.Errorf("empty list item in %q", spec)
		}

		base, step, hasStep := strings.Cut(item, "/")
		if hasStep {
			n, ok := atoi(step)
			if !ok || n == 0 {
				return fmt.Errorf("invalid step %q", step)
			}
		}

		if base == "*" {
			continue
		}
		lo, hi, isRange := strings.Cut(base, "-")
		from, err := f.value(lo)
		if err != nil {
			return err
		}
		if !isRange {
			continue
		}
		to, err := f.value(hi)
		if err != nil {
			return err
		}
		if from > to {
			return fmt.Errorf("range %q is inverted", base)
		}
	}
	return nil
}

// value parses a single number or name and checks its bounds.
func (f field) value(s string) (int, error) {
	if n, ok := atoi(s); ok {
		if n < f.min || n > f.max {
			return 0, fmt.Errorf("value %d out of range %d-%d", n, f.min, f.max)
		}
		return n, nil
	}
	if i := f.nameIndex(s); i >= 0 {
		return f.min + i, nil
	}
	return 0, fmt.Errorf("invalid value %q", s)
}

func (f field) nameIndex(s string) int {
	s = strings.ToLower(s)
	for i, n := range f.names {
		if n == s {
			return i
		}
	}
	return -1
}

// atoi accepts plain decimal digits only (no sign).
func atoi(s string) (int, bool) {
	if s == "" || len(s) > 4 {
		return 0, false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}
