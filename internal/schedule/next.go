package schedule

import (
	"time"

	"github.com/robfig/cron/v3"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// NextRuns returns up to count occurrences of expr strictly after from, in
// increasing order. It returns an empty slice for an invalid expression or a
// non-positive count.
func NextRuns(expr string, count int, from time.Time) []time.Time {
	runs := []time.Time{}
	if count <= 0 {
		return runs
	}
	sched, ok := parse(expr)
	if !ok {
		return runs
	}

	t := from
	for len(runs) < count {
		// Next truncates to the minute and always moves forward, so each
		// occurrence can be used directly as the following reference.
		t = sched.Next(t)
		if t.IsZero() {
			break
		}
		runs = append(runs, t)
	}
	return runs
}

// Next returns the first occurrence of expr strictly after from.
func Next(expr string, from time.Time) (time.Time, bool) {
	runs := NextRuns(expr, 1, from)
	if len(runs) == 0 {
		return time.Time{}, false
	}
	return runs[0], true
}

func parse(expr string) (cron.Schedule, bool) {
	if !IsValid(expr) {
		return nil, false
	}
	sched, err := parser.Parse(Normalize(expr))
	if err != nil {
		return nil, false
	}
	return sched, true
}
