package schedule

import (
	"fmt"
	"strings"
)

// InvalidDescription is what Describe returns for expressions it cannot read.
const InvalidDescription = "Invalid schedule"

var canonical = map[string]string{
	"* * * * *": "Every minute",
	"0 * * * *": "Every hour",
	"0 0 * * *": "Every day at midnight",
	"0 0 * * 0": "Every Sunday at midnight",
	"0 0 1 * *": "On the 1st of every month at midnight",
}

var (
	monthLabels = []string{"January", "February", "March", "April", "May", "June", "July",
		"August", "September", "October", "November", "December"}
	dayLabels = []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}
)

// Describe renders expr as a short English phrase, for example
// "At 09:00, on Monday through Friday". Invalid expressions yield
// InvalidDescription.
func Describe(expr string) string {
	if !IsValid(expr) {
		return InvalidDescription
	}
	norm := Normalize(expr)
	if s, ok := canonical[norm]; ok {
		return s
	}

	p := strings.Fields(norm)
	minute, hour, dom, month, dow := p[0], p[1], p[2], p[3], p[4]

	parts := []string{describeTime(minute, hour)}
	if dom != "*" {
		parts = append(parts, describeDays(dom, fields[2], nil, "on day %s of the month"))
	}
	if month != "*" {
		parts = append(parts, describeDays(month, fields[3], monthLabels, "in %s"))
	}
	if dow != "*" {
		parts = append(parts, describeDays(dow, fields[4], dayLabels, "on %s"))
	}
	return strings.Join(parts, ", ")
}

func describeTime(minute, hour string) string {
	m, mOK := atoi(minute)
	h, hOK := atoi(hour)
	if mOK && hOK {
		return fmt.Sprintf("At %02d:%02d", h, m)
	}

	var s string
	switch n, step := everyStep(minute); {
	case minute == "*":
		s = "Every minute"
	case step:
		s = "Every " + units(n, "minute")
	default:
		s = "At minute " + describeList(minute, fields[0], nil)
	}

	switch n, step := everyStep(hour); {
	case hour == "*":
		if minute != "*" && !isEveryStep(minute) {
			s += " of every hour"
		}
	case step:
		s += ", every " + units(n, "hour")
	default:
		s += " past hour " + describeList(hour, fields[1], nil)
	}
	return s
}

func describeDays(spec string, f field, labels []string, format string) string {
	if n, ok := everyStep(spec); ok {
		s := "every " + units(n, f.unit)
		if f.name == "day of week" {
			s += " of the week"
		}
		return s
	}
	return fmt.Sprintf(format, describeList(spec, f, labels))
}

// everyStep recognises "*/n".
func everyStep(spec string) (int, bool) {
	rest, ok := strings.CutPrefix(spec, "*/")
	if !ok {
		return 0, false
	}
	return atoi(rest)
}

func isEveryStep(spec string) bool {
	_, ok := everyStep(spec)
	return ok
}

// units renders "minute" for 1 and "5 minutes" otherwise.
func units(n int, unit string) string {
	if n == 1 {
		return unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// describeList renders a comma separated field, using labels for month and
// weekday values.
func describeList(spec string, f field, labels []string) string {
	items := strings.Split(spec, ",")
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, describeItem(item, f, labels))
	}
	return strings.Join(out, ", ")
}

func describeItem(item string, f field, labels []string) string {
	base, step, hasStep := strings.Cut(item, "/")
	n, _ := atoi(step)
	if base == "*" {
		if hasStep {
			return "every " + units(n, f.unit)
		}
		return "every " + f.unit
	}

	lo, hi, isRange := strings.Cut(base, "-")
	s := label(lo, f, labels)
	if isRange {
		s += " through " + label(hi, f, labels)
	}
	switch {
	case !hasStep:
		return s
	case isRange:
		return fmt.Sprintf("every %s from %s", units(n, f.unit), s)
	default:
		return fmt.Sprintf("every %s starting at %s", units(n, f.unit), s)
	}
}

func label(v string, f field, labels []string) string {
	n, err := f.value(v)
	if err != nil {
		return v
	}
	if labels != nil {
		return labels[n-f.min]
	}
	return fmt.Sprint(n)
}
