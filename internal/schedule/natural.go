package schedule

import (
	"fmt"
	"regexp"
	"strings"
)

// NaturalResult is the outcome of FromNaturalLanguage. A zero Confidence
// means the phrase was not recognised and Schedule is empty.
type NaturalResult struct {
	Schedule   string  `json:"schedule,omitempty"`
	Confidence float64 `json:"confidence"`
}

// Confidence levels for recognised phrases.
const (
	confidenceExact   = 1.0 // the phrase names the unit exactly
	confidenceTime    = 0.9 // a time of day that may be read differently
	confidenceAssumed = 0.8 // a day or date had to be assumed
)

type phrase struct {
	re         *regexp.Regexp
	confidence float64
	build      func(m []string) (string, bool)
}

func fixed(expr string) func([]string) (string, bool) {
	return func([]string) (string, bool) { return expr, true }
}

// phrases are tried in order; the first match wins.
var phrases = []phrase{
	{
		re:         regexp.MustCompile(`^every minute$`),
		confidence: confidenceExact,
		build:      fixed("* * * * *"),
	},
	{
		re:         regexp.MustCompile(`^(?:every hour|hourly)$`),
		confidence: confidenceExact,
		build:      fixed("0 * * * *"),
	},
	{
		re:         regexp.MustCompile(`^(?:daily|every day)$`),
		confidence: confidenceExact,
		build:      fixed("0 0 * * *"),
	},
	{
		re:         regexp.MustCompile(`^(?:weekly|every week)$`),
		confidence: confidenceAssumed,
		build:      fixed("0 0 * * 0"),
	},
	{
		re:         regexp.MustCompile(`^(?:monthly|every month)$`),
		confidence: confidenceAssumed,
		build:      fixed("0 0 1 * *"),
	},
	{
		re:         regexp.MustCompile(`^every (\d+) ?(?:minutes?|mins?)$`),
		confidence: confidenceExact,
		build: func(m []string) (string, bool) {
			n, ok := atoi(m[1])
			if !ok || n < 1 || n > 59 {
				return "", false
			}
			return fmt.Sprintf("*/%d * * * *", n), true
		},
	},
	{
		re:         regexp.MustCompile(`^every (\d+) ?(?:hours?|hrs?)$`),
		confidence: confidenceExact,
		build: func(m []string) (string, bool) {
			n, ok := atoi(m[1])
			if !ok || n < 1 || n > 23 {
				return "", false
			}
			return fmt.Sprintf("0 */%d * * *", n), true
		},
	},
	{
		re:         regexp.MustCompile(`^(?:at )?(?:am (\d{1,2})(?: o'?clock)?|(\d{1,2})(?::(\d{2}))?(?: o'?clock)? ?(?:am|a\.m\.))$`),
		confidence: confidenceTime,
		build:      clock(false),
	},
	{
		re:         regexp.MustCompile(`^(?:at )?(?:pm (\d{1,2})(?: o'?clock)?|(\d{1,2})(?::(\d{2}))?(?: o'?clock)? ?(?:pm|p\.m\.))$`),
		confidence: confidenceTime,
		build:      clock(true),
	},
	{
		re:         regexp.MustCompile(`^(?:at )?(\d{1,2}) o'?clock(?: and)? (\d{1,2}) ?(?:minutes?|mins?)$`),
		confidence: confidenceTime,
		build: func(m []string) (string, bool) {
			h, _ := atoi(m[1])
			mins, _ := atoi(m[2])
			if h > 23 || mins > 59 {
				return "", false
			}
			return fmt.Sprintf("%d %d * * *", mins, h), true
		},
	},
}

// clock converts a 12-hour time of day to a daily schedule. 12 AM is
// midnight and 12 PM is noon.
func clock(pm bool) func([]string) (string, bool) {
	return func(m []string) (string, bool) {
		hs := m[1]
		if hs == "" {
			hs = m[2]
		}
		h, _ := atoi(hs)
		mins := 0
		if m[3] != "" {
			mins, _ = atoi(m[3])
		}
		if h < 1 || h > 12 || mins > 59 {
			return "", false
		}
		switch {
		case pm && h != 12:
			h += 12
		case !pm && h == 12:
			h = 0
		}
		return fmt.Sprintf("%d %d * * *", mins, h), true
	}
}

// FromNaturalLanguage turns one of a fixed set of English phrases ("every
// hour", "every 15 minutes", "7 pm", "9 o'clock 30 minutes", ...) into a
// cron expression. Matching ignores case and extra whitespace.
func FromNaturalLanguage(text string) NaturalResult {
	norm := strings.ToLower(Normalize(text))
	for _, p := range phrases {
		m := p.re.FindStringSubmatch(norm)
		if m == nil {
			continue
		}
		expr, ok := p.build(m)
		if !ok {
			continue
		}
		return NaturalResult{Schedule: expr, Confidence: p.confidence}
	}
	return NaturalResult{}
}
