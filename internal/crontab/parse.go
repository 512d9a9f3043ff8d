package crontab

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	numField   = `[0-9*/,\-]+`
	namedField = `(?:[0-9*/,\-]|(?i:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec|sun|mon|tue|wed|thu|fri|sat))+`
)

var (
	// envLine matches a NAME=VALUE environment line.
	envLine = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\s*=\s*(.*)$`)

	// jobLine matches five schedule fields followed by a command.
	jobLine = regexp.MustCompile(`^(` + numField + `)\s+(` + numField + `)\s+(` + numField + `)\s+(` +
		namedField + `)\s+(` + namedField + `)\s+(\S.*)$`)
)

// Parse reads crontab text into a Document. It never fails: lines it cannot
// interpret (plain comments, malformed entries, @reboot style shortcuts,
// environment lines after the first job) are kept verbatim and Serialize
// writes them back before the job that followed them.
//
// Jobs without an ID get one derived from their schedule line, so the same
// unmanaged line keeps its ID across reads until the document is written
// back. Missing names are derived from the command and both timestamps are
// set to the time of the call.
func Parse(text string) *Document {
	return parse(text, time.Now(), lineID)
}

// lineID derives a stable ID from a schedule line and the number of earlier
// attempts for it.
func lineID(line string, n int) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, fmt.Appendf(nil, "crondeck:%d:%s", n, line)).String()
}

func parse(text string, now time.Time, newID func(line string, n int) string) *Document {
	doc := &Document{Env: GlobalEnv{}}
	seen := make(map[string]bool)

	var (
		meta     metadataBlock
		pending  []string
		order    []string
		verbatim = make(map[string][]string)
	)
	inHeader := true

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimLeft(strings.TrimRight(raw, "\r"), " \t")
		blank := strings.TrimSpace(line) == ""

		if inHeader {
			if blank {
				continue
			}
			if m := envLine.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
				doc.Env[m[1]] = unquote(m[2])
				continue
			}
			inHeader = false
		}

		switch {
		case blank:
			meta.reset()
		case isMetadataLine(line):
			meta.add(line)
		default:
			trimmed := strings.TrimSpace(line)
			job, ok := parseJobLine(trimmed, meta.job)
			if !ok {
				// Plain comments do not break a metadata block.
				pending = append(pending, strings.TrimRight(raw, "\r"))
				continue
			}
			for n := 0; job.ID == "" || seen[job.ID]; n++ {
				job.ID = newID(trimmed, n)
			}
			seen[job.ID] = true
			if job.Name == "" {
				job.Name = DeriveName(job.Command)
			}
			job.CreatedAt, job.UpdatedAt = now, now
			doc.Jobs = append(doc.Jobs, job)
			order = append(order, job.ID)
			if len(pending) > 0 {
				verbatim[job.ID] = pending
				pending = nil
			}
			meta.reset()
		}
	}
	if len(pending) > 0 {
		verbatim[""] = pending
	}
	if len(verbatim) > 0 {
		doc.verbatim, doc.order = verbatim, order
	}
	return doc
}

// parseJobLine matches an enabled or commented-out schedule line and
// combines it with the accumulated metadata.
func parseJobLine(line string, meta Job) (Job, bool) {
	enabled := true
	if rest, ok := strings.CutPrefix(line, "#"); ok {
		enabled = false
		line = strings.TrimLeft(rest, " \t")
	}

	m := jobLine.FindStringSubmatch(line)
	// cron turns an unescaped % into a newline and feeds the rest to stdin,
	// which a Job cannot express.
	if m == nil || hasUnescapedPercent(m[6]) {
		return Job{}, false
	}

	job := meta.Clone()
	job.Schedule = strings.Join(m[1:6], " ")
	job.Enabled = enabled
	job.Command = unwrapCommand(m[6], meta)
	return job, true
}

// unquote strips one layer of matching single or double quotes.
func unquote(v string) string {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		return v[1 : len(v)-1]
	}
	return v
}
