package crontab

import "strings"

// Serialize renders d as complete crontab text: the global environment
// block, a blank line, then each job as its metadata lines, its schedule line
// (commented out when disabled) and a blank separator. Lines Parse kept
// verbatim are written back in place. An empty document renders as the
// empty string.
func (d *Document) Serialize() string {
	var b strings.Builder

	if len(d.Env) > 0 {
		for _, k := range d.Env.Keys() {
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(quoteEnvValue(d.Env[k]))
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}

	verbatim := d.anchorVerbatim()
	for _, j := range d.Jobs {
		if lines := verbatim[j.ID]; len(lines) > 0 {
			for _, line := range lines {
				b.WriteString(line)
				b.WriteByte('\n')
			}
			b.WriteByte('\n')
		}
		for _, line := range EncodeMetadata(j) {
			b.WriteString(line)
			b.WriteByte('\n')
		}
		if !j.Enabled {
			b.WriteByte('#')
		}
		b.WriteString(strings.Join(strings.Fields(j.Schedule), " "))
		b.WriteByte(' ')
		b.WriteString(BuildCommand(j))
		b.WriteString("\n\n")
	}
	for _, line := range verbatim[""] {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// anchorVerbatim maps each job ID still in d to the verbatim lines to write
// before it. Lines whose job was removed move to the next surviving job
// from the original order, or to the end of the file.
func (d *Document) anchorVerbatim() map[string][]string {
	if len(d.verbatim) == 0 {
		return nil
	}
	present := make(map[string]bool, len(d.Jobs))
	for _, j := range d.Jobs {
		present[j.ID] = true
	}

	out := make(map[string][]string)
	for i, id := range d.order {
		lines := d.verbatim[id]
		if len(lines) == 0 {
			continue
		}
		target := ""
		if present[id] {
			target = id
		} else {
			for _, next := range d.order[i+1:] {
				if present[next] {
					target = next
					break
				}
			}
		}
		out[target] = append(out[target], lines...)
	}
	out[""] = append(out[""], d.verbatim[""]...)
	return out
}

// quoteEnvValue double-quotes values that cron would otherwise trim or
// misread.
func quoteEnvValue(v string) string {
	if v == "" {
		return v
	}
	if strings.ContainsAny(v, " \t") || v[0] == '"' || v[0] == '\'' ||
		v[len(v)-1] == '"' || v[len(v)-1] == '\'' {
		return `"` + v + `"`
	}
	return v
}
