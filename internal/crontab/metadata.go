package crontab

import (
	"encoding/json"
	"strings"
)

// MetadataPrefix starts every metadata comment line. It is a compatibility
// contract with every crontab written so far: changing it orphans existing
// metadata.
const MetadataPrefix = "# crondeck:"

// Metadata keys, in the order they are written.
const (
	keyID      = "ID"
	keyName    = "NAME"
	keyDesc    = "DESC"
	keyEnv     = "ENV"
	keyTags    = "TAGS"
	keyLog     = "LOG"
	keyLogErr  = "LOGERR"
	keyWorkDir = "WORKDIR"
)

// EncodeMetadata renders the metadata lines for j. Only attributes that are
// set produce a line.
func EncodeMetadata(j Job) []string {
	var lines []string
	add := func(key, value string) {
		if value == "" {
			return
		}
		lines = append(lines, MetadataPrefix+key+":"+encodeValue(value))
	}

	add(keyID, j.ID)
	add(keyName, j.Name)
	add(keyDesc, j.Description)
	if len(j.Env) > 0 {
		// encoding/json sorts map keys, so the payload is deterministic.
		if raw, err := json.Marshal(j.Env); err == nil {
			add(keyEnv, string(raw))
		}
	}
	if len(j.Tags) > 0 {
		add(keyTags, strings.Join(j.Tags, ","))
	}
	add(keyLog, j.LogFile)
	add(keyLogErr, j.LogStderr)
	add(keyWorkDir, j.WorkingDir)
	return lines
}

// isMetadataLine reports whether line is a metadata comment.
func isMetadataLine(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), MetadataPrefix)
}

// metadataBlock accumulates the metadata lines seen above a job line.
type metadataBlock struct {
	job Job
}

// add consumes one metadata line. Unknown keys and malformed lines are
// ignored.
func (b *metadataBlock) add(line string) {
	// Trailing whitespace belongs to the value.
	rest, ok := strings.CutPrefix(strings.TrimLeft(line, " \t"), MetadataPrefix)
	if !ok {
		return
	}
	key, raw, ok := strings.Cut(rest, ":")
	if !ok {
		return
	}
	value := decodeValue(raw)

	switch key {
	case keyID:
		b.job.ID = value
	case keyName:
		b.job.Name = value
	case keyDesc:
		b.job.Description = value
	case keyEnv:
		var env map[string]string
		if err := json.Unmarshal([]byte(value), &env); err != nil || len(env) == 0 {
			// Invalid payloads are dropped; the job keeps no env.
			b.job.Env = nil
			break
		}
		b.job.Env = env
	case keyTags:
		b.job.Tags = splitTags(value)
	case keyLog:
		b.job.LogFile = value
	case keyLogErr:
		b.job.LogStderr = value
	case keyWorkDir:
		b.job.WorkingDir = value
	}
}

// reset discards everything accumulated so far.
func (b *metadataBlock) reset() {
	*b = metadataBlock{}
}

func splitTags(value string) []string {
	var tags []string
	for _, t := range strings.Split(value, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// encodeValue keeps a metadata value on a single line.
func encodeValue(v string) string {
	if !strings.ContainsAny(v, "\\\n\r") {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, "\n", `\n`, "\r", `\r`)
	return r.Replace(v)
}

// decodeValue reverses encodeValue. Unknown escapes are kept verbatim.
func decodeValue(v string) string {
	if !strings.Contains(v, `\`) {
		return v
	}
	var b strings.Builder
	b.Grow(len(v))
	for i := 0; i < len(v); i++ {
		if v[i] != '\\' || i+1 == len(v) {
			b.WriteByte(v[i])
			continue
		}
		switch v[i+1] {
		case '\\':
			b.WriteByte('\\')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		default:
			b.WriteByte(v[i])
			b.WriteByte(v[i+1])
		}
		i++
	}
	return b.String()
}
