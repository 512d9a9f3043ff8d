package crontab

import (
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/flemzord/crondeck/internal/shellquote"
)

var (
	// envAssignment matches a leading NAME=value shell word.
	envAssignment = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*=`)

	// outputRedirect matches an output redirection operator such as
	// "> f", ">> f", "2>&1" or "&> f".
	outputRedirect = regexp.MustCompile(`(?:^|[\s;|])(?:\d+|&)?>`)
)

// HasOutputRedirect reports whether command already redirects its output.
func HasOutputRedirect(command string) bool {
	return outputRedirect.MatchString(command)
}

// BuildCommand renders the full shell command for j's schedule line:
//
//	[mkdir -p <logdirs> && ][cd <dir> && ][K=<v> ...]<command>[ >> <log> (2>> <err> | 2>&1)]
//
// Log redirection is only added when j.LogFile is set and the command has no
// output redirection of its own. Every % is escaped as \% so cron passes it
// to the shell instead of starting stdin there.
func BuildCommand(j Job) string {
	logged := logWrapped(j)

	var b strings.Builder
	if logged {
		b.WriteString(mkdirPrefix(j))
	}
	if j.WorkingDir != "" {
		b.WriteString(cdPrefix(j.WorkingDir))
	}
	if len(j.Env) > 0 {
		b.WriteString(envPrefix(j.Env))
	}
	b.WriteString(j.Command)
	if logged {
		b.WriteString(logSuffix(j))
	}
	return strings.ReplaceAll(b.String(), "%", `\%`)
}

// hasUnescapedPercent reports whether cron would treat a % in full as the
// start of stdin.
func hasUnescapedPercent(full string) bool {
	for i := range len(full) {
		if full[i] == '%' && (i == 0 || full[i-1] != '\\') {
			return true
		}
	}
	return false
}

// unwrapCommand strips the pieces BuildCommand adds for the attributes in
// meta, recovering the literal command. Pieces that are not present (for
// example after a hand edit) are left alone.
func unwrapCommand(full string, meta Job) string {
	full = strings.ReplaceAll(full, `\%`, "%")
	if meta.LogFile != "" {
		prefix, suffix := mkdirPrefix(meta), logSuffix(meta)
		if len(full) >= len(prefix)+len(suffix) &&
			strings.HasPrefix(full, prefix) && strings.HasSuffix(full, suffix) {
			inner := stripPrefixes(full[len(prefix):len(full)-len(suffix)], meta)
			// BuildCommand never wraps a command that redirects itself.
			if !HasOutputRedirect(inner) {
				return inner
			}
		}
	}
	return stripPrefixes(full, meta)
}

func stripPrefixes(cmd string, meta Job) string {
	if meta.WorkingDir != "" {
		cmd = strings.TrimPrefix(cmd, cdPrefix(meta.WorkingDir))
	}
	if len(meta.Env) > 0 {
		cmd = strings.TrimPrefix(cmd, envPrefix(meta.Env))
	}
	return cmd
}

func logWrapped(j Job) bool {
	return j.LogFile != "" && !HasOutputRedirect(j.Command)
}

func mkdirPrefix(j Job) string {
	dirs := []string{shellquote.EscapePath(filepath.Dir(j.LogFile))}
	if j.LogStderr != "" {
		if d := shellquote.EscapePath(filepath.Dir(j.LogStderr)); !slices.Contains(dirs, d) {
			dirs = append(dirs, d)
		}
	}
	return "mkdir -p " + strings.Join(dirs, " ") + " && "
}

func cdPrefix(dir string) string {
	return "cd " + shellquote.EscapePath(dir) + " && "
}

func envPrefix(env map[string]string) string {
	keys := GlobalEnv(env).Keys()
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(shellquote.Escape(env[k]))
		b.WriteByte(' ')
	}
	return b.String()
}

func logSuffix(j Job) string {
	s := " >> " + shellquote.EscapePath(j.LogFile)
	if j.LogStderr != "" {
		return s + " 2>> " + shellquote.EscapePath(j.LogStderr)
	}
	return s + " 2>&1"
}
