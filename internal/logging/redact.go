package logging

import (
	"maps"
	"regexp"
	"slices"
	"strings"
	"sync"
)

// Placeholder replaces redacted values.
const Placeholder = "[redacted]"

// secretName matches environment variable names that usually hold secrets.
var secretName = regexp.MustCompile(`(?i)(secret|token|passw(or)?d|pwd|api_?key|private_?key|credential|auth)`)

// IsSecretName reports whether an environment variable name looks like it
// holds a secret.
func IsSecretName(name string) bool {
	return secretName.MatchString(name)
}

// Redactor scrubs secrets from log output. It knows a few token formats and
// literal values registered with Track or Replace. Safe for concurrent use.
type Redactor struct {
	patterns []*regexp.Regexp

	mu     sync.RWMutex
	groups map[string]map[string]struct{}
	// literals is the union of all groups, longest first so a secret
	// containing another is replaced whole.
	literals []string
}

// NewRedactor returns a Redactor with the default patterns.
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: []*regexp.Regexp{
			// user:password@ in URLs (database DSNs, webhook URLs).
			regexp.MustCompile(`://[^/\s:@]+:[^/\s@]+@`),
			regexp.MustCompile(`(?i)bearer\s+[a-z0-9._~+/=-]{16,}`),
			regexp.MustCompile(`(ghp_|gho_|ghs_|github_pat_)[A-Za-z0-9_]{20,}`),
			regexp.MustCompile(`AKIA[A-Z0-9]{16}`),
			regexp.MustCompile(`xox[bp]-[0-9]+-[A-Za-z0-9-]+`),
			regexp.MustCompile(`sk-[A-Za-z0-9-]{20,}`),
		},
		groups: make(map[string]map[string]struct{}),
	}
}

// minLiteral is the shortest value worth redacting; shorter ones would
// mangle ordinary text.
const minLiteral = 4

// Track registers literal secret values that stay redacted for the life of
// the Redactor.
func (r *Redactor) Track(values ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.groups[""]
	if set == nil {
		set = make(map[string]struct{})
		r.groups[""] = set
	}
	for _, v := range values {
		if len(v) >= minLiteral {
			set[v] = struct{}{}
		}
	}
	r.rebuild()
}

// Replace sets the literal values of a named group, dropping whatever the
// group held before. Callers that re-read their secrets (such as the crontab
// environment) use it so removed values stop being tracked.
func (r *Redactor) Replace(group string, values ...string) {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if len(v) >= minLiteral {
			set[v] = struct{}{}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(set) == 0 {
		delete(r.groups, group)
	} else {
		r.groups[group] = set
	}
	r.rebuild()
}

// TrackEnv registers the values of env whose names look secret.
func (r *Redactor) TrackEnv(env map[string]string) {
	r.Track(secretValues(env)...)
}

// ReplaceEnv sets group to the secret-looking values of envs.
func (r *Redactor) ReplaceEnv(group string, envs ...map[string]string) {
	r.Replace(group, secretValues(envs...)...)
}

func secretValues(envs ...map[string]string) []string {
	var values []string
	for _, env := range envs {
		for k, v := range env {
			if IsSecretName(k) {
				values = append(values, v)
			}
		}
	}
	return values
}

// rebuild recomputes the sorted literal list. r.mu must be held.
func (r *Redactor) rebuild() {
	union := make(map[string]struct{})
	for _, set := range r.groups {
		maps.Copy(union, set)
	}
	r.literals = slices.SortedFunc(maps.Keys(union), func(a, b string) int { return len(b) - len(a) })
}

// Redact returns s with every known secret replaced by Placeholder.
func (r *Redactor) Redact(s string) string {
	if s == "" {
		return s
	}
	for _, p := range r.patterns {
		if p.MatchString(s) {
			s = p.ReplaceAllStringFunc(s, func(m string) string {
				if strings.HasPrefix(m, "://") {
					return "://" + Placeholder + "@"
				}
				return Placeholder
			})
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, lit := range r.literals {
		s = strings.ReplaceAll(s, lit, Placeholder)
	}
	return s
}

// RedactEnv returns a copy of env with secret-looking values replaced, for
// display.
func (r *Redactor) RedactEnv(env map[string]string) map[string]string {
	if env == nil {
		return nil
	}
	out := make(map[string]string, len(env))
	for k, v := range env {
		if IsSecretName(k) && v != "" {
			out[k] = Placeholder
			continue
		}
		out[k] = r.Redact(v)
	}
	return out
}
