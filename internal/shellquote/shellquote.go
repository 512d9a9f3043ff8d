// Package shellquote escapes values for embedding in POSIX shell command
// lines using single-quote style, and reverses that escaping.
package shellquote

import "strings"

// Escape wraps value in single quotes. Every embedded single quote becomes
// '\'' (close, escaped literal quote, reopen), so a POSIX shell reads the
// result back as exactly value.
func Escape(value string) string {
	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}

// EscapePath escapes a filesystem path. A leading "~/" is left outside the
// quotes so the shell still performs tilde expansion.
func EscapePath(path string) string {
	if path == "~" {
		return path
	}
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		return "~/" + Escape(rest)
	}
	return Escape(path)
}

// Unescape reverses Escape. The input is read as a sequence of single-quoted
// segments interleaved with literal characters; a backslash outside quotes
// escapes the next character. An unterminated quote keeps the remainder as
// literal text. Unescape never fails.
func Unescape(value string) string {
	var b strings.Builder
	b.Grow(len(value))

	inQuote := false
	for i := 0; i < len(value); i++ {
		c := value[i]
		switch {
		case inQuote:
			if c == '\'' {
				inQuote = false
				continue
			}
			b.WriteByte(c)
		case c == '\'':
			// Unterminated quote: the rest is literal.
			if strings.IndexByte(value[i+1:], '\'') < 0 {
				b.WriteString(value[i+1:])
				return b.String()
			}
			inQuote = true
		case c == '\\' && i+1 < len(value):
			i++
			b.WriteByte(value[i])
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
