package backup

import "strings"

// LineType classifies one line of a Diff.
type LineType string

// Diff line types.
const (
	LineSame   LineType = "same"
	LineRemove LineType = "remove"
	LineAdd    LineType = "add"
)

// DiffLine is one entry of a Diff. LineNumber is the 1-based position the
// line was compared at.
type DiffLine struct {
	Type       LineType `json:"type"`
	Line       string   `json:"line"`
	LineNumber int      `json:"line_number"`
}

// Diff compares oldText and newText line by line, by position. Equal lines yield
// LineSame; otherwise the old line (if any) is reported as removed followed
// by the new line (if any) as added. It does not search for a minimal edit
// script: an inserted line shows every following line as changed.
func Diff(oldText, newText string) []DiffLine {
	a, b := splitLines(oldText), splitLines(newText)
	n := max(len(a), len(b))

	out := make([]DiffLine, 0, n)
	for i := range n {
		num := i + 1
		switch {
		case i < len(a) && i < len(b) && a[i] == b[i]:
			out = append(out, DiffLine{Type: LineSame, Line: a[i], LineNumber: num})
		default:
			if i < len(a) {
				out = append(out, DiffLine{Type: LineRemove, Line: a[i], LineNumber: num})
			}
			if i < len(b) {
				out = append(out, DiffLine{Type: LineAdd, Line: b[i], LineNumber: num})
			}
		}
	}
	return out
}

// Stats counts added and removed lines.
func Stats(lines []DiffLine) (added, removed int) {
	for _, l := range lines {
		switch l.Type {
		case LineAdd:
			added++
		case LineRemove:
			removed++
		}
	}
	return added, removed
}

// Format renders lines in unified style: "+" for added, "-" for removed and
// a space for unchanged lines.
func Format(lines []DiffLine) string {
	var b strings.Builder
	for _, l := range lines {
		switch l.Type {
		case LineAdd:
			b.WriteByte('+')
		case LineRemove:
			b.WriteByte('-')
		default:
			b.WriteByte(' ')
		}
		b.WriteString(l.Line)
		b.WriteByte('\n')
	}
	return b.String()
}

// splitLines splits text into lines. A single trailing newline does not
// start an extra empty line.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}
