package formatter

import (
	"strings"
)

// Multiline de-indents free text supplied by the provider. Line endings become "\n", blank lines
// at the start and end are removed, and the smallest leading indent is stripped from every line.
// A positive indent is preferred over zero so that a flush first line does not stop the rest from
// being de-indented. Relative indentation is preserved.
func Multiline(s string) string {
	if s == "" {
		return ""
	}

	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	for len(lines) > 1 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 1 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}

	minIndent, minPositive := -1, -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := len(line) - len(strings.TrimLeft(line, " \t"))
		if minIndent < 0 || indent < minIndent {
			minIndent = indent
		}
		if indent > 0 && (minPositive < 0 || indent < minPositive) {
			minPositive = indent
		}
	}
	if minPositive > 0 {
		minIndent = minPositive
	}
	if minIndent <= 0 {
		return strings.Join(lines, "\n")
	}

	prefix := strings.Repeat(" ", minIndent)
	for i, line := range lines {
		lines[i] = strings.TrimPrefix(line, prefix)
	}
	return strings.Join(lines, "\n")
}
