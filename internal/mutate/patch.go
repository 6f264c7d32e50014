// Package mutate writes task edits back to their documents as single-line
// patches.
package mutate

import (
	"regexp"
	"strings"
)

var markerRe = regexp.MustCompile(`^(\s*[-*]\s*)\[([ xX])\]`)

// SetMarker rewrites the checkbox marker of line to reflect done. Only the
// character between the brackets changes; done is always written as a
// lowercase x, so an [X] line comes back as [x] after two toggles. It
// returns false when line is not a checkbox item.
func SetMarker(line string, done bool) (string, bool) {
	loc := markerRe.FindStringSubmatchIndex(line)
	if loc == nil {
		return line, false
	}
	mark := " "
	if done {
		mark = "x"
	}
	// loc[4]:loc[5] spans the marker character.
	return line[:loc[4]] + mark + line[loc[5]:], true
}

// ReplaceLastDate replaces the last occurrence of old in line with repl.
// An empty old appends repl to the end of the line, separated by a space.
// It returns false when old does not occur in line.
func ReplaceLastDate(line, old, repl string) (string, bool) {
	if old == "" {
		body, cr := splitCR(line)
		if body == "" || strings.HasSuffix(body, " ") {
			return body + repl + cr, true
		}
		return body + " " + repl + cr, true
	}
	i := strings.LastIndex(line, old)
	if i < 0 {
		return line, false
	}
	return line[:i] + repl + line[i+len(old):], true
}

func splitCR(line string) (string, string) {
	if strings.HasSuffix(line, "\r") {
		return line[:len(line)-1], "\r"
	}
	return line, ""
}
