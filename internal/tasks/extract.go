// Package tasks extracts checkbox task lines and matches them against
// exclusion and inclusion rules.
package tasks

import (
	"regexp"
	"strings"
)

var (
	checkboxRe = regexp.MustCompile(`^(\s*[-*]\s*)\[([ xX])\]\s*(.*)$`)
	categoryRe = regexp.MustCompile(`==([^=]+)==`)
	dateRe     = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	tagRe      = regexp.MustCompile(`#[\w/-]+`)
)

// Line is the metadata parsed from a single checkbox line.
type Line struct {
	Text       string
	Done       bool
	Categories []string
	Date       string
	Tags       []string
}

// Extract parses one line of a document. It returns false when the line is
// not a checkbox list item.
func Extract(line string) (Line, bool) {
	m := checkboxRe.FindStringSubmatch(strings.TrimSuffix(line, "\r"))
	if m == nil {
		return Line{}, false
	}
	text := m[3]
	return Line{
		Text:       text,
		Done:       m[2] == "x" || m[2] == "X",
		Categories: extractCategories(text),
		Date:       extractDate(text),
		Tags:       tagRe.FindAllString(text, -1),
	}, true
}

// IsCheckbox reports whether line has the checkbox list item shape.
func IsCheckbox(line string) bool {
	return checkboxRe.MatchString(strings.TrimSuffix(line, "\r"))
}

func extractCategories(text string) []string {
	var out []string
	for _, m := range categoryRe.FindAllStringSubmatch(text, -1) {
		name := strings.TrimSpace(m[1])
		if name == "" {
			continue
		}
		out = append(out, name)
	}
	return out
}

// extractDate returns the last ISO date in text; earlier ones are plain text.
func extractDate(text string) string {
	all := dateRe.FindAllString(text, -1)
	if len(all) == 0 {
		return ""
	}
	return all[len(all)-1]
}

// IsISODate reports whether s has the YYYY-MM-DD digit shape.
func IsISODate(s string) bool {
	return len(s) == 10 && dateRe.MatchString(s)
}
