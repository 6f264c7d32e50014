// Package parser extracts frontmatter tags, inline tags, and list item
// positions from Markdown documents.
package parser

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/adrg/frontmatter"

	"github.com/starford/checkmark/internal/tasks"
)

var (
	tagRe      = regexp.MustCompile(`(?:^|\s)#([A-Za-z][\w/-]*)`)
	listItemRe = regexp.MustCompile(`^\s*(?:[-*+]|\d+[.)])(?:\s|\[)`)
)

// Result holds the output of parsing a Markdown document.
type Result struct {
	Frontmatter map[string]any
	Body        string
	// BodyLine is the zero-based line where the body starts.
	BodyLine  int
	Tags      []string
	ListItems []int
}

// Parse splits frontmatter from data and collects document tags and list
// item line numbers. Malformed frontmatter is treated as body text.
func Parse(data []byte) *Result {
	fm, body, bodyLine := splitFrontmatter(data)
	return &Result{
		Frontmatter: fm,
		Body:        body,
		BodyLine:    bodyLine,
		Tags:        extractTags(body, fm),
		ListItems:   listItems(body, bodyLine),
	}
}

func splitFrontmatter(data []byte) (map[string]any, string, int) {
	var fm map[string]any
	rest, err := frontmatter.Parse(bytes.NewReader(data), &fm)
	if err != nil {
		return nil, string(data), 0
	}
	// The body is the tail of data, so the line difference is where it starts.
	bodyLine := bytes.Count(data, []byte("\n")) - bytes.Count(rest, []byte("\n"))
	return fm, string(rest), bodyLine
}

// extractTags collects tags from the frontmatter "tags"/"tag" fields and the
// body, each normalized to a leading '#'.
func extractTags(body string, fm map[string]any) []string {
	var raw []string
	for _, key := range []string{"tags", "tag"} {
		raw = append(raw, frontmatterStrings(fm[key])...)
	}
	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		raw = append(raw, m[1])
	}
	return tasks.NormalizeTags(raw)
}

// frontmatterStrings accepts a YAML list or a comma/space separated string.
func frontmatterStrings(v any) []string {
	switch t := v.(type) {
	case []any:
		var out []string
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	case []string:
		return t
	case string:
		return strings.FieldsFunc(t, func(r rune) bool { return r == ',' || r == ' ' })
	}
	return nil
}

func listItems(body string, offset int) []int {
	var out []int
	for i, line := range strings.Split(body, "\n") {
		if listItemRe.MatchString(line) {
			out = append(out, offset+i)
		}
	}
	return out
}
