package tasks

import (
	"sort"
	"strings"
)

// SegmentKind classifies a run of task text for display.
type SegmentKind int

const (
	SegmentText SegmentKind = iota
	SegmentCategory
	SegmentDate
	SegmentTag
)

// Segment is one display run of task text. For categories Value is the
// trimmed name without the == markers.
type Segment struct {
	Kind  SegmentKind
	Value string
}

type span struct {
	start, end int
	kind       SegmentKind
	value      string
}

// Segments splits text into category, date, tag and plain runs. Only the
// occurrence of date that is the task's date (the last one) is a date
// segment; earlier date-like substrings stay plain text.
func Segments(text, date string) []Segment {
	var spans []span
	for _, loc := range categoryRe.FindAllStringSubmatchIndex(text, -1) {
		name := strings.TrimSpace(text[loc[2]:loc[3]])
		// Blank markers are not categories; they stay plain text.
		if name == "" {
			continue
		}
		spans = append(spans, span{loc[0], loc[1], SegmentCategory, name})
	}
	if date != "" {
		if locs := dateRe.FindAllStringIndex(text, -1); len(locs) > 0 {
			last := locs[len(locs)-1]
			if text[last[0]:last[1]] == date {
				spans = append(spans, span{last[0], last[1], SegmentDate, date})
			}
		}
	}
	for _, loc := range tagRe.FindAllStringIndex(text, -1) {
		spans = append(spans, span{loc[0], loc[1], SegmentTag, text[loc[0]:loc[1]]})
	}
	sort.SliceStable(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	var out []Segment
	pos := 0
	for _, s := range spans {
		// Overlapping matches (a tag inside a category) keep the earlier span.
		if s.start < pos {
			continue
		}
		if s.start > pos {
			out = append(out, Segment{Kind: SegmentText, Value: text[pos:s.start]})
		}
		out = append(out, Segment{Kind: s.kind, Value: s.value})
		pos = s.end
	}
	if pos < len(text) {
		out = append(out, Segment{Kind: SegmentText, Value: text[pos:]})
	}
	return out
}
