package pipeline

import (
	"sort"
	"strings"

	"github.com/starford/checkmark/internal/models"
)

// CategoryCount is the done/undone tally of one category.
type CategoryCount struct {
	Name   string `json:"name"`
	Done   int    `json:"done"`
	Undone int    `json:"undone"`
}

// Summary aggregates a task view for the stats display.
type Summary struct {
	Total         int `json:"total"`
	Done          int `json:"done"`
	Undone        int `json:"undone"`
	Undated       int `json:"undated"`
	Uncategorized int `json:"uncategorized"`
	// UncategorizedDone counts the done tasks among Uncategorized.
	UncategorizedDone int             `json:"uncategorized_done"`
	Categories        []CategoryCount `json:"categories"`
}

// Summarize counts ts overall and per category. Categories are grouped
// case-insensitively under the first-seen spelling and sorted by name.
func Summarize(ts []models.Task) Summary {
	s := Summary{Total: len(ts), Categories: []CategoryCount{}}
	byKey := map[string]*CategoryCount{}
	var order []string
	for _, t := range ts {
		if t.Done {
			s.Done++
		} else {
			s.Undone++
		}
		if !t.HasDate() {
			s.Undated++
		}
		if len(t.Categories) == 0 {
			s.Uncategorized++
			if t.Done {
				s.UncategorizedDone++
			}
		}
		seen := map[string]bool{}
		for _, c := range t.Categories {
			key := strings.ToLower(c)
			if seen[key] {
				continue
			}
			seen[key] = true
			cc, ok := byKey[key]
			if !ok {
				cc = &CategoryCount{Name: c}
				byKey[key] = cc
				order = append(order, key)
			}
			if t.Done {
				cc.Done++
			} else {
				cc.Undone++
			}
		}
	}
	sort.Strings(order)
	for _, k := range order {
		s.Categories = append(s.Categories, *byKey[k])
	}
	return s
}
