// Package pipeline filters and orders a scanned task list. Every function
// here is pure: the same tasks and Filter always give the same view.
package pipeline

import (
	"slices"
	"strings"
	"time"

	"github.com/starford/checkmark/internal/models"
	"github.com/starford/checkmark/internal/tasks"
)

// Status selects tasks by completion.
type Status string

const (
	StatusAll    Status = "all"
	StatusDone   Status = "done"
	StatusUndone Status = "undone"
)

// SortBy selects the view ordering.
type SortBy string

const (
	SortDate SortBy = "date"
	SortFile SortBy = "file"
)

// Filter is the complete filter configuration of a view.
type Filter struct {
	Status          Status
	ExcludedTags    []string
	ExcludedFolders []string
	// Categories holds lower-cased names; empty means no restriction.
	Categories map[string]struct{}
	Search     string
	DateRange  DateRange
	SortBy     SortBy
}

// Apply filters and sorts tasks against the local clock.
func Apply(ts []models.Task, f Filter) []models.Task {
	return ApplyAt(ts, f, time.Now())
}

// ApplyAt filters and sorts tasks with now as the reference for relative
// date ranges. The input slice is not modified.
func ApplyAt(ts []models.Task, f Filter, now time.Time) []models.Task {
	win, hasWin := f.DateRange.Window(now)
	term := strings.ToLower(f.Search)

	out := make([]models.Task, 0, len(ts))
	for _, t := range ts {
		if !statusMatches(t, f.Status) {
			continue
		}
		if tasks.TagExcluded(t.Tags, f.ExcludedTags) {
			continue
		}
		if tasks.FolderExcluded(t.Path, f.ExcludedFolders) {
			continue
		}
		if !tasks.CategoryIncluded(t.Categories, f.Categories) {
			continue
		}
		if hasWin && !win.Contains(t.Date) {
			continue
		}
		if term != "" && !strings.Contains(strings.ToLower(t.Text), term) {
			continue
		}
		out = append(out, t)
	}
	Sort(out, f.SortBy)
	return out
}

func statusMatches(t models.Task, s Status) bool {
	switch s {
	case StatusDone:
		return t.Done
	case StatusUndone:
		return !t.Done
	default:
		return true
	}
}

// Sort orders ts in place. It is stable: ties keep their scan order.
// Date order puts undated tasks last; file order compares document paths.
func Sort(ts []models.Task, by SortBy) {
	switch by {
	case SortFile:
		slices.SortStableFunc(ts, func(a, b models.Task) int {
			return strings.Compare(a.Path, b.Path)
		})
	default:
		slices.SortStableFunc(ts, compareDate)
	}
}

func compareDate(a, b models.Task) int {
	switch {
	case !a.HasDate() && !b.HasDate():
		return 0
	case !a.HasDate():
		return 1
	case !b.HasDate():
		return -1
	}
	return strings.Compare(a.Date, b.Date)
}

// ParseStatus returns the Status named by s.
func ParseStatus(s string) (Status, bool) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusAll, StatusDone, StatusUndone:
		return st, true
	}
	return "", false
}

// ParseSortBy returns the SortBy named by s.
func ParseSortBy(s string) (SortBy, bool) {
	switch by := SortBy(strings.ToLower(strings.TrimSpace(s))); by {
	case SortDate, SortFile:
		return by, true
	}
	return "", false
}
