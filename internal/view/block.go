// Package view parses the line-oriented configuration block of a task view.
package view

import (
	"regexp"
	"strings"

	"github.com/starford/checkmark/internal/pipeline"
	"github.com/starford/checkmark/internal/settings"
	"github.com/starford/checkmark/internal/tasks"
)

// Display modes accepted by the view: directive.
const (
	ModeList  = "list"
	ModeStats = "stats"
)

var categoryLineRe = regexp.MustCompile(`^==([^=]+)==$`)

// Block is the parsed configuration of one view instance.
type Block struct {
	Title          string
	Views          []string
	Status         pipeline.Status
	Sort           pipeline.SortBy
	Search         string
	ExcludeTags    []string
	ExcludeFolders []string
	Expanded       bool
	// Relative wins over From/To when set.
	Relative   *pipeline.Relative
	From       string
	To         string
	Categories []string
}

// Default returns the configuration of an empty block.
func Default() Block {
	return Block{
		Views:  []string{ModeList},
		Status: pipeline.StatusAll,
		Sort:   pipeline.SortDate,
	}
}

// ParseBlock reads one directive per line. Unknown lines and invalid
// values are ignored, leaving the defaults in place.
func ParseBlock(src string) Block {
	b := Default()
	for _, raw := range strings.Split(src, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if m := categoryLineRe.FindStringSubmatch(line); m != nil {
			b.AddCategory(m[1])
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		b.Set(key, value)
	}
	return b
}

// Set applies one directive and reports whether it was recognized and its
// value valid. An empty date, from or to value clears that bound.
func (b *Block) Set(key, value string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	value = strings.TrimSpace(value)
	switch key {
	case "title":
		b.Title = value
	case "view":
		var modes []string
		for _, f := range strings.Fields(strings.ToLower(value)) {
			if (f == ModeList || f == ModeStats) && !contains(modes, f) {
				modes = append(modes, f)
			}
		}
		if len(modes) == 0 {
			return false
		}
		b.Views = modes
	case "status":
		st, ok := pipeline.ParseStatus(value)
		if !ok {
			return false
		}
		b.Status = st
	case "sort":
		by, ok := pipeline.ParseSortBy(value)
		if !ok {
			return false
		}
		b.Sort = by
	case "search":
		b.Search = value
	case "exclude-tags":
		b.ExcludeTags = tasks.NormalizeTags(splitList(value))
	case "exclude-folders":
		b.ExcludeFolders = splitList(value)
	case "expanded":
		switch strings.ToLower(value) {
		case "true":
			b.Expanded = true
		case "false":
			b.Expanded = false
		default:
			return false
		}
	case "date":
		if value == "" {
			b.Relative = nil
			return true
		}
		rel, err := pipeline.ParseRelative(value)
		if err != nil {
			return false
		}
		b.Relative = &rel
	case "from", "to":
		if value != "" && !tasks.IsISODate(value) {
			return false
		}
		if key == "from" {
			b.From = value
		} else {
			b.To = value
		}
	case "category":
		if value == "" {
			b.Categories = nil
			return true
		}
		b.AddCategory(value)
	default:
		return false
	}
	return true
}

// AddCategory activates a category filter. Names compare case-insensitively.
func (b *Block) AddCategory(name string) {
	name = strings.TrimSpace(name)
	if name == "" || b.HasCategory(name) {
		return
	}
	b.Categories = append(b.Categories, name)
}

// ToggleCategory activates name if inactive and deactivates it otherwise.
func (b *Block) ToggleCategory(name string) {
	for i, c := range b.Categories {
		if strings.EqualFold(c, strings.TrimSpace(name)) {
			b.Categories = append(b.Categories[:i:i], b.Categories[i+1:]...)
			return
		}
	}
	b.AddCategory(name)
}

// HasCategory reports whether name is an active category filter.
func (b Block) HasCategory(name string) bool {
	for _, c := range b.Categories {
		if strings.EqualFold(c, strings.TrimSpace(name)) {
			return true
		}
	}
	return false
}

// Shows reports whether the block displays mode.
func (b Block) Shows(mode string) bool {
	return contains(b.Views, mode)
}

// DateRange returns the date restriction of the block.
func (b Block) DateRange() pipeline.DateRange {
	switch {
	case b.Relative != nil:
		return pipeline.DateRange{Mode: pipeline.RangeRelative, Relative: *b.Relative}
	case b.From != "" || b.To != "":
		return pipeline.DateRange{Mode: pipeline.RangeSpecific, From: b.From, To: b.To}
	default:
		return pipeline.DateRange{Mode: pipeline.RangeAll}
	}
}

// Filter combines the block with the global exclusions into a pipeline.Filter.
func (b Block) Filter(s settings.Settings) pipeline.Filter {
	cats := make(map[string]struct{}, len(b.Categories))
	for _, c := range b.Categories {
		cats[strings.ToLower(c)] = struct{}{}
	}
	return pipeline.Filter{
		Status:          b.Status,
		ExcludedTags:    append(tasks.NormalizeTags(s.ExcludedTags), b.ExcludeTags...),
		ExcludedFolders: append(append([]string{}, s.ExcludedFolders...), b.ExcludeFolders...),
		Categories:      cats,
		Search:          b.Search,
		DateRange:       b.DateRange(),
		SortBy:          b.Sort,
	}
}

// Clone returns a copy of b that shares no slices with it.
func (b Block) Clone() Block {
	c := b
	c.Views = append([]string(nil), b.Views...)
	c.ExcludeTags = append([]string(nil), b.ExcludeTags...)
	c.ExcludeFolders = append([]string(nil), b.ExcludeFolders...)
	c.Categories = append([]string(nil), b.Categories...)
	if b.Relative != nil {
		rel := *b.Relative
		c.Relative = &rel
	}
	return c
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
