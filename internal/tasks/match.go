package tasks

import "strings"

// NormalizeTag trims t and gives it a leading '#'. Empty input stays empty.
func NormalizeTag(t string) string {
	t = strings.TrimSpace(t)
	if t == "" || t == "#" {
		return ""
	}
	if !strings.HasPrefix(t, "#") {
		t = "#" + t
	}
	return t
}

// NormalizeTags normalizes and deduplicates tags, keeping first-seen order.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = NormalizeTag(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// NormalizeFolder turns a folder rule or document path into the slash
// separated, lower-cased form used for matching.
func NormalizeFolder(p string) string {
	p = strings.TrimSpace(strings.ReplaceAll(p, `\`, "/"))
	p = strings.Trim(p, "/")
	return strings.ToLower(p)
}

// TagMatches reports whether tag equals rule or is a hierarchical child of it.
func TagMatches(tag, rule string) bool {
	tag, rule = NormalizeTag(tag), NormalizeTag(rule)
	if tag == "" || rule == "" {
		return false
	}
	return tag == rule || strings.HasPrefix(tag, rule+"/")
}

// TagExcluded reports whether any tag matches any rule from any of the rule sets.
func TagExcluded(tags []string, ruleSets ...[]string) bool {
	for _, rules := range ruleSets {
		for _, r := range rules {
			for _, t := range tags {
				if TagMatches(t, r) {
					return true
				}
			}
		}
	}
	return false
}

// FolderExcluded reports whether path equals a rule or lies beneath it.
// Matching is case-insensitive.
func FolderExcluded(path string, rules []string) bool {
	p := NormalizeFolder(path)
	for _, r := range rules {
		f := NormalizeFolder(r)
		if f == "" {
			continue
		}
		if p == f || strings.HasPrefix(p, f+"/") {
			return true
		}
	}
	return false
}

// CategoryIncluded reports whether one of categories (lower-cased) is in
// filter. An empty filter includes everything.
func CategoryIncluded(categories []string, filter map[string]struct{}) bool {
	if len(filter) == 0 {
		return true
	}
	for _, c := range categories {
		if _, ok := filter[strings.ToLower(c)]; ok {
			return true
		}
	}
	return false
}

// MergeTags returns the union of line and document tags, normalized and
// deduplicated, line tags first.
func MergeTags(lineTags, docTags []string) []string {
	all := make([]string, 0, len(lineTags)+len(docTags))
	all = append(all, lineTags...)
	all = append(all, docTags...)
	return NormalizeTags(all)
}
