package tasks

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTagExcluded_Hierarchy(t *testing.T) {
	rules := []string{"#archive"}
	cases := map[string]bool{
		"#archive":     true,
		"#archive/old": true,
		"#archived":    false,
		"#other":       false,
	}
	for tag, want := range cases {
		if got := TagExcluded([]string{tag}, rules); got != want {
			t.Errorf("TagExcluded(%q) = %v, want %v", tag, got, want)
		}
	}
}

func TestTagExcluded_NormalizesRules(t *testing.T) {
	if !TagExcluded([]string{"#archive/2023"}, []string{" archive "}) {
		t.Error("rule without # should still match")
	}
}

func TestTagExcluded_EitherSource(t *testing.T) {
	tags := []string{"#hidden"}
	if !TagExcluded(tags, nil, []string{"#hidden"}) {
		t.Error("view rule should exclude")
	}
	if !TagExcluded(tags, []string{"#hidden"}, nil) {
		t.Error("global rule should exclude")
	}
	if TagExcluded(tags, nil, nil) {
		t.Error("no rules should not exclude")
	}
}

func TestFolderExcluded(t *testing.T) {
	rules := []string{"Notes/Private"}
	cases := map[string]bool{
		"Notes/Private/x.md":     true,
		"Notes/Private":          true,
		"notes/private/deep/y.md": true,
		"Notes/PrivateStuff.md":  false,
		"Notes/Public/x.md":      false,
	}
	for p, want := range cases {
		if got := FolderExcluded(p, rules); got != want {
			t.Errorf("FolderExcluded(%q) = %v, want %v", p, got, want)
		}
	}
}

func TestFolderExcluded_EmptyRuleIgnored(t *testing.T) {
	if FolderExcluded("a/b.md", []string{"", "  ", "/"}) {
		t.Error("empty rules must not exclude")
	}
}

func TestCategoryIncluded(t *testing.T) {
	filter := map[string]struct{}{"work": {}}
	if !CategoryIncluded([]string{"Home", "WORK"}, filter) {
		t.Error("WORK should match work")
	}
	if CategoryIncluded([]string{"Home"}, filter) {
		t.Error("Home should not match")
	}
	if CategoryIncluded(nil, filter) {
		t.Error("uncategorised task should not pass a category filter")
	}
	if !CategoryIncluded(nil, nil) {
		t.Error("empty filter passes everything")
	}
}

func TestMergeTags(t *testing.T) {
	got := MergeTags([]string{"#a", "#b"}, []string{"b", "#c", "#a"})
	want := []string{"#a", "#b", "#c"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("MergeTags mismatch (-want +got):\n%s", diff)
	}
}
