package pipeline

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/checkmark/internal/models"
)

var fixedNow = time.Date(2024, 6, 10, 15, 30, 0, 0, time.Local)

func task(path string, line int, text, date string, done bool, cats ...string) models.Task {
	return models.Task{Path: path, Line: line, Text: text, Date: date, Done: done, Categories: cats}
}

func keys(ts []models.Task) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = fmt.Sprintf("%s:%d", t.Path, t.Line)
	}
	return out
}

func sample() []models.Task {
	return []models.Task{
		task("b.md", 0, "buy milk", "", false, "Errands"),
		task("a.md", 3, "ship release 2024-06-15", "2024-06-15", true, "Work"),
		task("a.md", 1, "write notes", "", true),
		task("c.md", 2, "call Mum 2024-06-18", "2024-06-18", false, "Home"),
		task("b.md", 5, "Pay rent 2024-06-01", "2024-06-01", false, "home", "Errands"),
	}
}

func TestApply_Status(t *testing.T) {
	done := ApplyAt(sample(), Filter{Status: StatusDone, SortBy: SortFile}, fixedNow)
	if diff := cmp.Diff([]string{"a.md:3", "a.md:1"}, keys(done)); diff != "" {
		t.Errorf("done mismatch (-want +got):\n%s", diff)
	}
	undone := ApplyAt(sample(), Filter{Status: StatusUndone, SortBy: SortFile}, fixedNow)
	if len(undone) != 3 {
		t.Errorf("undone = %d, want 3", len(undone))
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	in := sample()
	before := keys(in)
	_ = ApplyAt(in, Filter{SortBy: SortFile}, fixedNow)
	if diff := cmp.Diff(before, keys(in)); diff != "" {
		t.Errorf("input reordered (-want +got):\n%s", diff)
	}
}

func TestApply_Idempotent(t *testing.T) {
	f := Filter{
		Status:     StatusUndone,
		Categories: map[string]struct{}{"home": {}},
		SortBy:     SortDate,
	}
	once := ApplyAt(sample(), f, fixedNow)
	twice := ApplyAt(once, f, fixedNow)
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("apply not idempotent (-once +twice):\n%s", diff)
	}
}

func TestApply_CategoryFilter(t *testing.T) {
	f := Filter{Categories: map[string]struct{}{"home": {}}, SortBy: SortFile}
	got := ApplyAt(sample(), f, fixedNow)
	if diff := cmp.Diff([]string{"b.md:5", "c.md:2"}, keys(got)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestApply_Search(t *testing.T) {
	got := ApplyAt(sample(), Filter{Search: "MUM"}, fixedNow)
	if diff := cmp.Diff([]string{"c.md:2"}, keys(got)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestApply_TagAndFolderExclusion(t *testing.T) {
	ts := []models.Task{
		{Path: "Archive/x.md", Line: 0},
		{Path: "a.md", Line: 0, Tags: []string{"#archive/old"}},
		{Path: "a.md", Line: 1, Tags: []string{"#archived"}},
	}
	f := Filter{ExcludedTags: []string{"archive"}, ExcludedFolders: []string{"archive"}}
	got := ApplyAt(ts, f, fixedNow)
	if diff := cmp.Diff([]string{"a.md:1"}, keys(got)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestApply_RelativeNextWeek(t *testing.T) {
	f := Filter{DateRange: DateRange{
		Mode:     RangeRelative,
		Relative: Relative{Direction: DirectionNext, Amount: 1, Unit: UnitWeeks},
	}}
	got := ApplyAt(sample(), f, fixedNow)
	if diff := cmp.Diff([]string{"a.md:3"}, keys(got)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestApply_RelativeLastDays(t *testing.T) {
	f := Filter{DateRange: DateRange{
		Mode:     RangeRelative,
		Relative: Relative{Direction: DirectionLast, Amount: 10, Unit: UnitDays},
	}}
	got := ApplyAt(sample(), f, fixedNow)
	if diff := cmp.Diff([]string{"b.md:5"}, keys(got)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestApply_SpecificRange(t *testing.T) {
	from := ApplyAt(sample(), Filter{DateRange: DateRange{Mode: RangeSpecific, From: "2024-06-15"}}, fixedNow)
	if diff := cmp.Diff([]string{"a.md:3", "c.md:2"}, keys(from)); diff != "" {
		t.Errorf("from mismatch (-want +got):\n%s", diff)
	}
	to := ApplyAt(sample(), Filter{DateRange: DateRange{Mode: RangeSpecific, To: "2024-06-15"}}, fixedNow)
	if diff := cmp.Diff([]string{"b.md:5", "a.md:3"}, keys(to)); diff != "" {
		t.Errorf("to mismatch (-want +got):\n%s", diff)
	}
	open := ApplyAt(sample(), Filter{DateRange: DateRange{Mode: RangeSpecific}}, fixedNow)
	if len(open) != 5 {
		t.Errorf("unbounded specific range should pass everything, got %d", len(open))
	}
}

func TestSort_DateUndatedLastStable(t *testing.T) {
	got := ApplyAt(sample(), Filter{SortBy: SortDate}, fixedNow)
	want := []string{"b.md:5", "a.md:3", "c.md:2", "b.md:0", "a.md:1"}
	if diff := cmp.Diff(want, keys(got)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestSort_FileStable(t *testing.T) {
	got := ApplyAt(sample(), Filter{SortBy: SortFile}, fixedNow)
	want := []string{"a.md:3", "a.md:1", "b.md:0", "b.md:5", "c.md:2"}
	if diff := cmp.Diff(want, keys(got)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRelative(t *testing.T) {
	got, err := ParseRelative(" Next 2 week ")
	if err != nil {
		t.Fatalf("ParseRelative: %v", err)
	}
	want := Relative{Direction: DirectionNext, Amount: 2, Unit: UnitWeeks}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if got.String() != "next 2 weeks" {
		t.Errorf("String() = %q", got.String())
	}
	for _, bad := range []string{"", "next", "soon 1 days", "next -1 days", "next x days", "next 1 fortnights"} {
		if _, err := ParseRelative(bad); err == nil {
			t.Errorf("ParseRelative(%q) should fail", bad)
		}
	}
}

func TestWindow_MonthsAndYears(t *testing.T) {
	w, ok := DateRange{Mode: RangeRelative, Relative: Relative{DirectionNext, 1, UnitMonths}}.Window(fixedNow)
	if !ok || w != (Window{From: "2024-06-10", To: "2024-07-10"}) {
		t.Errorf("months window = %+v", w)
	}
	w, _ = DateRange{Mode: RangeRelative, Relative: Relative{DirectionLast, 1, UnitYears}}.Window(fixedNow)
	if w != (Window{From: "2023-06-10", To: "2024-06-10"}) {
		t.Errorf("years window = %+v", w)
	}
	if _, ok := (DateRange{}).Window(fixedNow); ok {
		t.Error("zero range should not restrict")
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sample())
	if s.Total != 5 || s.Done != 2 || s.Undone != 3 || s.Undated != 2 || s.Uncategorized != 1 || s.UncategorizedDone != 1 {
		t.Errorf("totals = %+v", s)
	}
	want := []CategoryCount{
		{Name: "Errands", Undone: 2},
		{Name: "Home", Undone: 2},
		{Name: "Work", Done: 1},
	}
	if diff := cmp.Diff(want, s.Categories); diff != "" {
		t.Errorf("categories mismatch (-want +got):\n%s", diff)
	}
}

func TestParseStatusAndSort(t *testing.T) {
	if st, ok := ParseStatus(" UNDONE "); !ok || st != StatusUndone {
		t.Errorf("ParseStatus = %q, %v", st, ok)
	}
	if _, ok := ParseStatus("maybe"); ok {
		t.Error("unknown status accepted")
	}
	if by, ok := ParseSortBy("file"); !ok || by != SortFile {
		t.Errorf("ParseSortBy = %q, %v", by, ok)
	}
	if _, ok := ParseSortBy("priority"); ok {
		t.Error("unknown sort accepted")
	}
}
