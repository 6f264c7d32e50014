package taskservice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/checkmark/internal/apperr"
	"github.com/starford/checkmark/internal/index"
	"github.com/starford/checkmark/internal/models"
	"github.com/starford/checkmark/internal/scan"
	"github.com/starford/checkmark/internal/settings"
	"github.com/starford/checkmark/internal/testutil"
	"github.com/starford/checkmark/internal/view"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newService(t *testing.T, files map[string]string, st settings.Settings, opts ...Option) (*Service, string) {
	t.Helper()
	dir, store := testutil.TestVault(t)
	testutil.WriteFiles(t, dir, files)
	cache := index.NewCache(testutil.TestDB(t), discard)
	return NewService(store, cache, settings.NewMemory(st), discard, opts...), dir
}

func lines(ts []models.Task) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Text
	}
	return out
}

var vault = map[string]string{
	"work.md":        "# Work\n- [ ] ship ==Work== 2024-06-15\n- [x] review ==Work== 2024-06-01\n",
	"later.md":       "- [ ] plan #someday\n",
	"home.md":        "---\ntags: [home]\n---\n- [ ] water plants ==Home==\n* [ ] pay rent ==home== 2024-06-03\n",
	"Archive/old.md": "- [ ] ancient ==Legacy==\n",
}

func TestView_RefreshAndTasks(t *testing.T) {
	svc, _ := newService(t, vault, settings.Settings{ExcludedFolders: []string{"archive"}})
	v := svc.NewView(view.ParseBlock("status: undone"))

	if got := v.Tasks(); len(got) != 0 {
		t.Fatalf("expected no tasks before the first refresh, got %d", len(got))
	}
	st, err := v.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if st.ScanID == "" || st.Documents != 3 || st.Partial {
		t.Errorf("status = %+v", st)
	}

	want := []string{"pay rent ==home== 2024-06-03", "ship ==Work== 2024-06-15", "water plants ==Home==", "plan #someday"}
	if diff := cmp.Diff(want, lines(v.Tasks())); diff != "" {
		t.Errorf("tasks mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Home", "Work"}, v.Categories()); diff != "" {
		t.Errorf("categories mismatch (-want +got):\n%s", diff)
	}
}

func TestView_SeedCategoriesBeforeScan(t *testing.T) {
	svc, _ := newService(t, nil, settings.Settings{})
	v := svc.NewView(view.Default())
	if diff := cmp.Diff([]string{"Personal", "Urgent", "Work"}, v.Categories()); diff != "" {
		t.Errorf("seed mismatch (-want +got):\n%s", diff)
	}
	if _, err := v.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := v.Categories(); len(got) != 0 {
		t.Errorf("categories after scanning an empty vault = %v", got)
	}
	if got := v.Tasks(); got == nil || len(got) != 0 {
		t.Errorf("tasks after scanning an empty vault = %#v", got)
	}
}

func TestView_ExclusionsFromSettingsAndBlock(t *testing.T) {
	svc, _ := newService(t, vault, settings.Settings{ExcludedTags: []string{"home"}})
	v := svc.NewView(view.ParseBlock("exclude-tags: #someday\nexclude-folders: Archive"))
	if _, err := v.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	want := []string{"review ==Work== 2024-06-01", "ship ==Work== 2024-06-15"}
	if diff := cmp.Diff(want, lines(v.Tasks())); diff != "" {
		t.Errorf("tasks mismatch (-want +got):\n%s", diff)
	}
}

func TestView_OverridesAndTasksFor(t *testing.T) {
	svc, _ := newService(t, vault, settings.Settings{})
	v := svc.NewView(view.Default())
	if _, err := v.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	b := v.Block()
	b.Set("search", "RENT")
	if diff := cmp.Diff([]string{"pay rent ==home== 2024-06-03"}, lines(v.TasksFor(b))); diff != "" {
		t.Errorf("TasksFor mismatch (-want +got):\n%s", diff)
	}
	if n := len(v.Tasks()); n != 6 {
		t.Errorf("TasksFor changed the view: %d tasks", n)
	}

	v.SetOverrides(func(b *view.Block) { b.ToggleCategory("work") })
	if n := len(v.Tasks()); n != 2 {
		t.Errorf("after category override: %d tasks, want 2", n)
	}
	s := v.Summary()
	if s.Total != 2 || s.Done != 1 {
		t.Errorf("summary = %+v", s)
	}
	v.ResetOverrides()
	if n := len(v.Tasks()); n != 6 {
		t.Errorf("after reset: %d tasks, want 6", n)
	}
}

func TestView_ToggleStatus(t *testing.T) {
	var writes atomic.Int32
	svc, dir := newService(t, vault, settings.Settings{}, WithAfterWrite(func() { writes.Add(1) }))
	v := svc.NewView(view.Default())
	if _, err := v.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	got, err := v.ToggleStatus(context.Background(), "work.md", 1)
	if err != nil {
		t.Fatalf("ToggleStatus: %v", err)
	}
	if !got.Done {
		t.Error("returned task not done")
	}
	want := "# Work\n- [x] ship ==Work== 2024-06-15\n- [x] review ==Work== 2024-06-01\n"
	if content := testutil.ReadFile(t, dir, "work.md"); content != want {
		t.Errorf("content = %q", content)
	}
	if writes.Load() != 1 {
		t.Errorf("after-write hook ran %d times", writes.Load())
	}

	if _, err := v.ToggleStatus(context.Background(), "work.md", 1); err != nil {
		t.Fatal(err)
	}
	if content := testutil.ReadFile(t, dir, "work.md"); content != vault["work.md"] {
		t.Errorf("double toggle did not restore the document: %q", content)
	}
}

func TestView_ToggleStaleIsSilent(t *testing.T) {
	svc, dir := newService(t, vault, settings.Settings{})
	v := svc.NewView(view.Default())
	if _, err := v.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	testutil.WriteFiles(t, dir, map[string]string{"work.md": "# rewritten\nno tasks here\n"})

	got, err := v.ToggleStatus(context.Background(), "work.md", 1)
	if err != nil {
		t.Fatalf("stale toggle should not fail: %v", err)
	}
	if !got.Done {
		t.Error("optimistic state not applied")
	}
	if content := testutil.ReadFile(t, dir, "work.md"); content != "# rewritten\nno tasks here\n" {
		t.Errorf("stale toggle wrote the document: %q", content)
	}
}

func TestView_ToggleUnknownTask(t *testing.T) {
	svc, _ := newService(t, vault, settings.Settings{})
	v := svc.NewView(view.Default())
	if _, err := v.ToggleStatus(context.Background(), "work.md", 1); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound before any scan, got %v", err)
	}
}

func TestView_ChangeDate(t *testing.T) {
	svc, dir := newService(t, vault, settings.Settings{})
	v := svc.NewView(view.ParseBlock("sort: date"))
	if _, err := v.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	got, err := v.ChangeDate(context.Background(), "work.md", 1, "2024-05-20")
	if err != nil {
		t.Fatalf("ChangeDate: %v", err)
	}
	if got.Date != "2024-05-20" || got.Text != "ship ==Work== 2024-05-20" {
		t.Errorf("optimistic task = %+v", got)
	}
	if first := v.Tasks()[0]; first.Key() != (models.Key{Path: "work.md", Line: 1}) {
		t.Errorf("view not re-sorted after date change, first = %+v", first)
	}
	if content := testutil.ReadFile(t, dir, "work.md"); content != "# Work\n- [ ] ship ==Work== 2024-05-20\n- [x] review ==Work== 2024-06-01\n" {
		t.Errorf("content = %q", content)
	}

	if _, err := v.ChangeDate(context.Background(), "work.md", 1, "2024-02-31"); !errors.Is(err, apperr.ErrInvalidDate) {
		t.Errorf("expected ErrInvalidDate, got %v", err)
	}
}

func TestView_ConcurrentRefresh(t *testing.T) {
	svc, _ := newService(t, vault, settings.Settings{})
	v := svc.NewView(view.Default())

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := v.Refresh(context.Background()); err != nil {
				t.Errorf("Refresh: %v", err)
			}
		}()
	}
	wg.Wait()
	if n := len(v.Tasks()); n != 6 {
		t.Errorf("tasks = %d, want 6", n)
	}
}

func TestService_SuggestFolders(t *testing.T) {
	svc, _ := newService(t, map[string]string{
		"Projects/Alpha/a.md": "x",
		"Archive/b.md":        "y",
	}, settings.Settings{})
	got, err := svc.SuggestFolders("a")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"Archive", "Projects/Alpha"}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestView_BaseTagExclusionSurvivesOverrides(t *testing.T) {
	svc, _ := newService(t, vault, settings.Settings{})
	v := svc.NewView(view.ParseBlock("exclude-tags: #someday"))
	if _, err := v.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	b := v.Block()
	b.ExcludeTags = nil
	for _, task := range v.TasksFor(b) {
		if task.Text == "plan #someday" {
			t.Fatalf("task excluded by the base block came back: %+v", task)
		}
	}

	b.ExcludeTags = []string{"#home"}
	for _, task := range v.TasksFor(b) {
		if task.Path == "home.md" {
			t.Errorf("added exclude-tags should still filter: %+v", task)
		}
	}
}

// gatedMeta blocks every lookup until release is closed.
type gatedMeta struct {
	inner   scan.MetadataSource
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (g *gatedMeta) Metadata(ctx context.Context, path string, content []byte) (models.DocumentMeta, error) {
	g.once.Do(func() { close(g.started) })
	<-g.release
	return g.inner.Metadata(ctx, path, content)
}

func TestView_RefreshSurvivesCancelledCaller(t *testing.T) {
	dir, store := testutil.TestVault(t)
	testutil.WriteFiles(t, dir, map[string]string{"a.md": "- [ ] keep me\n"})
	meta := &gatedMeta{
		inner:   index.NewCache(testutil.TestDB(t), discard),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc := NewService(store, meta, settings.NewMemory(settings.Settings{}), discard)
	v := svc.NewView(view.Default())

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := v.Refresh(ctxA)
		errA <- err
	}()
	<-meta.started

	errB := make(chan error, 1)
	go func() {
		_, err := v.Refresh(context.Background())
		errB <- err
	}()

	cancelA()
	if err := <-errA; !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled caller err = %v, want context.Canceled", err)
	}

	close(meta.release)
	if err := <-errB; err != nil {
		t.Fatalf("background caller err = %v", err)
	}
	if st := v.Status(); st.ScanID == "" || st.Tasks != 1 {
		t.Errorf("status = %+v, want one applied scan with 1 task", st)
	}
}
