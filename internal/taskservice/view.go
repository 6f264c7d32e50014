package taskservice

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/starford/checkmark/internal/apperr"
	"github.com/starford/checkmark/internal/models"
	"github.com/starford/checkmark/internal/mutate"
	"github.com/starford/checkmark/internal/pipeline"
	"github.com/starford/checkmark/internal/scan"
	"github.com/starford/checkmark/internal/view"
)

// Status describes the scan a view currently shows.
type Status struct {
	ScanID    string    `json:"scan_id"`
	ScannedAt time.Time `json:"scanned_at"`
	Documents int       `json:"documents"`
	Tasks     int       `json:"tasks"`
	Failures  int       `json:"failures"`
	Partial   bool      `json:"partial"`
}

// View is one configured task list. The latest scan is kept in memory and
// every read recomputes the filtered view from it.
type View struct {
	svc  *Service
	base view.Block

	sf   singleflight.Group
	gens atomic.Uint64

	mu      sync.RWMutex
	block   view.Block
	all     []models.Task
	status  Status
	applied uint64

	now func() time.Time
}

func newView(svc *Service, block view.Block) *View {
	return &View{
		svc:   svc,
		base:  block.Clone(),
		block: block.Clone(),
		all:   []models.Task{},
		now:   time.Now,
	}
}

// Refresh rescans the vault. Concurrent calls share one scan. The shared
// scan ignores the cancellation of any single caller; a caller whose ctx
// ends stops waiting and gets ctx.Err() while the scan runs on for the
// others. A scan that finishes after a newer one has been applied is
// discarded.
func (v *View) Refresh(ctx context.Context) (Status, error) {
	scanCtx := context.WithoutCancel(ctx)
	ch := v.sf.DoChan("scan", func() (any, error) {
		gen := v.gens.Add(1)
		res, err := v.svc.Scan(scanCtx, v.base.ExcludeTags)
		if err != nil {
			return nil, err
		}
		v.apply(gen, res)
		return nil, nil
	})
	select {
	case r := <-ch:
		if r.Err != nil {
			return Status{}, r.Err
		}
		return v.Status(), nil
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
}

func (v *View) apply(gen uint64, res *scan.Result) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if gen <= v.applied {
		v.svc.logger.Debug("view: discarding outdated scan", slog.String("scan_id", res.ID))
		return
	}
	v.applied = gen
	v.all = res.Tasks
	v.status = Status{
		ScanID:    res.ID,
		ScannedAt: v.now(),
		Documents: res.Documents,
		Tasks:     len(res.Tasks),
		Failures:  len(res.Failures),
		Partial:   res.Partial(),
	}
}

// Status returns metadata of the scan currently shown.
func (v *View) Status() Status {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.status
}

// Block returns a copy of the effective configuration.
func (v *View) Block() view.Block {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.block.Clone()
}

// SetOverrides applies live edits on top of the current configuration.
// Tag exclusions of the base block are applied during the scan, so an
// override can add exclude-tags but cannot bring back tasks they dropped.
func (v *View) SetOverrides(fn func(*view.Block)) view.Block {
	v.mu.Lock()
	defer v.mu.Unlock()
	fn(&v.block)
	return v.block.Clone()
}

// ResetOverrides restores the configuration the view was created with.
func (v *View) ResetOverrides() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.block = v.base.Clone()
}

// Tasks returns the filtered and ordered view.
func (v *View) Tasks() []models.Task {
	return v.TasksFor(v.Block())
}

// TasksFor computes the view for b over the latest scan without changing
// the view's own configuration. Tasks dropped at scan time by the base
// block's exclude-tags stay dropped whatever b.ExcludeTags holds.
func (v *View) TasksFor(b view.Block) []models.Task {
	f := b.Filter(v.svc.settings.Get())
	v.mu.RLock()
	defer v.mu.RUnlock()
	return pipeline.ApplyAt(v.all, f, v.now())
}

// Summary returns the stats of the filtered view.
func (v *View) Summary() pipeline.Summary {
	return pipeline.Summarize(v.Tasks())
}

// Categories returns the category names seen by the latest scan.
func (v *View) Categories() []string {
	return v.svc.cats.Load().Names()
}

// ToggleStatus flips the done state of the task at path:line. The view is
// updated before the document is written. A stale line leaves the
// optimistic state in place for the next scan to reconcile.
func (v *View) ToggleStatus(_ context.Context, path string, line int) (models.Task, error) {
	t, err := v.update(path, line, func(t *models.Task) {
		t.Done = !t.Done
	})
	if err != nil {
		return models.Task{}, err
	}
	_, err = v.svc.engine.SetStatus(path, line, t.Done)
	return t, v.afterWrite(t, err)
}

// ChangeDate sets the date of the task at path:line to date, replacing the
// last date on the line or appending one.
func (v *View) ChangeDate(_ context.Context, path string, line int, date string) (models.Task, error) {
	if err := mutate.ValidateDate(date); err != nil {
		return models.Task{}, err
	}
	var old string
	t, err := v.update(path, line, func(t *models.Task) {
		old = t.Date
		t.Text, _ = mutate.ReplaceLastDate(t.Text, old, date)
		t.Date = date
	})
	if err != nil {
		return models.Task{}, err
	}
	_, err = v.svc.engine.ChangeDate(path, line, old, date)
	return t, v.afterWrite(t, err)
}

// update applies fn to the in-memory task at path:line and returns the result.
func (v *View) update(path string, line int, fn func(*models.Task)) (models.Task, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	key := models.Key{Path: path, Line: line}
	for i := range v.all {
		if v.all[i].Key() != key {
			continue
		}
		fn(&v.all[i])
		return v.all[i], nil
	}
	return models.Task{}, apperr.ErrNotFound
}

func (v *View) afterWrite(t models.Task, err error) error {
	defer v.svc.wrote()
	if errors.Is(err, apperr.ErrStaleTask) {
		v.svc.logger.Info("view: task line changed on disk, write skipped",
			slog.String("path", t.Path),
			slog.Int("line", t.Line))
		return nil
	}
	return err
}
