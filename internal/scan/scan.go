// Package scan walks the vault and builds the task list and category set.
package scan

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/starford/checkmark/internal/categories"
	"github.com/starford/checkmark/internal/models"
	"github.com/starford/checkmark/internal/storage"
	"github.com/starford/checkmark/internal/tasks"
)

// DefaultWorkers bounds concurrent document reads when Scanner.Workers is unset.
const DefaultWorkers = 8

// MetadataSource supplies the pre-parsed structure of a document.
type MetadataSource interface {
	Metadata(ctx context.Context, path string, content []byte) (models.DocumentMeta, error)
}

// Exclusions are the rules applied while scanning. ViewTags come from the
// view block and apply alongside the global tags.
type Exclusions struct {
	Folders  []string
	Tags     []string
	ViewTags []string
}

// Failure records a document that could not be read.
type Failure struct {
	Path string
	Err  error
}

// Result is the output of one scan.
type Result struct {
	ID         string
	Tasks      []models.Task
	Categories *categories.Set
	Documents  int
	Failures   []Failure
	Duration   time.Duration
}

// Partial reports whether some documents were skipped because of read errors.
func (r *Result) Partial() bool {
	return len(r.Failures) > 0
}

// Err joins the per-document failures, or returns nil.
func (r *Result) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = fmt.Errorf("%s: %w", f.Path, f.Err)
	}
	return errors.Join(errs...)
}

// Scanner extracts tasks from every document in a store.
type Scanner struct {
	Store   storage.Provider
	Meta    MetadataSource
	Logger  *slog.Logger
	Workers int
}

type docResult struct {
	tasks   []models.Task
	skipped bool
	err     error
}

// Scan reads every document not excluded by folder, extracts its tasks and
// returns them in document order, then line order. Per-document failures
// are recorded in the result; only failing to enumerate documents or a
// cancelled ctx returns an error.
func (s *Scanner) Scan(ctx context.Context, ex Exclusions) (*Result, error) {
	start := time.Now()
	docs, err := s.Store.List("")
	if err != nil {
		return nil, fmt.Errorf("scan: list documents: %w", err)
	}

	var candidates []models.Document
	for _, d := range docs {
		if tasks.FolderExcluded(d.Path, ex.Folders) {
			continue
		}
		candidates = append(candidates, d)
	}

	results := make([]docResult, len(candidates))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers())
	for i, d := range candidates {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			results[i] = s.scanDocument(gCtx, d, ex)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{ID: newScanID(), Documents: len(candidates)}
	cats := categories.NewBuilder()
	for i, r := range results {
		if r.err != nil {
			res.Failures = append(res.Failures, Failure{Path: candidates[i].Path, Err: r.err})
			s.logger().Warn("scan: document skipped",
				slog.String("path", candidates[i].Path),
				slog.String("error", r.err.Error()))
			continue
		}
		if r.skipped {
			s.logger().Debug("scan: document excluded by tag", slog.String("path", candidates[i].Path))
			continue
		}
		for _, t := range r.tasks {
			cats.Add(t.Categories...)
		}
		res.Tasks = append(res.Tasks, r.tasks...)
	}
	if res.Tasks == nil {
		res.Tasks = []models.Task{}
	}
	res.Categories = cats.Set()
	res.Duration = time.Since(start)

	s.logger().Debug("scan: completed",
		slog.String("scan_id", res.ID),
		slog.Int("documents", res.Documents),
		slog.Int("tasks", len(res.Tasks)),
		slog.Int("failures", len(res.Failures)))
	return res, nil
}

func (s *Scanner) scanDocument(ctx context.Context, d models.Document, ex Exclusions) docResult {
	content, err := s.Store.Read(d.Path)
	if err != nil {
		return docResult{err: err}
	}

	meta, err := s.Meta.Metadata(ctx, d.Path, content)
	if err != nil {
		return docResult{err: err}
	}
	// Whole-document shortcut; the per-task check below catches the rest.
	if tasks.TagExcluded(meta.Tags, ex.Tags, ex.ViewTags) {
		return docResult{skipped: true}
	}

	lines := strings.Split(string(content), "\n")
	var out []models.Task
	for _, i := range candidateLines(meta, len(lines)) {
		line, ok := tasks.Extract(lines[i])
		if !ok {
			continue
		}
		tags := tasks.MergeTags(line.Tags, meta.Tags)
		if tasks.TagExcluded(tags, ex.Tags, ex.ViewTags) {
			continue
		}
		out = append(out, models.Task{
			Path:       d.Path,
			Basename:   d.Basename,
			Line:       i,
			Text:       line.Text,
			Done:       line.Done,
			Categories: nonNil(line.Categories),
			Tags:       tags,
			Date:       line.Date,
		})
	}
	return docResult{tasks: out}
}

// candidateLines returns the list item lines from the cache, or every line
// when the source recorded no positions at all (nil, as opposed to empty).
func candidateLines(meta models.DocumentMeta, n int) []int {
	if meta.ListItems == nil {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all
	}
	out := make([]int, 0, len(meta.ListItems))
	for _, i := range meta.ListItems {
		if i >= 0 && i < n {
			out = append(out, i)
		}
	}
	return out
}

func (s *Scanner) workers() int {
	if s.Workers > 0 {
		return s.Workers
	}
	return DefaultWorkers
}

func (s *Scanner) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func newScanID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
