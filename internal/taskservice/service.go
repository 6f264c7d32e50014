// Package taskservice ties scanning, filtering and write-back together for
// the API, the CLI and the MCP server.
package taskservice

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/starford/checkmark/internal/categories"
	"github.com/starford/checkmark/internal/mutate"
	"github.com/starford/checkmark/internal/scan"
	"github.com/starford/checkmark/internal/settings"
	"github.com/starford/checkmark/internal/storage"
	"github.com/starford/checkmark/internal/view"
)

// Service holds the dependencies shared by every view.
type Service struct {
	store    storage.Provider
	scanner  *scan.Scanner
	engine   *mutate.Engine
	cats     *categories.Cache
	settings *settings.Store
	logger   *slog.Logger

	afterWrite func()
}

// Option configures a Service.
type Option func(*Service)

// WithWorkers bounds concurrent document reads during a scan.
func WithWorkers(n int) Option {
	return func(s *Service) { s.scanner.Workers = n }
}

// WithCategories replaces the category cache, e.g. to share one seeded
// with custom defaults.
func WithCategories(c *categories.Cache) Option {
	return func(s *Service) { s.cats = c }
}

// WithAfterWrite registers fn to run after every write-back attempt. It is
// where a rescan gets scheduled.
func WithAfterWrite(fn func()) Option {
	return func(s *Service) { s.afterWrite = fn }
}

// NewService creates a task service over store. meta supplies document
// tags and list item positions.
func NewService(store storage.Provider, meta scan.MetadataSource, st *settings.Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:    store,
		scanner:  &scan.Scanner{Store: store, Meta: meta, Logger: logger},
		engine:   mutate.NewEngine(store),
		cats:     categories.NewCache(categories.DefaultSeed...),
		settings: st,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Settings returns the global settings store.
func (s *Service) Settings() *settings.Store {
	return s.settings
}

// CategoryCache returns the cache replaced at the end of every scan.
func (s *Service) CategoryCache() *categories.Cache {
	return s.cats
}

// Scan runs one scan with the global exclusions plus viewTags and then
// replaces the category cache.
func (s *Service) Scan(ctx context.Context, viewTags []string) (*scan.Result, error) {
	global := s.settings.Get()
	res, err := s.scanner.Scan(ctx, scan.Exclusions{
		Folders:  global.ExcludedFolders,
		Tags:     global.ExcludedTags,
		ViewTags: viewTags,
	})
	if err != nil {
		return nil, err
	}
	s.cats.Store(res.Categories)
	s.logger.Info("scan: finished",
		slog.String("scan_id", res.ID),
		slog.Int("documents", res.Documents),
		slog.Int("tasks", len(res.Tasks)),
		slog.Int("categories", res.Categories.Len()),
		slog.Bool("partial", res.Partial()),
		slog.Duration("duration", res.Duration))
	return res, nil
}

// SuggestCategories returns the known categories containing query.
func (s *Service) SuggestCategories(query string) []string {
	return s.cats.Suggest(query)
}

// SuggestFolders returns vault folders containing query, ignoring case,
// sorted by path.
func (s *Service) SuggestFolders(query string) ([]string, error) {
	all, err := s.store.Folders()
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	out := []string{}
	for _, f := range all {
		if q == "" || strings.Contains(strings.ToLower(f), q) {
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out, nil
}

// NewView creates a view configured by block. It holds no tasks until the
// first Refresh.
func (s *Service) NewView(block view.Block) *View {
	return newView(s, block)
}

func (s *Service) wrote() {
	if s.afterWrite != nil {
		s.afterWrite()
	}
}
