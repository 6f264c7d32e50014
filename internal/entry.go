// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/checkmark/internal/api"
	"github.com/starford/checkmark/internal/categories"
	"github.com/starford/checkmark/internal/index"
	"github.com/starford/checkmark/internal/mcpserver"
	"github.com/starford/checkmark/internal/render"
	"github.com/starford/checkmark/internal/rescan"
	"github.com/starford/checkmark/internal/settings"
	"github.com/starford/checkmark/internal/sse"
	"github.com/starford/checkmark/internal/storage"
	"github.com/starford/checkmark/internal/taskservice"
	"github.com/starford/checkmark/internal/view"
)

// categoriesThrottle is the minimum gap between categories.updated events.
const categoriesThrottle = 2 * time.Second

func newApplication(opts []Option) (*application, error) {
	app := &application{out: os.Stdout, version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}

// runtime holds what every command needs: the vault, the metadata cache and
// the task service.
type runtime struct {
	store *storage.FS
	db    *index.DB
	svc   *taskservice.Service
}

func (r *runtime) Close() error {
	return r.db.Close()
}

func bootstrap(cfg *Config, logger *slog.Logger, svcOpts ...taskservice.Option) (*runtime, error) {
	// Ensure vault directory exists.
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	// Warm the metadata cache so the first scan reads from SQLite.
	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	st, err := settings.Open(cfg.Tasks.SettingsPath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("load settings: %w", err)
	}

	opts := []taskservice.Option{
		taskservice.WithWorkers(cfg.Tasks.Workers),
		taskservice.WithCategories(categories.NewCache(cfg.Tasks.SeedCategories...)),
	}
	opts = append(opts, svcOpts...)
	svc := taskservice.NewService(store, index.NewCache(db, logger), st, logger, opts...)

	return &runtime{store: store, db: db, svc: svc}, nil
}

// liveRuntime is a runtime whose view rescans, after a quiet window, when
// the service writes a task and, while watch runs, when the vault changes.
type liveRuntime struct {
	*runtime
	view      *taskservice.View
	debouncer *rescan.Debouncer
}

// bootstrapLive is bootstrap plus the configured view and its debounced
// rescans. onScan, if non-nil, receives every rescan result.
func bootstrapLive(ctx context.Context, cfg *Config, logger *slog.Logger, onScan func(taskservice.Status, []string)) (*liveRuntime, error) {
	lr := &liveRuntime{}
	rt, err := bootstrap(cfg, logger, taskservice.WithAfterWrite(func() {
		if lr.debouncer != nil {
			lr.debouncer.OnExternalChange()
		}
	}))
	if err != nil {
		return nil, err
	}
	lr.runtime = rt
	lr.view = rt.svc.NewView(cfg.Tasks.ViewBlock())
	lr.debouncer = rescan.New(cfg.Tasks.RescanDebounce, func() {
		status, err := lr.view.Refresh(ctx)
		if err != nil {
			logger.Error("rescan failed", slog.String("error", err.Error()))
			return
		}
		if onScan != nil {
			onScan(status, lr.view.Categories())
		}
	})
	return lr, nil
}

// watch feeds vault changes to the debouncer until ctx is cancelled.
func (lr *liveRuntime) watch(ctx context.Context, vaultPath string, logger *slog.Logger) error {
	return index.Watch(ctx, lr.db, lr.store, vaultPath, logger, func(kind, path string) {
		logger.Debug("vault change", slog.String("kind", kind), slog.String("path", path))
		lr.debouncer.OnExternalChange()
	})
}

func (lr *liveRuntime) Close() error {
	lr.debouncer.Close()
	return lr.runtime.Close()
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := newLogger(os.Stdout, cfg.App.LogLevel)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("settings_path", cfg.Tasks.SettingsPath),
		slog.String("log_level", cfg.App.LogLevel.String()))

	broker := sse.NewBroker(categoriesThrottle)
	defer broker.Close()

	lr, err := bootstrapLive(ctx, cfg, logger, func(status taskservice.Status, categories []string) {
		broker.PublishScan(status, categories)
	})
	if err != nil {
		return err
	}
	defer lr.Close()
	v := lr.view

	if _, err := v.Refresh(ctx); err != nil {
		logger.Warn("initial scan failed", slog.String("error", err.Error()))
	}

	g, gCtx := errgroup.WithContext(ctx)

	apiRouter := api.NewRouter(lr.svc, v, broker, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if v.Status().ScanID == "" {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"scanning"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	// Start file watcher; every change restarts the quiet window.
	g.Go(func() error {
		if err := lr.watch(gCtx, cfg.Vault.Path, logger); err != nil {
			logger.Error("watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")
		lr.debouncer.CancelPending()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunList scans the vault once and prints the view as tables.
func RunList(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Tables go to the output writer; logs stay on stderr.
	logger := newLogger(os.Stderr, cfg.App.LogLevel)

	rt, err := bootstrap(cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	block := cfg.Tasks.ViewBlock()
	if app.block != "" {
		block = view.ParseBlock(app.block)
	}

	v := rt.svc.NewView(block)
	status, err := v.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	if status.Partial {
		logger.Warn("some documents could not be read", slog.Int("failures", status.Failures))
	}

	if _, err := fmt.Fprintln(app.out, render.View(v.Block(), v.Tasks())); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// RunMCP serves the MCP tools over stdin/stdout until the client disconnects.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Stdout carries the protocol.
	logger := newLogger(os.Stderr, cfg.App.LogLevel)

	lr, err := bootstrapLive(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer lr.Close()

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go func() {
		if err := lr.watch(watchCtx, cfg.Vault.Path, logger); err != nil {
			logger.Error("watcher stopped", slog.String("error", err.Error()))
		}
	}()

	if _, err := lr.view.Refresh(ctx); err != nil {
		logger.Warn("initial scan failed", slog.String("error", err.Error()))
	}

	logger.Info("MCP server starting", slog.String("vault_path", cfg.Vault.Path))
	if err := mcpserver.New(lr.svc, lr.view, app.version).ServeStdio(); err != nil {
		return fmt.Errorf("mcp: %w", err)
	}
	return nil
}
