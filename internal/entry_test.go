package internal

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/checkmark/internal/taskservice"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := NewDefaultConfig()
	cfg.Vault.Path = t.TempDir()
	state := t.TempDir()
	cfg.SQLite.Path = filepath.Join(state, "checkmark.db")
	cfg.Tasks.SettingsPath = filepath.Join(state, "settings.json")
	cfg.Tasks.RescanDebounce = 20 * time.Millisecond
	return cfg
}

func eventually(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return false
}

func startLive(t *testing.T, cfg *Config) (*liveRuntime, chan taskservice.Status) {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	scans := make(chan taskservice.Status, 16)
	lr, err := bootstrapLive(context.Background(), cfg, logger, func(st taskservice.Status, _ []string) {
		scans <- st
	})
	if err != nil {
		t.Fatalf("bootstrapLive: %v", err)
	}
	t.Cleanup(func() { _ = lr.Close() })
	if _, err := lr.view.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	return lr, scans
}

func TestBootstrapLive_WriteSchedulesRescan(t *testing.T) {
	cfg := testConfig(t)
	if err := os.WriteFile(filepath.Join(cfg.Vault.Path, "a.md"), []byte("- [ ] ship\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	lr, scans := startLive(t, cfg)

	if _, err := lr.view.ToggleStatus(context.Background(), "a.md", 0); err != nil {
		t.Fatalf("ToggleStatus: %v", err)
	}
	select {
	case st := <-scans:
		if st.Tasks != 1 {
			t.Errorf("rescan tasks = %d, want 1", st.Tasks)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no rescan after a write")
	}
	if ts := lr.view.Tasks(); len(ts) != 1 || !ts[0].Done {
		t.Errorf("tasks after rescan = %+v", ts)
	}
}

func TestBootstrapLive_WatchPicksUpExternalEdits(t *testing.T) {
	cfg := testConfig(t)
	lr, _ := startLive(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = lr.watch(ctx, cfg.Vault.Path, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// Give the watcher time to register the vault directory.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(cfg.Vault.Path, "new.md"), []byte("- [ ] fresh ==Work==\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if !eventually(t, 3*time.Second, func() bool { return len(lr.view.Tasks()) == 1 }) {
		t.Fatalf("external edit not picked up, tasks = %+v", lr.view.Tasks())
	}
}
