// Package settings persists the global exclusion rules shared by every view.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/natefinch/atomic"
	"github.com/tailscale/hujson"
)

// Settings are the global exclusions. Both lists are never nil.
type Settings struct {
	ExcludedFolders []string `json:"excludedFolders"`
	ExcludedTags    []string `json:"excludedTags"`
}

// Clone returns a copy that shares no slices with s.
func (s Settings) Clone() Settings {
	return Settings{
		ExcludedFolders: append([]string{}, s.ExcludedFolders...),
		ExcludedTags:    append([]string{}, s.ExcludedTags...),
	}
}

// AddExcludedFolder appends folder unless it is blank or already present.
func (s *Settings) AddExcludedFolder(folder string) bool {
	folder = strings.Trim(strings.TrimSpace(folder), "/")
	if folder == "" {
		return false
	}
	for _, f := range s.ExcludedFolders {
		if strings.EqualFold(f, folder) {
			return false
		}
	}
	s.ExcludedFolders = append(s.ExcludedFolders, folder)
	return true
}

// RemoveExcludedFolder removes folder, ignoring case.
func (s *Settings) RemoveExcludedFolder(folder string) bool {
	folder = strings.Trim(strings.TrimSpace(folder), "/")
	for i, f := range s.ExcludedFolders {
		if strings.EqualFold(f, folder) {
			s.ExcludedFolders = append(s.ExcludedFolders[:i:i], s.ExcludedFolders[i+1:]...)
			return true
		}
	}
	return false
}

// SetExcludedTags replaces the tag rules with one tag per line of text.
// Lines are trimmed and blank lines dropped.
func (s *Settings) SetExcludedTags(text string) {
	tags := []string{}
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			tags = append(tags, line)
		}
	}
	s.ExcludedTags = tags
}

func (s *Settings) normalize() {
	if s.ExcludedFolders == nil {
		s.ExcludedFolders = []string{}
	}
	if s.ExcludedTags == nil {
		s.ExcludedTags = []string{}
	}
}

// Store loads and saves Settings in a JSON file that may contain comments
// and trailing commas.
type Store struct {
	path string

	mu  sync.RWMutex
	cur Settings
}

// Open reads the settings file at path. A missing file yields empty settings.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	cur, err := load(path)
	if err != nil {
		return nil, err
	}
	s.cur = cur
	return s, nil
}

// NewMemory returns a Store that never touches disk.
func NewMemory(initial Settings) *Store {
	initial = initial.Clone()
	initial.normalize()
	return &Store{cur: initial}
}

// Path returns the settings file path, or "" for an in-memory store.
func (s *Store) Path() string {
	return s.path
}

// Get returns a copy of the current settings.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.Clone()
}

// Update applies fn to a copy of the current settings and persists the
// result. The stored settings change only if the write succeeds.
func (s *Store) Update(fn func(*Settings)) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.cur.Clone()
	fn(&next)
	next.normalize()
	if err := s.save(next); err != nil {
		return s.cur.Clone(), err
	}
	s.cur = next
	return next.Clone(), nil
}

// Replace stores next as the current settings.
func (s *Store) Replace(next Settings) (Settings, error) {
	return s.Update(func(cur *Settings) { *cur = next.Clone() })
}

func (s *Store) save(v Settings) error {
	if s.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("settings: encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("settings: mkdir: %w", err)
	}
	if err := atomic.WriteFile(s.path, strings.NewReader(string(data)+"\n")); err != nil {
		return fmt.Errorf("settings: write %s: %w", s.path, err)
	}
	return nil
}

func load(path string) (Settings, error) {
	var out Settings
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			out.normalize()
			return out, nil
		}
		return Settings{}, fmt.Errorf("settings: read %s: %w", path, err)
	}
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Settings{}, fmt.Errorf("settings: %s: invalid JSONC: %w", path, err)
	}
	if err := json.Unmarshal(standardized, &out); err != nil {
		return Settings{}, fmt.Errorf("settings: %s: invalid JSON: %w", path, err)
	}
	out.normalize()
	return out, nil
}
