// Package categories holds the set of ==Category== names seen by the latest scan.
package categories

import (
	"sort"
	"strings"
	"sync/atomic"
)

// DefaultSeed is offered for suggestions before the first scan completes.
var DefaultSeed = []string{"Work", "Personal", "Urgent"}

// Set is an immutable snapshot of category names. Identity is
// case-insensitive; the case of the first sighting is kept for display.
type Set struct {
	names map[string]string // lower -> display
}

// NewSet builds a Set from names in order.
func NewSet(names ...string) *Set {
	b := NewBuilder()
	for _, n := range names {
		b.Add(n)
	}
	return b.Set()
}

// Len returns the number of distinct categories.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}

// Contains reports whether name is in the set, ignoring case.
func (s *Set) Contains(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.names[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// Names returns the display names sorted alphabetically.
func (s *Set) Names() []string {
	if s == nil {
		return []string{}
	}
	out := make([]string, 0, len(s.names))
	for _, display := range s.names {
		out = append(out, display)
	}
	sort.Strings(out)
	return out
}

// Builder accumulates categories during a scan.
type Builder struct {
	names map[string]string
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{names: make(map[string]string)}
}

// Add folds names into the running set.
func (b *Builder) Add(names ...string) {
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		key := strings.ToLower(n)
		if _, ok := b.names[key]; ok {
			continue
		}
		b.names[key] = n
	}
}

// Set freezes the builder into a snapshot. The builder must not be reused.
func (b *Builder) Set() *Set {
	s := &Set{names: b.names}
	b.names = nil
	return s
}

// Cache is the process-wide holder of the latest category snapshot.
// Scans replace the snapshot wholesale; readers never see a partial set.
type Cache struct {
	current atomic.Pointer[Set]
}

// NewCache returns a Cache seeded with names.
func NewCache(seed ...string) *Cache {
	c := &Cache{}
	c.current.Store(NewSet(seed...))
	return c
}

// Load returns the current snapshot.
func (c *Cache) Load() *Set {
	return c.current.Load()
}

// Store replaces the snapshot.
func (c *Cache) Store(s *Set) {
	if s == nil {
		s = NewSet()
	}
	c.current.Store(s)
}

// Suggest returns the categories containing query (case-insensitive), sorted.
func (c *Cache) Suggest(query string) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	out := []string{}
	for _, name := range c.Load().Names() {
		if strings.Contains(strings.ToLower(name), q) {
			out = append(out, name)
		}
	}
	return out
}
