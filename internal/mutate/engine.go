package mutate

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/checkmark/internal/apperr"
	"github.com/starford/checkmark/internal/storage"
)

// Engine applies task edits to documents in a store.
type Engine struct {
	Store storage.Provider
}

// NewEngine creates an Engine writing to store.
func NewEngine(store storage.Provider) *Engine {
	return &Engine{Store: store}
}

// SetStatus marks the task at path:line done or not done. The line is
// re-read and must still be a checkbox item, otherwise apperr.ErrStaleTask
// is returned and nothing is written. It returns the patched line.
func (e *Engine) SetStatus(path string, line int, done bool) (string, error) {
	return e.patch(path, line, func(s string) (string, bool) {
		return SetMarker(s, done)
	})
}

// ChangeDate replaces the last occurrence of oldDate on the task line with
// newDate. An empty oldDate appends newDate. The line must still be a
// checkbox item containing oldDate, otherwise apperr.ErrStaleTask is
// returned and nothing is written.
func (e *Engine) ChangeDate(path string, line int, oldDate, newDate string) (string, error) {
	if err := ValidateDate(newDate); err != nil {
		return "", err
	}
	return e.patch(path, line, func(s string) (string, bool) {
		if _, ok := SetMarker(s, false); !ok {
			return s, false
		}
		return ReplaceLastDate(s, oldDate, newDate)
	})
}

// ValidateDate checks that date is a real calendar date in YYYY-MM-DD form.
func ValidateDate(date string) error {
	err := validation.Validate(date,
		validation.Required,
		validation.Date("2006-01-02"),
	)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", apperr.ErrInvalidDate, date, err)
	}
	return nil
}

func (e *Engine) patch(path string, line int, edit func(string) (string, bool)) (string, error) {
	content, err := e.Store.Read(path)
	if err != nil {
		return "", fmt.Errorf("mutate: %w", err)
	}
	lines := strings.Split(string(content), "\n")
	if line < 0 || line >= len(lines) {
		return "", fmt.Errorf("mutate: %s:%d: %w", path, line, apperr.ErrStaleTask)
	}
	patched, ok := edit(lines[line])
	if !ok {
		return "", fmt.Errorf("mutate: %s:%d: %w", path, line, apperr.ErrStaleTask)
	}
	if patched == lines[line] {
		return patched, nil
	}
	lines[line] = patched
	if err := e.Store.Write(path, []byte(strings.Join(lines, "\n"))); err != nil {
		return "", fmt.Errorf("mutate: %w", err)
	}
	return patched, nil
}
