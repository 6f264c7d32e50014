// Package apperr holds the sentinel errors shared across checkmark packages.
package apperr

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// ErrStaleTask means the recorded line no longer has the expected shape.
	// Callers abort the write and let the next scan reconcile.
	ErrStaleTask   = errors.New("stale task reference")
	ErrInvalidDate = errors.New("invalid date")
)
