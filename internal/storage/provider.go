// Package storage defines the document store abstraction over the vault.
package storage

import "github.com/starford/checkmark/internal/models"

// Provider is the interface for vault document operations.
// Paths are slash separated and relative to the vault root.
type Provider interface {
	// List returns metadata for every .md document under dir, in walk order.
	List(dir string) ([]models.Document, error)
	// Read returns the full text content of the document at path.
	Read(path string) ([]byte, error)
	// Write replaces the content of the document at path atomically.
	Write(path string, content []byte) error
	// Folders returns every folder in the vault, excluding the root.
	Folders() ([]string, error)
}
