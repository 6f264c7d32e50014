package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/checkmark/internal/apperr"
	"github.com/starford/checkmark/internal/models"
)

// DocumentRow represents a row in the documents table.
type DocumentRow struct {
	Path      string
	Checksum  string
	Tags      []string
	ListItems []int
	UpdatedAt time.Time
}

// Meta converts the row into the cache view consumed by scans.
func (r DocumentRow) Meta() models.DocumentMeta {
	return models.DocumentMeta{Path: r.Path, Tags: r.Tags, ListItems: r.ListItems}
}

// UpsertDocument inserts or replaces the cached metadata of a document.
func (db *DB) UpsertDocument(r DocumentRow) error {
	tagsJSON, err := json.Marshal(nonNil(r.Tags))
	if err != nil {
		return fmt.Errorf("index: marshal tags: %w", err)
	}
	itemsJSON, err := json.Marshal(nonNil(r.ListItems))
	if err != nil {
		return fmt.Errorf("index: marshal list items: %w", err)
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now()
	}
	_, err = db.conn.Exec(`
		INSERT INTO documents (path, checksum, tags, list_items, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			checksum   = excluded.checksum,
			tags       = excluded.tags,
			list_items = excluded.list_items,
			updated_at = excluded.updated_at
	`, r.Path, r.Checksum, string(tagsJSON), string(itemsJSON), r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert document: %w", err)
	}
	return nil
}

// GetDocument returns the cached row for path, or apperr.ErrNotFound.
func (db *DB) GetDocument(path string) (*DocumentRow, error) {
	var (
		r                  DocumentRow
		tagsJSON, itemsJSON string
	)
	err := db.conn.QueryRow(`
		SELECT path, checksum, tags, list_items, updated_at
		FROM documents WHERE path = ?
	`, path).Scan(&r.Path, &r.Checksum, &tagsJSON, &itemsJSON, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get document: %w", err)
	}
	if err := json.Unmarshal([]byte(tagsJSON), &r.Tags); err != nil {
		return nil, fmt.Errorf("index: decode tags: %w", err)
	}
	if err := json.Unmarshal([]byte(itemsJSON), &r.ListItems); err != nil {
		return nil, fmt.Errorf("index: decode list items: %w", err)
	}
	return &r, nil
}

// DeleteDocument removes the cached metadata of a document.
func (db *DB) DeleteDocument(path string) error {
	if _, err := db.conn.Exec(`DELETE FROM documents WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete document: %w", err)
	}
	return nil
}

// GetChecksum returns the stored checksum for a document, or empty string if not cached.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM documents WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums returns path -> checksum for every cached document.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
