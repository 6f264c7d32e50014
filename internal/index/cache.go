package index

import (
	"context"
	"errors"
	"log/slog"

	"github.com/starford/checkmark/internal/apperr"
	"github.com/starford/checkmark/internal/models"
	"github.com/starford/checkmark/internal/parser"
	"github.com/starford/checkmark/internal/storage"
)

// Cache serves document metadata from the index, re-parsing a document only
// when its checksum differs from the cached one.
type Cache struct {
	db     MetadataIndex
	logger *slog.Logger
}

// NewCache creates a metadata cache over db.
func NewCache(db MetadataIndex, logger *slog.Logger) *Cache {
	return &Cache{db: db, logger: logger}
}

// Metadata returns the tags and list item lines of the document at path
// whose current content is content. Cache failures degrade to a fresh parse.
func (c *Cache) Metadata(_ context.Context, path string, content []byte) (models.DocumentMeta, error) {
	cs := storage.Checksum(content)
	row, err := c.db.GetDocument(path)
	switch {
	case err == nil && row.Checksum == cs:
		return row.Meta(), nil
	case err != nil && !errors.Is(err, apperr.ErrNotFound):
		c.logger.Warn("cache: lookup failed", slog.String("path", path), slog.String("error", err.Error()))
	}

	fresh := buildRow(path, content, cs)
	if err := c.db.UpsertDocument(fresh); err != nil {
		c.logger.Warn("cache: store failed", slog.String("path", path), slog.String("error", err.Error()))
	}
	return fresh.Meta(), nil
}

func buildRow(path string, data []byte, cs string) DocumentRow {
	res := parser.Parse(data)
	return DocumentRow{
		Path:      path,
		Checksum:  cs,
		Tags:      nonNil(res.Tags),
		ListItems: nonNil(res.ListItems),
	}
}

// indexFile parses data and upserts it into the cache.
func indexFile(db MetadataIndex, path string, data []byte) error {
	return db.UpsertDocument(buildRow(path, data, storage.Checksum(data)))
}
