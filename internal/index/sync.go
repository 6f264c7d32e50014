package index

import (
	"log/slog"

	"github.com/starford/checkmark/internal/storage"
)

// Sync walks the vault and brings the metadata cache up to date:
//   - new/changed documents are parsed and upserted
//   - documents removed from disk are deleted from the cache
func Sync(db MetadataIndex, store storage.Provider, logger *slog.Logger) error {
	docs, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		disk[d.Path] = struct{}{}

		data, err := store.Read(d.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", d.Path), slog.String("error", err.Error()))
			continue
		}
		if checksums[d.Path] == storage.Checksum(data) {
			continue
		}
		if err := indexFile(db, d.Path, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", d.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", d.Path))
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteDocument(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}
