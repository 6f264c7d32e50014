package index

// MetadataIndex defines the cache operations used by sync, the watcher and scans.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with fakes.
type MetadataIndex interface {
	UpsertDocument(r DocumentRow) error
	GetDocument(path string) (*DocumentRow, error)
	DeleteDocument(path string) error
	GetChecksum(path string) (string, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies MetadataIndex at compile time.
var _ MetadataIndex = (*DB)(nil)
