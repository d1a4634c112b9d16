/*
Package cache persists expensive per-file results between scans.

Records are keyed by path and validated against the full fingerprint
(size plus modification time). A lookup hits only when the stored
fingerprint matches exactly; any drift means the file changed and the
cached hash is stale. Writes merge: re-recording a file whose
fingerprint is unchanged keeps the fields the new record leaves empty,
while a changed fingerprint overwrites the row wholesale.

The store is SQLite via the pure-Go modernc driver, so a cache file can
be inspected with standard tooling. A store that cannot be opened or
read is treated as empty rather than fatal.
*/
package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/Maverick-D-Aece/dirstat-pro/pkg/entry"
	"github.com/Maverick-D-Aece/dirstat-pro/pkg/logger"
)

// Record is one cached per-file result. ContentHash and StorageTags are
// opaque to the store; an empty string means "not provided" on write
// and "never computed" on read.
type Record struct {
	Path        string
	Size        int64
	MTime       int64
	ContentHash string
	StorageTags string
}

// RecordOf builds the fingerprint part of a record from a file entry.
func RecordOf(e entry.FileEntry) Record {
	fp := entry.FingerprintOf(e)
	return Record{Path: fp.Path, Size: fp.Size, MTime: fp.ModTime}
}

// Store is the persistence interface used by the hashing and analysis
// layers. Implementations must be safe for concurrent use.
type Store interface {
	// Lookup returns the record for the fingerprint, or ok=false when
	// the path is unknown or its stored fingerprint differs. Read
	// failures degrade to a miss.
	Lookup(fp entry.Fingerprint) (Record, bool)

	// Put inserts or merges one record.
	Put(rec Record) error

	// Delete removes records for paths that no longer exist.
	Delete(paths []string) error

	// Close flushes and releases the store.
	Close() error
}

const recordsTableDDL = `
CREATE TABLE IF NOT EXISTS records (
    path TEXT PRIMARY KEY,
    size INTEGER NOT NULL,
    mtime INTEGER NOT NULL,
    content_hash TEXT NOT NULL DEFAULT '',
    storage_tags TEXT NOT NULL DEFAULT ''
);
`

const lookupSQL = `SELECT content_hash, storage_tags FROM records WHERE path = ? AND size = ? AND mtime = ?`

// upsertSQL keeps previously cached fields when the incoming record has
// the same fingerprint but omits them, and overwrites everything when
// the fingerprint moved.
const upsertSQL = `
INSERT INTO records (path, size, mtime, content_hash, storage_tags) VALUES (?, ?, ?, ?, ?)
ON CONFLICT(path) DO UPDATE SET
    content_hash = CASE
        WHEN records.size = excluded.size AND records.mtime = excluded.mtime AND excluded.content_hash = ''
        THEN records.content_hash
        ELSE excluded.content_hash
    END,
    storage_tags = CASE
        WHEN records.size = excluded.size AND records.mtime = excluded.mtime AND excluded.storage_tags = ''
        THEN records.storage_tags
        ELSE excluded.storage_tags
    END,
    size = excluded.size,
    mtime = excluded.mtime
`

const deleteSQL = `DELETE FROM records WHERE path = ?`

type sqliteStore struct {
	db  *sql.DB
	log logger.Logger

	mu         sync.Mutex
	lookupStmt *sql.Stmt
	upsertStmt *sql.Stmt
}

// Open opens or creates a cache database at the given path. The special
// path ":memory:" creates a transient in-process store.
func Open(path string, log logger.Logger) (Store, error) {
	if log == nil {
		log = logger.NewNop()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache at %s: %w", path, err)
	}
	// The modernc driver serializes per connection; a single connection
	// avoids table-lock errors under concurrent writers.
	db.SetMaxOpenConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(recordsTableDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}

	lookupStmt, err := db.Prepare(lookupSQL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare cache lookup: %w", err)
	}
	upsertStmt, err := db.Prepare(upsertSQL)
	if err != nil {
		lookupStmt.Close()
		db.Close()
		return nil, fmt.Errorf("failed to prepare cache upsert: %w", err)
	}

	log.WithFields(logger.Fields{"path": path}).Debug("Cache opened")

	return &sqliteStore{
		db:         db,
		log:        log,
		lookupStmt: lookupStmt,
		upsertStmt: upsertStmt,
	}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to apply pragma %q: %w", pragma, err)
		}
	}
	return nil
}

func (s *sqliteStore) Lookup(fp entry.Fingerprint) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := Record{Path: fp.Path, Size: fp.Size, MTime: fp.ModTime}
	err := s.lookupStmt.QueryRow(fp.Path, fp.Size, fp.ModTime).Scan(&rec.ContentHash, &rec.StorageTags)
	switch {
	case err == nil:
		return rec, true
	case errors.Is(err, sql.ErrNoRows):
		return Record{}, false
	default:
		s.log.WithFields(logger.Fields{
			"path":  fp.Path,
			"error": err,
		}).Warn("Cache lookup failed, treating as miss")
		return Record{}, false
	}
}

func (s *sqliteStore) Put(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.upsertStmt.Exec(rec.Path, rec.Size, rec.MTime, rec.ContentHash, rec.StorageTags); err != nil {
		return fmt.Errorf("failed to write cache record for %s: %w", rec.Path, err)
	}
	return nil
}

func (s *sqliteStore) Delete(paths []string) error {
	if len(paths) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin cache delete: %w", err)
	}
	del, err := tx.Prepare(deleteSQL)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare cache delete: %w", err)
	}
	for _, path := range paths {
		if _, err := del.Exec(path); err != nil {
			del.Close()
			tx.Rollback()
			return fmt.Errorf("failed to delete cache record for %s: %w", path, err)
		}
	}
	del.Close()
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cache delete: %w", err)
	}
	return nil
}

func (s *sqliteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lookupStmt.Close()
	s.upsertStmt.Close()
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close cache: %w", err)
	}
	return nil
}

// noopStore is used when caching is disabled or the cache file cannot
// be opened. Every lookup misses and writes vanish.
type noopStore struct{}

// NewNoop returns a store that caches nothing.
func NewNoop() Store {
	return noopStore{}
}

func (noopStore) Lookup(entry.Fingerprint) (Record, bool) { return Record{}, false }
func (noopStore) Put(Record) error                        { return nil }
func (noopStore) Delete([]string) error                   { return nil }
func (noopStore) Close() error                            { return nil }
