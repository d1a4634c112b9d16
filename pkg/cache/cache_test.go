package cache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Maverick-D-Aece/dirstat-pro/pkg/entry"
	"github.com/Maverick-D-Aece/dirstat-pro/pkg/logger"
)

func openTestStore(t *testing.T) Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "cache.db"), logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestLookupMissOnUnknownPath(t *testing.T) {
	store := openTestStore(t)

	_, ok := store.Lookup(entry.Fingerprint{Path: "/a.txt", Size: 10, ModTime: 100})
	assert.False(t, ok)
}

func TestPutThenLookup(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Put(Record{
		Path:        "/a.txt",
		Size:        10,
		MTime:       100,
		ContentHash: "abc123",
		StorageTags: "temp",
	}))

	rec, ok := store.Lookup(entry.Fingerprint{Path: "/a.txt", Size: 10, ModTime: 100})
	require.True(t, ok)
	assert.Equal(t, "abc123", rec.ContentHash)
	assert.Equal(t, "temp", rec.StorageTags)
}

func TestLookupMissOnFingerprintDrift(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Put(Record{Path: "/a.txt", Size: 10, MTime: 100, ContentHash: "abc"}))

	_, ok := store.Lookup(entry.Fingerprint{Path: "/a.txt", Size: 11, ModTime: 100})
	assert.False(t, ok, "size change must invalidate")

	_, ok = store.Lookup(entry.Fingerprint{Path: "/a.txt", Size: 10, ModTime: 101})
	assert.False(t, ok, "mtime change must invalidate")
}

func TestPutMergeKeepsOmittedFields(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Put(Record{Path: "/a.txt", Size: 10, MTime: 100, ContentHash: "abc"}))

	// Same fingerprint, only tags supplied: the hash must survive.
	require.NoError(t, store.Put(Record{Path: "/a.txt", Size: 10, MTime: 100, StorageTags: "backup"}))

	rec, ok := store.Lookup(entry.Fingerprint{Path: "/a.txt", Size: 10, ModTime: 100})
	require.True(t, ok)
	assert.Equal(t, "abc", rec.ContentHash)
	assert.Equal(t, "backup", rec.StorageTags)
}

func TestPutOverwritesOnFingerprintChange(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Put(Record{Path: "/a.txt", Size: 10, MTime: 100, ContentHash: "abc", StorageTags: "temp"}))

	// New fingerprint with no hash: the stale hash must not survive.
	require.NoError(t, store.Put(Record{Path: "/a.txt", Size: 20, MTime: 200}))

	rec, ok := store.Lookup(entry.Fingerprint{Path: "/a.txt", Size: 20, ModTime: 200})
	require.True(t, ok)
	assert.Empty(t, rec.ContentHash)
	assert.Empty(t, rec.StorageTags)

	_, ok = store.Lookup(entry.Fingerprint{Path: "/a.txt", Size: 10, ModTime: 100})
	assert.False(t, ok)
}

func TestDelete(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Put(Record{Path: "/a.txt", Size: 10, MTime: 100, ContentHash: "a"}))
	require.NoError(t, store.Put(Record{Path: "/b.txt", Size: 20, MTime: 200, ContentHash: "b"}))

	require.NoError(t, store.Delete([]string{"/a.txt", "/missing.txt"}))

	_, ok := store.Lookup(entry.Fingerprint{Path: "/a.txt", Size: 10, ModTime: 100})
	assert.False(t, ok)
	_, ok = store.Lookup(entry.Fingerprint{Path: "/b.txt", Size: 20, ModTime: 200})
	assert.True(t, ok)
}

func TestPersistenceAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	store, err := Open(path, logger.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.Put(Record{Path: "/a.txt", Size: 10, MTime: 100, ContentHash: "abc"}))
	require.NoError(t, store.Close())

	store, err = Open(path, logger.NewNop())
	require.NoError(t, err)
	defer store.Close()

	rec, ok := store.Lookup(entry.Fingerprint{Path: "/a.txt", Size: 10, ModTime: 100})
	require.True(t, ok)
	assert.Equal(t, "abc", rec.ContentHash)
}

func TestRecordOf(t *testing.T) {
	e := entry.FileEntry{Path: "/a.txt", Size: 42}
	rec := RecordOf(e)
	assert.Equal(t, "/a.txt", rec.Path)
	assert.Equal(t, int64(42), rec.Size)
	assert.Equal(t, e.ModTime.UnixNano(), rec.MTime)
}

func TestNoopStore(t *testing.T) {
	store := NewNoop()
	assert.NoError(t, store.Put(Record{Path: "/a.txt", Size: 1, MTime: 1, ContentHash: "x"}))
	_, ok := store.Lookup(entry.Fingerprint{Path: "/a.txt", Size: 1, ModTime: 1})
	assert.False(t, ok)
	assert.NoError(t, store.Delete([]string{"/a.txt"}))
	assert.NoError(t, store.Close())
}

func TestConcurrentPuts(t *testing.T) {
	store := openTestStore(t)

	done := make(chan error, 8)
	for g := 0; g < 8; g++ {
		go func(g int) {
			var err error
			for i := 0; i < 25; i++ {
				err = store.Put(Record{
					Path:        filepath.Join("/dir", string(rune('a'+g)), "file.txt"),
					Size:        int64(i),
					MTime:       int64(i),
					ContentHash: "h",
				})
				if err != nil {
					break
				}
			}
			done <- err
		}(g)
	}
	for g := 0; g < 8; g++ {
		assert.NoError(t, <-done)
	}
}
