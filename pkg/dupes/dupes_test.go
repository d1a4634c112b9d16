package dupes

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Maverick-D-Aece/dirstat-pro/pkg/cache"
	"github.com/Maverick-D-Aece/dirstat-pro/pkg/entry"
	"github.com/Maverick-D-Aece/dirstat-pro/pkg/logger"
)

// memStore is an in-process cache.Store for tests.
type memStore struct {
	mu   sync.Mutex
	recs map[string]cache.Record
	hits int
}

func newMemStore() *memStore {
	return &memStore{recs: make(map[string]cache.Record)}
}

func (m *memStore) Lookup(fp entry.Fingerprint) (cache.Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[fp.Path]
	if !ok || rec.Size != fp.Size || rec.MTime != fp.ModTime {
		return cache.Record{}, false
	}
	m.hits++
	return rec, true
}

func (m *memStore) Put(rec cache.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs[rec.Path] = rec
	return nil
}

func (m *memStore) Delete(paths []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range paths {
		delete(m.recs, p)
	}
	return nil
}

func (m *memStore) Close() error { return nil }

func writeEntry(t *testing.T, fs afero.Fs, path, content string) entry.FileEntry {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	info, err := fs.Stat(path)
	require.NoError(t, err)
	return entry.FileEntry{
		Path:    path,
		RelPath: strings.TrimPrefix(path, "/data/"),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
}

func TestDetectBasicScenario(t *testing.T) {
	fs := afero.NewMemMapFs()
	contentX := strings.Repeat("x", 100)
	contentY := strings.Repeat("y", 100)

	entries := []entry.FileEntry{
		writeEntry(t, fs, "/data/a.txt", contentX),
		writeEntry(t, fs, "/data/b.txt", contentX),
		writeEntry(t, fs, "/data/c.txt", contentY),
	}

	d := NewDetector(Options{Workers: 2}, fs, nil, logger.NewNop())
	sets, warnings, err := d.Detect(context.Background(), entries)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	require.Len(t, sets, 1)
	set := sets[0]
	assert.Equal(t, int64(100), set.Size)
	assert.Equal(t, int64(100), set.Savings())
	require.Len(t, set.Entries, 2)
	assert.Equal(t, "/data/a.txt", set.Entries[0].Path)
	assert.Equal(t, "/data/b.txt", set.Entries[1].Path)
}

func TestDetectNoCandidates(t *testing.T) {
	fs := afero.NewMemMapFs()
	entries := []entry.FileEntry{
		writeEntry(t, fs, "/data/a.txt", "aaa"),
		writeEntry(t, fs, "/data/b.txt", "bbbb"),
	}

	d := NewDetector(Options{Workers: 1}, fs, nil, logger.NewNop())
	sets, warnings, err := d.Detect(context.Background(), entries)
	require.NoError(t, err)
	assert.Empty(t, sets)
	assert.Empty(t, warnings)
}

func TestGroupBySizeSkipsNonCandidates(t *testing.T) {
	entries := []entry.FileEntry{
		{Path: "/d", IsDir: true, Size: 10},
		{Path: "/l", IsSymlink: true, Size: 10},
		{Path: "/empty", Size: 0},
		{Path: "/f1", Size: 10},
		{Path: "/f2", Size: 10},
	}

	groups := GroupBySize(entries)
	require.Len(t, groups, 1)
	assert.Len(t, groups[10], 2)
}

func TestDetectIdempotent(t *testing.T) {
	fs := afero.NewMemMapFs()
	var entries []entry.FileEntry
	for i := 0; i < 4; i++ {
		entries = append(entries, writeEntry(t, fs, fmt.Sprintf("/data/dup%d.bin", i), strings.Repeat("z", 64)))
	}
	entries = append(entries, writeEntry(t, fs, "/data/other.bin", strings.Repeat("w", 64)))

	d := NewDetector(Options{Workers: 4}, fs, nil, logger.NewNop())
	first, _, err := d.Detect(context.Background(), entries)
	require.NoError(t, err)
	second, _, err := d.Detect(context.Background(), entries)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Len(t, first, 1)
	assert.Equal(t, int64(3*64), first[0].Savings())
}

func TestDetectUsesCache(t *testing.T) {
	fs := afero.NewMemMapFs()
	contentX := strings.Repeat("x", 100)
	entries := []entry.FileEntry{
		writeEntry(t, fs, "/data/a.txt", contentX),
		writeEntry(t, fs, "/data/b.txt", contentX),
	}

	store := newMemStore()
	d := NewDetector(Options{Workers: 1}, fs, store, logger.NewNop())

	_, _, err := d.Detect(context.Background(), entries)
	require.NoError(t, err)
	assert.Len(t, store.recs, 2)

	// Second run must resolve both hashes from the cache.
	store.hits = 0
	_, _, err = d.Detect(context.Background(), entries)
	require.NoError(t, err)
	assert.Equal(t, 2, store.hits)
}

func TestDetectStaleCacheIgnored(t *testing.T) {
	fs := afero.NewMemMapFs()
	contentX := strings.Repeat("x", 100)
	a := writeEntry(t, fs, "/data/a.txt", contentX)
	b := writeEntry(t, fs, "/data/b.txt", contentX)

	store := newMemStore()
	// Poison the cache under a different fingerprint; it must not be
	// served for the current one.
	require.NoError(t, store.Put(cache.Record{
		Path:        a.Path,
		Size:        a.Size,
		MTime:       a.ModTime.Add(time.Hour).UnixNano(),
		ContentHash: "stale",
	}))

	d := NewDetector(Options{Workers: 1}, fs, store, logger.NewNop())
	sets, _, err := d.Detect(context.Background(), []entry.FileEntry{a, b})
	require.NoError(t, err)
	require.Len(t, sets, 1)
	assert.NotEqual(t, "stale", sets[0].Hash)
}

func TestDetectSamplingAboveCeiling(t *testing.T) {
	fs := afero.NewMemMapFs()
	big := strings.Repeat("q", 4096)
	entries := []entry.FileEntry{
		writeEntry(t, fs, "/data/big1.bin", big),
		writeEntry(t, fs, "/data/big2.bin", big),
	}

	d := NewDetector(Options{Workers: 1, SampleCeiling: 1024}, fs, nil, logger.NewNop())
	sets, _, err := d.Detect(context.Background(), entries)
	require.NoError(t, err)
	require.Len(t, sets, 1)
	assert.True(t, strings.HasPrefix(sets[0].Hash, samplePrefix))
}

func TestDetectHashErrorBecomesWarning(t *testing.T) {
	fs := afero.NewMemMapFs()
	contentX := strings.Repeat("x", 100)
	a := writeEntry(t, fs, "/data/a.txt", contentX)
	b := writeEntry(t, fs, "/data/b.txt", contentX)
	ghost := entry.FileEntry{Path: "/data/ghost.txt", Size: 100, ModTime: time.Now()}

	d := NewDetector(Options{Workers: 1}, fs, nil, logger.NewNop())
	sets, warnings, err := d.Detect(context.Background(), []entry.FileEntry{a, b, ghost})
	require.NoError(t, err)

	require.Len(t, warnings, 1)
	assert.Equal(t, "/data/ghost.txt", warnings[0].Path)
	assert.Equal(t, "hash", warnings[0].Op)

	require.Len(t, sets, 1)
	assert.Len(t, sets[0].Entries, 2)
}

func TestDetectCancellation(t *testing.T) {
	fs := afero.NewMemMapFs()
	contentX := strings.Repeat("x", 100)
	entries := []entry.FileEntry{
		writeEntry(t, fs, "/data/a.txt", contentX),
		writeEntry(t, fs, "/data/b.txt", contentX),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDetector(Options{Workers: 1}, fs, nil, logger.NewNop())
	sets, _, err := d.Detect(ctx, entries)
	assert.Nil(t, sets)
	assert.ErrorIs(t, err, context.Canceled)
}
