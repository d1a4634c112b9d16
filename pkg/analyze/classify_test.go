package analyze

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Maverick-D-Aece/dirstat-pro/pkg/entry"
)

func fileEntry(rel, ext string, size int64, age time.Duration) entry.FileEntry {
	return entry.FileEntry{
		Path:    "/data/" + rel,
		RelPath: rel,
		Ext:     ext,
		Size:    size,
		ModTime: time.Now().Add(-age),
	}
}

func TestClassifyTemp(t *testing.T) {
	c := NewClassifier(DefaultClassifierOptions())

	tests := []struct {
		name string
		e    entry.FileEntry
		temp bool
	}{
		{"tmp suffix", fileEntry("build/out.tmp", ".tmp", 10, 0), true},
		{"cache suffix", fileEntry("data.cache", ".cache", 10, 0), true},
		{"ds store", fileEntry("photos/.DS_Store", "", 10, 0), true},
		{"thumbs", fileEntry("photos/Thumbs.db", ".db", 10, 0), true},
		{"pycache dir", fileEntry("src/__pycache__/mod.pyc", ".pyc", 10, 0), true},
		{"node modules", fileEntry("web/node_modules/pkg/index.js", ".js", 10, 0), true},
		{"regular source", fileEntry("src/main.go", ".go", 10, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.temp, contains(c.Classify(tt.e), TagTemp))
		})
	}
}

func TestClassifyBackupNeedsAge(t *testing.T) {
	c := NewClassifier(DefaultClassifierOptions())

	old := 40 * 24 * time.Hour
	young := 5 * 24 * time.Hour

	assert.True(t, contains(c.Classify(fileEntry("db.bak", ".bak", 10, old)), TagBackup))
	assert.True(t, contains(c.Classify(fileEntry("notes.txt~", "", 10, old)), TagBackup))
	assert.True(t, contains(c.Classify(fileEntry("dump.20240115", ".20240115", 10, old)), TagBackup))
	assert.False(t, contains(c.Classify(fileEntry("db.bak", ".bak", 10, young)), TagBackup), "recent backups are kept")
	assert.False(t, contains(c.Classify(fileEntry("db.sqlite", ".sqlite", 10, old)), TagBackup))
}

func TestClassifyCompressible(t *testing.T) {
	c := NewClassifier(DefaultClassifierOptions())

	assert.True(t, contains(c.Classify(fileEntry("big.json", ".json", 4096, 0)), TagCompressible))
	assert.False(t, contains(c.Classify(fileEntry("small.json", ".json", 100, 0)), TagCompressible), "below the size floor")
	assert.False(t, contains(c.Classify(fileEntry("movie.mp4", ".mp4", 1<<20, 0)), TagCompressible), "already compressed format")
}

func TestClassifyMultipleTags(t *testing.T) {
	c := NewClassifier(DefaultClassifierOptions())

	tags := c.Classify(fileEntry("server.log", ".log", 8192, 0))
	assert.Contains(t, tags, TagTemp)
	assert.Contains(t, tags, TagCompressible)
}

func TestClassifySkipsDirsAndSymlinks(t *testing.T) {
	c := NewClassifier(DefaultClassifierOptions())

	assert.Nil(t, c.Classify(entry.FileEntry{RelPath: "x.tmp", IsDir: true}))
	assert.Nil(t, c.Classify(entry.FileEntry{RelPath: "x.tmp", IsSymlink: true}))
}

func TestJoinSplitTags(t *testing.T) {
	tags := []Tag{TagTemp, TagCompressible}
	assert.Equal(t, "temp,compressible", JoinTags(tags))
	assert.Equal(t, tags, SplitTags("temp,compressible"))
	assert.Empty(t, JoinTags(nil))
	assert.Nil(t, SplitTags(""))
}

func contains(tags []Tag, want Tag) bool {
	for _, tag := range tags {
		if tag == want {
			return true
		}
	}
	return false
}
