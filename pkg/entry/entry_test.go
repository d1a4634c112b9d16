package entry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeExt(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase", "report.txt", ".txt"},
		{"uppercase", "PHOTO.JPG", ".jpg"},
		{"mixed", "archive.Tar", ".tar"},
		{"none", "Makefile", ""},
		{"trailing dot", "weird.", ""},
		{"dotfile", ".bashrc", ".bashrc"},
		{"multiple dots", "bundle.tar.gz", ".gz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeExt(tt.in))
		})
	}
}

func TestFingerprintEquality(t *testing.T) {
	mod := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	base := FileEntry{Path: "/data/a.txt", Size: 100, ModTime: mod}

	same := FileEntry{Path: "/data/a.txt", Size: 100, ModTime: mod}
	assert.Equal(t, FingerprintOf(base), FingerprintOf(same))

	grown := base
	grown.Size = 101
	assert.NotEqual(t, FingerprintOf(base), FingerprintOf(grown))

	touched := base
	touched.ModTime = mod.Add(time.Nanosecond)
	assert.NotEqual(t, FingerprintOf(base), FingerprintOf(touched))

	moved := base
	moved.Path = "/data/b.txt"
	assert.NotEqual(t, FingerprintOf(base), FingerprintOf(moved))
}

func TestParseGitStatus(t *testing.T) {
	assert.Equal(t, GitTracked, ParseGitStatus("tracked"))
	assert.Equal(t, GitModified, ParseGitStatus(" Modified "))
	assert.Equal(t, GitUntracked, ParseGitStatus("UNTRACKED"))
	assert.Equal(t, GitUnknown, ParseGitStatus("staged"))
	assert.Equal(t, GitUnknown, ParseGitStatus(""))
}
