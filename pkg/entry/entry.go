// Package entry defines the immutable file records produced by traversal
// and the fingerprint key used for cache validity.
package entry

import (
	"path/filepath"
	"strings"
	"time"
)

// GitStatus classifies a file relative to the enclosing git repository.
type GitStatus string

const (
	// GitTracked marks a tracked, unmodified file
	GitTracked GitStatus = "tracked"

	// GitModified marks a tracked file with staged or unstaged changes
	GitModified GitStatus = "modified"

	// GitUntracked marks a file unknown to git
	GitUntracked GitStatus = "untracked"

	// GitUnknown is used when git integration is disabled or unavailable
	GitUnknown GitStatus = "unknown"
)

// ParseGitStatus converts a configuration string into a GitStatus.
// Unrecognized values map to GitUnknown.
func ParseGitStatus(s string) GitStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tracked":
		return GitTracked
	case "modified":
		return GitModified
	case "untracked":
		return GitUntracked
	default:
		return GitUnknown
	}
}

// FileEntry is a snapshot of one filesystem object at scan time.
// Entries are created once per traversal visit and never mutated;
// a re-scan supersedes them with fresh snapshots.
type FileEntry struct {
	// Path is the absolute path of the object
	Path string `json:"path" yaml:"path"`

	// RelPath is the slash-separated path relative to the scan root
	RelPath string `json:"relPath" yaml:"relPath"`

	// Depth is the number of path segments below the scan root
	Depth int `json:"depth" yaml:"depth"`

	// Size is the apparent size in bytes
	Size int64 `json:"size" yaml:"size"`

	// ModTime is the last modification timestamp
	ModTime time.Time `json:"modTime" yaml:"modTime"`

	// Ext is the lowercased extension including the dot, "" if none
	Ext string `json:"ext,omitempty" yaml:"ext,omitempty"`

	// IsDir reports whether the object is a directory
	IsDir bool `json:"isDir,omitempty" yaml:"isDir,omitempty"`

	// IsSymlink reports whether the object is a symbolic link
	IsSymlink bool `json:"isSymlink,omitempty" yaml:"isSymlink,omitempty"`

	// GitStatus is the git classification of the file, GitUnknown when
	// git integration is disabled
	GitStatus GitStatus `json:"gitStatus,omitempty" yaml:"gitStatus,omitempty"`
}

// NormalizeExt lowercases a file name's extension. Directories and
// extensionless names yield the empty string.
func NormalizeExt(name string) string {
	ext := filepath.Ext(name)
	if ext == "" || ext == "." {
		return ""
	}
	return strings.ToLower(ext)
}

// Fingerprint identifies one file state. Two fingerprints are equal iff
// path, size and mtime all match; it is the sole basis of cache
// validity. Coarser than a content hash on purpose: a file rewritten
// with identical size and mtime goes undetected, in exchange for never
// re-reading unchanged files.
type Fingerprint struct {
	Path    string
	Size    int64
	ModTime int64 // unix nanoseconds
}

// FingerprintOf derives the cache key for an entry.
func FingerprintOf(e FileEntry) Fingerprint {
	return Fingerprint{
		Path:    e.Path,
		Size:    e.Size,
		ModTime: e.ModTime.UnixNano(),
	}
}

// Warning records a non-fatal failure encountered during a scan.
// Warnings are attached to the report so consumers can distinguish
// complete results from best-effort partial coverage.
type Warning struct {
	// Path is the object the failure relates to
	Path string `json:"path" yaml:"path"`

	// Op names the operation that failed (readdir, stat, hash, cache)
	Op string `json:"op" yaml:"op"`

	// Message is the underlying error text
	Message string `json:"message" yaml:"message"`
}
