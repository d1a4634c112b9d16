package analyze

import (
	"regexp"
	"strings"
	"time"

	"github.com/Maverick-D-Aece/dirstat-pro/pkg/entry"
)

// Tag is one storage-optimization classification.
type Tag string

const (
	// TagTemp marks temporary and cache files safe to regenerate.
	TagTemp Tag = "temp"

	// TagBackup marks backup-looking files older than the configured
	// threshold.
	TagBackup Tag = "backup"

	// TagCompressible marks large text-like files that would shrink
	// under compression.
	TagCompressible Tag = "compressible"
)

// tempSuffixes match files that are regenerated rather than authored.
var tempSuffixes = []string{".tmp", ".temp", ".cache", ".log", ".swp", ".swo"}

// tempNames are exact file names left behind by desktop environments.
var tempNames = map[string]struct{}{
	".DS_Store": {},
	"Thumbs.db": {},
}

// tempDirs flag any file living under a tool-managed directory.
var tempDirs = map[string]struct{}{
	"__pycache__":   {},
	".pytest_cache": {},
	"node_modules":  {},
	".mypy_cache":   {},
}

var backupSuffixes = []string{".bak", ".backup", ".old", "~"}

// dateStampRe matches date-stamped rotation names such as dump.20240115.
var dateStampRe = regexp.MustCompile(`\.\d{8}$`)

// compressibleExts are text formats that compress well. Media and
// archive formats are deliberately absent.
var compressibleExts = map[string]struct{}{
	".txt": {}, ".log": {}, ".csv": {}, ".json": {}, ".xml": {},
	".html": {}, ".md": {}, ".yml": {}, ".yaml": {}, ".conf": {},
	".config": {}, ".ini": {}, ".sql": {}, ".tsv": {},
}

// ClassifierOptions tune the storage heuristics.
type ClassifierOptions struct {
	// BackupAgeDays is the minimum age before a backup-looking file is
	// tagged; younger ones are presumed still wanted.
	BackupAgeDays int

	// MinCompressSize is the size floor for compression candidates.
	MinCompressSize int64
}

// DefaultClassifierOptions returns the stock thresholds.
func DefaultClassifierOptions() ClassifierOptions {
	return ClassifierOptions{
		BackupAgeDays:   30,
		MinCompressSize: 1024,
	}
}

// Classifier tags entries with storage-optimization findings. The
// classification is advisory pattern matching; file contents are never
// read.
type Classifier struct {
	opts ClassifierOptions
	now  time.Time
}

// NewClassifier creates a Classifier. The current time is captured once
// so age checks are consistent across one scan.
func NewClassifier(opts ClassifierOptions) *Classifier {
	return &Classifier{opts: opts, now: time.Now()}
}

// Classify returns the tags for one entry. Directories and symlinks are
// never tagged.
func (c *Classifier) Classify(e entry.FileEntry) []Tag {
	if e.IsDir || e.IsSymlink {
		return nil
	}

	var tags []Tag
	if c.isTemp(e) {
		tags = append(tags, TagTemp)
	}
	if c.isOldBackup(e) {
		tags = append(tags, TagBackup)
	}
	if c.isCompressible(e) {
		tags = append(tags, TagCompressible)
	}
	return tags
}

func (c *Classifier) isTemp(e entry.FileEntry) bool {
	name := baseName(e.RelPath)
	if _, ok := tempNames[name]; ok {
		return true
	}
	for _, suffix := range tempSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	for _, seg := range strings.Split(e.RelPath, "/") {
		if _, ok := tempDirs[seg]; ok {
			return true
		}
	}
	return false
}

func (c *Classifier) isOldBackup(e entry.FileEntry) bool {
	name := baseName(e.RelPath)
	matched := dateStampRe.MatchString(name)
	if !matched {
		for _, suffix := range backupSuffixes {
			if strings.HasSuffix(name, suffix) {
				matched = true
				break
			}
		}
	}
	if !matched {
		return false
	}

	ageDays := int(c.now.Sub(e.ModTime).Hours() / 24)
	return ageDays >= c.opts.BackupAgeDays
}

func (c *Classifier) isCompressible(e entry.FileEntry) bool {
	if e.Size < c.opts.MinCompressSize {
		return false
	}
	_, ok := compressibleExts[e.Ext]
	return ok
}

// JoinTags renders tags for cache storage; SplitTags reverses it.
func JoinTags(tags []Tag) string {
	if len(tags) == 0 {
		return ""
	}
	parts := make([]string, len(tags))
	for i, tag := range tags {
		parts[i] = string(tag)
	}
	return strings.Join(parts, ",")
}

// SplitTags parses a cached tag string.
func SplitTags(s string) []Tag {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]Tag, len(parts))
	for i, part := range parts {
		tags[i] = Tag(part)
	}
	return tags
}

func baseName(rel string) string {
	if i := strings.LastIndexByte(rel, '/'); i >= 0 {
		return rel[i+1:]
	}
	return rel
}
