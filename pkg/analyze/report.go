package analyze

import (
	"sort"
	"time"

	"github.com/Maverick-D-Aece/dirstat-pro/pkg/dupes"
	"github.com/Maverick-D-Aece/dirstat-pro/pkg/entry"
)

// Report is the immutable result of one scan. Renderers consume it
// as-is; a re-scan or incremental update produces a fresh Report and
// never patches a delivered one.
type Report struct {
	Root        string    `json:"root" yaml:"root"`
	GeneratedAt time.Time `json:"generatedAt" yaml:"generatedAt"`

	Files     int64 `json:"files" yaml:"files"`
	Dirs      int64 `json:"dirs" yaml:"dirs"`
	Symlinks  int64 `json:"symlinks" yaml:"symlinks"`
	TotalSize int64 `json:"totalSize" yaml:"totalSize"`

	Extensions []ExtStat         `json:"extensions" yaml:"extensions"`
	TopFiles   []entry.FileEntry `json:"topFiles" yaml:"topFiles"`

	Duplicates       []dupes.Set `json:"duplicates,omitempty" yaml:"duplicates,omitempty"`
	DuplicateSavings int64       `json:"duplicateSavings" yaml:"duplicateSavings"`

	Storage   StorageStats              `json:"storage" yaml:"storage"`
	GitCounts map[entry.GitStatus]int64 `json:"gitCounts,omitempty" yaml:"gitCounts,omitempty"`

	// Warnings separate best-effort coverage from clean totals: every
	// subtree or file skipped on error is listed here, and Skipped
	// carries the count so consumers can tell partial coverage apart
	// without walking the list.
	Warnings []entry.Warning `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Skipped  int64           `json:"skipped" yaml:"skipped"`

	// Complete is true when nothing was skipped.
	Complete bool `json:"complete" yaml:"complete"`

	topN   int
	byPath map[string]entry.FileEntry
}

// Entries returns every reported entry ordered by path.
func (r *Report) Entries() []entry.FileEntry {
	entries := make([]entry.FileEntry, 0, len(r.byPath))
	for _, e := range r.byPath {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries
}

// buildReport freezes an accumulator into a Report.
func buildReport(root string, topN int, stats *Stats, byPath map[string]entry.FileEntry, sets []dupes.Set, warnings []entry.Warning) *Report {
	var savings int64
	for _, set := range sets {
		savings += set.Savings()
	}

	return &Report{
		Root:             root,
		GeneratedAt:      time.Now(),
		Files:            stats.Files,
		Dirs:             stats.Dirs,
		Symlinks:         stats.Symlinks,
		TotalSize:        stats.TotalSize,
		Extensions:       stats.Extensions(),
		TopFiles:         stats.TopFiles(),
		Duplicates:       sets,
		DuplicateSavings: savings,
		Storage:          stats.Storage,
		GitCounts:        stats.GitCounts(),
		Warnings:         warnings,
		Skipped:          int64(len(warnings)),
		Complete:         len(warnings) == 0,
		topN:             topN,
		byPath:           byPath,
	}
}
