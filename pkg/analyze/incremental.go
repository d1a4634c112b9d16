package analyze

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/Maverick-D-Aece/dirstat-pro/pkg/dupes"
	"github.com/Maverick-D-Aece/dirstat-pro/pkg/entry"
	"github.com/Maverick-D-Aece/dirstat-pro/pkg/logger"
)

// IncrementalUpdate folds a batch of changed paths into a previous
// Report and returns a fresh one. A path that no longer exists drops
// out, together with anything beneath it; one that does is re-stated
// and re-filtered. Totals and top-N are refolded from the retained and
// changed partition rather than patched, and duplicate sets are
// recomputed only for the size groups a change touched.
//
// An empty changed set returns the previous Report unchanged.
func (a *Analyzer) IncrementalUpdate(ctx context.Context, prev *Report, changed []string) (*Report, error) {
	if len(changed) == 0 {
		return prev, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	changedSet := make(map[string]struct{}, len(changed))
	for _, path := range changed {
		changedSet[filepath.Clean(path)] = struct{}{}
	}

	// Sizes touched on either side of the change decide which
	// duplicate groups need a second look.
	affectedSizes := make(map[int64]struct{})
	var removedPaths []string

	byPath := make(map[string]entry.FileEntry, len(prev.byPath))
	for path, e := range prev.byPath {
		if underAny(path, changedSet) {
			if !e.IsDir && e.Size > 0 {
				affectedSizes[e.Size] = struct{}{}
			}
			continue
		}
		byPath[path] = e
	}

	var newWarnings []entry.Warning

	for path := range changedSet {
		e, ok, err := a.restat(prev.Root, path)
		if err != nil {
			if os.IsNotExist(err) {
				removedPaths = append(removedPaths, path)
				continue
			}
			a.log.WithFields(logger.Fields{
				"path":  path,
				"error": err,
			}).Warn("Failed to re-stat changed path")
			newWarnings = append(newWarnings, entry.Warning{Path: path, Op: "stat", Message: err.Error()})
			removedPaths = append(removedPaths, path)
			continue
		}
		if !ok {
			// Outside the scan root or rejected by the filter.
			continue
		}
		byPath[e.Path] = e
		if !e.IsDir && e.Size > 0 {
			affectedSizes[e.Size] = struct{}{}
		}
	}

	if len(removedPaths) > 0 {
		if err := a.store.Delete(removedPaths); err != nil {
			a.log.WithFields(logger.Fields{"error": err}).Warn("Failed to evict removed paths from cache")
		}
	}

	// Prior warnings survive only while they still describe the tree:
	// anything under a changed path was just re-examined, and hash
	// warnings for recomputed size groups are re-reported by redetect
	// if the file still cannot be read.
	warnings := retainWarnings(prev.Warnings, changedSet, affectedSizes, byPath)
	warnings = append(warnings, newWarnings...)

	stats := NewStats(prev.topN)
	for _, e := range byPath {
		tags, cached := a.cachedTags(e)
		if !cached {
			tags = a.classifier.Classify(e)
			a.cacheTags(e, tags)
		}
		stats.Add(e, tags)
	}

	sets := prev.Duplicates
	if a.opts.DetectDupes && len(affectedSizes) > 0 {
		var err error
		sets, warnings, err = a.redetect(ctx, prev, byPath, affectedSizes, warnings)
		if err != nil {
			return nil, err
		}
	}

	return buildReport(prev.Root, prev.topN, stats, byPath, sets, warnings), nil
}

// redetect recomputes duplicate sets for the affected size groups and
// splices them into the untouched ones.
func (a *Analyzer) redetect(ctx context.Context, prev *Report, byPath map[string]entry.FileEntry, affectedSizes map[int64]struct{}, warnings []entry.Warning) ([]dupes.Set, []entry.Warning, error) {
	groups := make(map[int64][]entry.FileEntry)
	for _, e := range byPath {
		if e.IsDir || e.IsSymlink || e.Size == 0 {
			continue
		}
		if _, ok := affectedSizes[e.Size]; ok {
			groups[e.Size] = append(groups[e.Size], e)
		}
	}

	fresh, dupWarnings, err := a.detector.DetectGroups(ctx, groups)
	if err != nil {
		return nil, nil, err
	}
	warnings = append(warnings, dupWarnings...)

	var sets []dupes.Set
	for _, set := range prev.Duplicates {
		if _, ok := affectedSizes[set.Size]; !ok {
			sets = append(sets, set)
		}
	}
	sets = append(sets, fresh...)
	dupes.Sort(sets)
	return sets, warnings, nil
}

// restat rebuilds the FileEntry for one absolute path. ok is false when
// the path falls outside the scan root or the filter rejects it.
func (a *Analyzer) restat(root, path string) (entry.FileEntry, bool, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return entry.FileEntry{}, false, nil
	}
	rel = filepath.ToSlash(rel)

	// Traversal reports symlinks themselves, never their targets, so
	// the re-stat must not follow them either.
	var info os.FileInfo
	if lst, ok := a.fs.(afero.Lstater); ok {
		info, _, err = lst.LstatIfPossible(path)
	} else {
		info, err = a.fs.Stat(path)
	}
	if err != nil {
		return entry.FileEntry{}, false, err
	}

	e := entry.FileEntry{
		Path:      path,
		RelPath:   rel,
		Depth:     strings.Count(rel, "/") + 1,
		Size:      info.Size(),
		ModTime:   info.ModTime(),
		IsDir:     info.IsDir(),
		IsSymlink: info.Mode()&os.ModeSymlink != 0,
		GitStatus: entry.GitUnknown,
	}
	if !e.IsDir {
		e.Ext = entry.NormalizeExt(info.Name())
		if a.git != nil {
			e.GitStatus = a.git.StatusOf(rel)
		}
	}

	if a.flt != nil && !a.flt.Match(e) {
		return entry.FileEntry{}, false, nil
	}
	return e, true, nil
}

// retainWarnings filters a previous Report's warnings down to the ones
// the current update did not supersede.
func retainWarnings(prev []entry.Warning, changedSet map[string]struct{}, affectedSizes map[int64]struct{}, byPath map[string]entry.FileEntry) []entry.Warning {
	var kept []entry.Warning
	for _, w := range prev {
		path := filepath.Clean(w.Path)
		if underAny(path, changedSet) {
			continue
		}
		if w.Op == "hash" {
			if e, ok := byPath[path]; ok {
				if _, touched := affectedSizes[e.Size]; touched {
					continue
				}
			}
		}
		kept = append(kept, w)
	}
	return kept
}

// underAny reports whether path is one of the changed paths or lives
// beneath one, which covers removed directories.
func underAny(path string, changedSet map[string]struct{}) bool {
	if _, ok := changedSet[path]; ok {
		return true
	}
	for changed := range changedSet {
		if strings.HasPrefix(path, changed+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
