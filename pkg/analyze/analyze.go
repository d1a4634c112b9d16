/*
Package analyze turns a filtered entry stream into a Report.

The Analyzer wires the full pipeline: traversal fans entries out to
per-worker accumulators, the storage classifier tags each file as it
passes, partial accumulators merge pairwise, and duplicate detection
runs over the collected files. Expensive derivations (content hashes,
tags) round-trip through the fingerprint cache.
*/
package analyze

import (
	"context"
	"sync"

	"github.com/spf13/afero"

	"github.com/Maverick-D-Aece/dirstat-pro/pkg/cache"
	"github.com/Maverick-D-Aece/dirstat-pro/pkg/dupes"
	"github.com/Maverick-D-Aece/dirstat-pro/pkg/entry"
	"github.com/Maverick-D-Aece/dirstat-pro/pkg/filter"
	"github.com/Maverick-D-Aece/dirstat-pro/pkg/gitstatus"
	"github.com/Maverick-D-Aece/dirstat-pro/pkg/logger"
	"github.com/Maverick-D-Aece/dirstat-pro/pkg/traverse"
	"github.com/Maverick-D-Aece/dirstat-pro/pkg/worker"
)

// Options configures one Analyzer.
type Options struct {
	// TopN is the number of largest files retained in the Report.
	TopN int

	// Workers bounds traversal, folding and hashing concurrency;
	// worker.AutoWorkers resolves to the available parallelism.
	Workers int

	// MaxDepth prunes traversal; filter.Unlimited disables it.
	MaxDepth int

	// DetectDupes enables content-hash duplicate detection.
	DetectDupes bool

	// SampleCeiling switches files above this size to sampling digests
	// during duplicate detection; zero keeps full-content hashing.
	SampleCeiling int64

	// RateLimit bounds duplicate-hashing task starts per second;
	// zero disables the limit.
	RateLimit int

	// Classifier tunes the storage heuristics.
	Classifier ClassifierOptions

	// OnEntry, when set, observes every accepted entry as it is folded.
	// Called from several goroutines at once; implementations must be
	// safe for concurrent use.
	OnEntry func(e entry.FileEntry)
}

// Analyzer runs scans and incremental updates over one filesystem.
type Analyzer struct {
	opts       Options
	fs         afero.Fs
	flt        *filter.Filter
	git        *gitstatus.Summary
	store      cache.Store
	walker     traverse.Walker
	detector   *dupes.Detector
	classifier *Classifier
	log        logger.Logger
}

// New assembles an Analyzer. The git summary may be nil and the store
// may be cache.NewNoop().
func New(opts Options, fs afero.Fs, flt *filter.Filter, git *gitstatus.Summary, store cache.Store, log logger.Logger) *Analyzer {
	if store == nil {
		store = cache.NewNoop()
	}
	if log == nil {
		log = logger.NewNop()
	}
	walker := traverse.NewWalker(traverse.Options{
		Workers:  opts.Workers,
		MaxDepth: opts.MaxDepth,
	}, fs, flt, git, log)
	detector := dupes.NewDetector(dupes.Options{
		Workers:       opts.Workers,
		SampleCeiling: opts.SampleCeiling,
		RateLimit:     opts.RateLimit,
	}, fs, store, log)

	return &Analyzer{
		opts:       opts,
		fs:         fs,
		flt:        flt,
		git:        git,
		store:      store,
		walker:     walker,
		detector:   detector,
		classifier: NewClassifier(opts.Classifier),
		log:        log,
	}
}

// Scan walks the root and produces a complete Report. Cancellation
// discards all partial work and returns the context error; a Scan never
// yields a truncated Report.
func (a *Analyzer) Scan(ctx context.Context, root string) (*Report, error) {
	stream, err := a.walker.Stream(ctx, root)
	if err != nil {
		return nil, err
	}

	folders := worker.ResolveWorkers(a.opts.Workers)
	partials := make([]*Stats, folders)
	partialPaths := make([]map[string]entry.FileEntry, folders)

	var wg sync.WaitGroup
	for i := 0; i < folders; i++ {
		i := i
		partials[i] = NewStats(a.opts.TopN)
		partialPaths[i] = make(map[string]entry.FileEntry)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for e := range stream.C {
				tags, cached := a.cachedTags(e)
				if !cached {
					tags = a.classifier.Classify(e)
					a.cacheTags(e, tags)
				}
				partials[i].Add(e, tags)
				partialPaths[i][e.Path] = e
				if a.opts.OnEntry != nil {
					a.opts.OnEntry(e)
				}
			}
		}()
	}
	wg.Wait()

	warnings, err := stream.Wait()
	if err != nil {
		return nil, err
	}

	stats := partials[0]
	byPath := partialPaths[0]
	for i := 1; i < folders; i++ {
		stats.Merge(partials[i])
		for path, e := range partialPaths[i] {
			byPath[path] = e
		}
	}

	var sets []dupes.Set
	if a.opts.DetectDupes {
		var dupWarnings []entry.Warning
		sets, dupWarnings, err = a.detector.Detect(ctx, flatten(byPath))
		if err != nil {
			return nil, err
		}
		warnings = append(warnings, dupWarnings...)
	}

	report := buildReport(root, a.opts.TopN, stats, byPath, sets, warnings)

	a.log.WithFields(logger.Fields{
		"root":     root,
		"files":    report.Files,
		"dirs":     report.Dirs,
		"size":     report.TotalSize,
		"dupeSets": len(report.Duplicates),
		"warnings": len(report.Warnings),
	}).Info("Scan complete")

	return report, nil
}

// cachedTags returns the classification stored under the entry's
// current fingerprint, skipping the pattern walk for unchanged files.
func (a *Analyzer) cachedTags(e entry.FileEntry) ([]Tag, bool) {
	if e.IsDir || e.IsSymlink {
		return nil, false
	}
	rec, ok := a.store.Lookup(entry.FingerprintOf(e))
	if !ok || rec.StorageTags == "" {
		return nil, false
	}
	return SplitTags(rec.StorageTags), true
}

// cacheTags records non-empty classifications so renderers of cached
// data can reuse them. The merge upsert keeps any content hash already
// stored under the same fingerprint.
func (a *Analyzer) cacheTags(e entry.FileEntry, tags []Tag) {
	if len(tags) == 0 || e.IsDir || e.IsSymlink {
		return
	}
	rec := cache.RecordOf(e)
	rec.StorageTags = JoinTags(tags)
	if err := a.store.Put(rec); err != nil {
		a.log.WithFields(logger.Fields{
			"path":  e.Path,
			"error": err,
		}).Warn("Failed to cache storage tags")
	}
}

func flatten(byPath map[string]entry.FileEntry) []entry.FileEntry {
	entries := make([]entry.FileEntry, 0, len(byPath))
	for _, e := range byPath {
		entries = append(entries, e)
	}
	return entries
}
