/*
Package dupes finds files with identical content.

Detection runs in two stages. Files are first bucketed by exact size;
a size that occurs once cannot have a duplicate, so those buckets are
dropped without any reading. Surviving buckets are hashed with SHA-256
in fixed-size chunks, consulting the fingerprint cache before touching
file contents, and sub-grouped by digest. Buckets are independent, so
hashing fans out across a worker pool.

Files above a configurable ceiling may be compared by a sampling digest
(first and last chunk plus the size) instead of full content. Sampled
digests carry a distinguishing prefix so a cached sample is never
mistaken for a full-content hash.
*/
package dupes

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/Maverick-D-Aece/dirstat-pro/pkg/cache"
	"github.com/Maverick-D-Aece/dirstat-pro/pkg/entry"
	"github.com/Maverick-D-Aece/dirstat-pro/pkg/logger"
	"github.com/Maverick-D-Aece/dirstat-pro/pkg/worker"
)

// chunkSize is the read granularity for hashing; files are never held
// in memory whole.
const chunkSize = 64 * 1024

// samplePrefix marks digests computed from a sample rather than full
// content.
const samplePrefix = "sample:"

// Set is one group of files sharing a content hash. Entries are sorted
// by path and there are always at least two of them.
type Set struct {
	Hash    string            `json:"hash" yaml:"hash"`
	Size    int64             `json:"size" yaml:"size"`
	Entries []entry.FileEntry `json:"entries" yaml:"entries"`
}

// Savings is the space reclaimable by keeping one copy.
func (s Set) Savings() int64 {
	return int64(len(s.Entries)-1) * s.Size
}

// Options configures detection.
type Options struct {
	// Workers bounds concurrent hashing; worker.AutoWorkers resolves to
	// the available parallelism.
	Workers int

	// SampleCeiling switches files larger than this to sampling
	// digests. Zero hashes full content regardless of size.
	SampleCeiling int64

	// RateLimit bounds hashing task starts per second; zero disables it.
	RateLimit int
}

// Detector finds duplicate sets among scanned entries.
type Detector struct {
	opts  Options
	fs    afero.Fs
	store cache.Store
	log   logger.Logger
}

// NewDetector creates a Detector. The cache store may be cache.NewNoop()
// to disable hash reuse.
func NewDetector(opts Options, fs afero.Fs, store cache.Store, log logger.Logger) *Detector {
	if store == nil {
		store = cache.NewNoop()
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Detector{opts: opts, fs: fs, store: store, log: log}
}

// GroupBySize buckets regular files by size. Directories, symlinks and
// empty files are never duplicate candidates.
func GroupBySize(entries []entry.FileEntry) map[int64][]entry.FileEntry {
	groups := make(map[int64][]entry.FileEntry)
	for _, e := range entries {
		if e.IsDir || e.IsSymlink || e.Size == 0 {
			continue
		}
		groups[e.Size] = append(groups[e.Size], e)
	}
	return groups
}

// Detect runs full detection over the given entries. Hashing failures
// exclude the affected file and surface as warnings; only cancellation
// fails the call.
func (d *Detector) Detect(ctx context.Context, entries []entry.FileEntry) ([]Set, []entry.Warning, error) {
	return d.DetectGroups(ctx, GroupBySize(entries))
}

// DetectGroups runs detection over pre-built size groups. The
// incremental path uses this to re-examine only affected sizes.
func (d *Detector) DetectGroups(ctx context.Context, groups map[int64][]entry.FileEntry) ([]Set, []entry.Warning, error) {
	candidates := 0
	eligible := make(map[int64][]entry.FileEntry, len(groups))
	for size, group := range groups {
		if len(group) < 2 {
			continue
		}
		eligible[size] = group
		candidates += len(group)
	}
	if len(eligible) == 0 {
		return nil, nil, nil
	}

	d.log.WithFields(logger.Fields{
		"sizeGroups": len(eligible),
		"candidates": candidates,
	}).Debug("Starting duplicate detection")

	pool, err := worker.NewPool(worker.Config{
		Workers:   d.opts.Workers,
		RateLimit: d.opts.RateLimit,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := pool.Start(ctx); err != nil {
		return nil, nil, err
	}
	defer pool.Stop()

	id := 0
	for size, group := range eligible {
		size, group := size, group
		id++
		task := worker.Task{
			ID: id,
			Execute: func(ctx context.Context) (worker.Result, error) {
				sets, warnings := d.hashGroup(ctx, size, group)
				return worker.Result{Data: groupResult{sets: sets, warnings: warnings}}, nil
			},
		}
		if err := pool.Submit(task); err != nil {
			return nil, nil, err
		}
	}

	results, err := pool.Wait()
	if err != nil {
		return nil, nil, err
	}

	var sets []Set
	var warnings []entry.Warning
	for _, res := range results {
		gr, ok := res.Data.(groupResult)
		if !ok {
			continue
		}
		sets = append(sets, gr.sets...)
		warnings = append(warnings, gr.warnings...)
	}

	Sort(sets)
	return sets, warnings, nil
}

type groupResult struct {
	sets     []Set
	warnings []entry.Warning
}

// hashGroup hashes every file in one size group and folds equal digests
// into sets.
func (d *Detector) hashGroup(ctx context.Context, size int64, group []entry.FileEntry) ([]Set, []entry.Warning) {
	var warnings []entry.Warning
	byHash := make(map[string][]entry.FileEntry)

	for _, e := range group {
		if ctx.Err() != nil {
			return nil, warnings
		}
		hash, err := d.hashEntry(e)
		if err != nil {
			d.log.WithFields(logger.Fields{
				"path":  e.Path,
				"error": err,
			}).Warn("Failed to hash file, excluding from duplicate detection")
			warnings = append(warnings, entry.Warning{Path: e.Path, Op: "hash", Message: err.Error()})
			continue
		}
		byHash[hash] = append(byHash[hash], e)
	}

	var sets []Set
	for hash, members := range byHash {
		if len(members) < 2 {
			continue
		}
		sort.Slice(members, func(i, j int) bool { return members[i].Path < members[j].Path })
		sets = append(sets, Set{Hash: hash, Size: size, Entries: members})
	}
	return sets, warnings
}

// hashEntry returns the content digest for one file, consulting the
// cache first and recording the result on a miss.
func (d *Detector) hashEntry(e entry.FileEntry) (string, error) {
	sampled := d.opts.SampleCeiling > 0 && e.Size > d.opts.SampleCeiling
	fp := entry.FingerprintOf(e)

	if rec, ok := d.store.Lookup(fp); ok && rec.ContentHash != "" {
		if strings.HasPrefix(rec.ContentHash, samplePrefix) == sampled {
			return rec.ContentHash, nil
		}
	}

	var hash string
	var err error
	if sampled {
		hash, err = d.sampleHash(e)
	} else {
		hash, err = d.fullHash(e)
	}
	if err != nil {
		return "", err
	}

	rec := cache.RecordOf(e)
	rec.ContentHash = hash
	if err := d.store.Put(rec); err != nil {
		d.log.WithFields(logger.Fields{
			"path":  e.Path,
			"error": err,
		}).Warn("Failed to cache content hash")
	}
	return hash, nil
}

func (d *Detector) fullHash(e entry.FileEntry) (string, error) {
	f, err := d.fs.Open(e.Path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// sampleHash digests the first and last chunk plus the size. Collisions
// within a size group are possible, which is why sampling is opt-in.
func (d *Detector) sampleHash(e entry.FileEntry) (string, error) {
	f, err := d.fs.Open(e.Path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, chunkSize)

	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return "", err
	}
	h.Write(buf[:n])

	if e.Size > chunkSize {
		if _, err := f.Seek(-chunkSize, io.SeekEnd); err != nil {
			return "", err
		}
		n, err := io.ReadFull(f, buf)
		if err != nil && err != io.ErrUnexpectedEOF {
			return "", err
		}
		h.Write(buf[:n])
	}

	if err := binary.Write(h, binary.LittleEndian, e.Size); err != nil {
		return "", err
	}
	return samplePrefix + fmt.Sprintf("%x", h.Sum(nil)), nil
}

// Sort orders sets by savings descending, then size descending, then
// hash, so output is stable across runs.
func Sort(sets []Set) {
	sort.Slice(sets, func(i, j int) bool {
		si, sj := sets[i].Savings(), sets[j].Savings()
		if si != sj {
			return si > sj
		}
		if sets[i].Size != sets[j].Size {
			return sets[i].Size > sets[j].Size
		}
		return sets[i].Hash < sets[j].Hash
	})
}
