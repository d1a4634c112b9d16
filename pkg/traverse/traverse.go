/*
Package traverse implements the filtered, parallel directory walk that
feeds the analysis pipeline.

The walk is depth-first per subtree with independent subtrees fanned out
to a bounded set of goroutines. Filtering applies to reported entries
only, never to descent: a directory rejected by the filter is still
entered so its qualifying descendants are found. The one exception is
the depth limit, which prunes descent entirely below the bound.

Symlinks are recorded but never followed, so cycles cannot occur. An
unreadable directory yields a warning and its siblings continue; only a
root that cannot be opened fails the walk.
*/
package traverse

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"github.com/Maverick-D-Aece/dirstat-pro/pkg/entry"
	"github.com/Maverick-D-Aece/dirstat-pro/pkg/filter"
	"github.com/Maverick-D-Aece/dirstat-pro/pkg/gitstatus"
	"github.com/Maverick-D-Aece/dirstat-pro/pkg/logger"
	"github.com/Maverick-D-Aece/dirstat-pro/pkg/worker"
)

// Options contains walker configuration.
type Options struct {
	// Workers bounds the number of directories read concurrently;
	// worker.AutoWorkers resolves to the available parallelism.
	Workers int

	// MaxDepth prunes descent below the given depth; the scan root has
	// depth 0. filter.Unlimited disables pruning.
	MaxDepth int
}

// Result is the collected output of one walk.
type Result struct {
	Entries  []entry.FileEntry
	Warnings []entry.Warning
}

// Walker produces the entry stream for a scan root.
type Walker interface {
	// Walk runs a complete traversal and collects it.
	Walk(ctx context.Context, root string) (*Result, error)

	// Stream starts a traversal and returns a single-pass entry
	// stream. A fresh call restarts from scratch; one Stream can only
	// be consumed once.
	Stream(ctx context.Context, root string) (*Stream, error)
}

// Stream is a pull-based view of an in-flight traversal. C is closed
// when the walk finishes; Wait reports warnings and the terminal error
// and must be called after C is drained.
type Stream struct {
	C <-chan entry.FileEntry

	done     chan struct{}
	mu       sync.Mutex
	warnings []entry.Warning
	err      error
}

// Wait blocks until the walk has finished and returns the recorded
// warnings, or the cancellation error if the walk was aborted.
func (s *Stream) Wait() ([]entry.Warning, error) {
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.warnings, nil
}

func (s *Stream) warn(w entry.Warning) {
	s.mu.Lock()
	s.warnings = append(s.warnings, w)
	s.mu.Unlock()
}

type walkerImpl struct {
	opts Options
	fs   afero.Fs
	flt  *filter.Filter
	git  *gitstatus.Summary
	log  logger.Logger
}

// NewWalker creates a Walker over the given filesystem. The git summary
// may be nil, in which case every entry carries GitUnknown.
func NewWalker(opts Options, fs afero.Fs, flt *filter.Filter, git *gitstatus.Summary, log logger.Logger) Walker {
	if log == nil {
		log = logger.NewNop()
	}
	return &walkerImpl{
		opts: opts,
		fs:   fs,
		flt:  flt,
		git:  git,
		log:  log,
	}
}

func (w *walkerImpl) Walk(ctx context.Context, root string) (*Result, error) {
	stream, err := w.Stream(ctx, root)
	if err != nil {
		return nil, err
	}

	var entries []entry.FileEntry
	for e := range stream.C {
		entries = append(entries, e)
	}

	warnings, err := stream.Wait()
	if err != nil {
		return nil, err
	}
	return &Result{Entries: entries, Warnings: warnings}, nil
}

func (w *walkerImpl) Stream(ctx context.Context, root string) (*Stream, error) {
	root = filepath.Clean(root)

	info, err := w.fs.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat scan root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan root is not a directory: %s", root)
	}

	workers := worker.ResolveWorkers(w.opts.Workers)

	w.log.WithFields(logger.Fields{
		"root":     root,
		"workers":  workers,
		"maxDepth": w.opts.MaxDepth,
	}).Info("Starting traversal")

	ch := make(chan entry.FileEntry, workers*64)
	stream := &Stream{C: ch, done: make(chan struct{})}

	run := &walkRun{
		walkerImpl: w,
		root:       root,
		stream:     stream,
		out:        ch,
		sem:        make(chan struct{}, workers),
	}

	run.wg.Add(1)
	go run.walkDir(ctx, root, "", 0)

	go func() {
		run.wg.Wait()
		close(ch)
		if err := ctx.Err(); err != nil {
			stream.mu.Lock()
			stream.err = err
			stream.mu.Unlock()
		}
		close(stream.done)
	}()

	return stream, nil
}

// walkRun carries the per-traversal state; a Walker itself is reusable
// and stateless across calls.
type walkRun struct {
	*walkerImpl
	root   string
	stream *Stream
	out    chan<- entry.FileEntry
	sem    chan struct{}
	wg     sync.WaitGroup
}

// walkDir reads one directory and fans its subdirectories out to new
// goroutines. The semaphore is held only while the directory is being
// read, so recursion can never deadlock on it.
func (r *walkRun) walkDir(ctx context.Context, dir, rel string, depth int) {
	defer r.wg.Done()

	select {
	case r.sem <- struct{}{}:
	case <-ctx.Done():
		return
	}
	infos, err := afero.ReadDir(r.fs, dir)
	<-r.sem

	if err != nil {
		r.log.WithFields(logger.Fields{
			"path":  dir,
			"error": err,
		}).Warn("Failed to read directory, skipping subtree")
		r.stream.warn(entry.Warning{Path: dir, Op: "readdir", Message: err.Error()})
		return
	}

	for _, info := range infos {
		if ctx.Err() != nil {
			return
		}

		childRel := joinRel(rel, info.Name())
		e := r.makeEntry(dir, childRel, info, depth+1)

		if r.flt == nil || r.flt.Match(e) {
			select {
			case r.out <- e:
			case <-ctx.Done():
				return
			}
		}

		// Descend into real directories only; symlinked directories are
		// recorded above but never followed.
		if e.IsDir && !e.IsSymlink && r.shouldDescend(depth+1) {
			r.wg.Add(1)
			go r.walkDir(ctx, filepath.Join(dir, info.Name()), childRel, depth+1)
		}
	}
}

func (r *walkRun) makeEntry(parent, rel string, info os.FileInfo, depth int) entry.FileEntry {
	isSymlink := info.Mode()&os.ModeSymlink != 0

	e := entry.FileEntry{
		Path:      filepath.Join(parent, info.Name()),
		RelPath:   rel,
		Depth:     depth,
		Size:      info.Size(),
		ModTime:   info.ModTime(),
		IsDir:     info.IsDir(),
		IsSymlink: isSymlink,
		GitStatus: entry.GitUnknown,
	}
	if !e.IsDir {
		e.Ext = entry.NormalizeExt(info.Name())
		if r.git != nil {
			e.GitStatus = r.git.StatusOf(rel)
		}
	}
	return e
}

func (r *walkRun) shouldDescend(dirDepth int) bool {
	return r.opts.MaxDepth == filter.Unlimited || dirDepth < r.opts.MaxDepth
}

func joinRel(rel, name string) string {
	if rel == "" {
		return name
	}
	return path.Join(rel, name)
}
