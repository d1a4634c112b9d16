/*
Package watch turns filesystem notifications into batches of changed
paths for incremental re-analysis.

Raw events are coalesced: every create, write, remove or rename marks
its path pending, and a quiet period flushes the pending set as one
batch. Consumers feed each batch to the incremental updater instead of
re-scanning the tree. Newly created directories are added to the watch
recursively, so the whole subtree stays covered.
*/
package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Maverick-D-Aece/dirstat-pro/pkg/logger"
)

// DefaultQuietPeriod is the pause that ends a burst of changes.
const DefaultQuietPeriod = 500 * time.Millisecond

// Watcher observes one directory tree and emits change batches.
type Watcher struct {
	watcher *fsnotify.Watcher
	batches chan []string
	errors  chan error
	done    chan struct{}
	root    string
	quiet   time.Duration
	log     logger.Logger

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
	closed  bool
}

// New starts watching root recursively. The quiet period bounds how
// long a burst of events is coalesced before a batch is emitted; zero
// selects DefaultQuietPeriod.
func New(root string, quiet time.Duration, log logger.Logger) (*Watcher, error) {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	if log == nil {
		log = logger.NewNop()
	}
	root = filepath.Clean(root)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		watcher: fsw,
		batches: make(chan []string, 16),
		errors:  make(chan error, 8),
		done:    make(chan struct{}),
		root:    root,
		quiet:   quiet,
		log:     log,
		pending: make(map[string]struct{}),
	}

	if err := w.addRecursive(root); err != nil {
		fsw.Close()
		return nil, err
	}

	go w.run()

	w.log.WithFields(logger.Fields{"root": root}).Info("Watching for changes")
	return w, nil
}

// Batches returns the channel of coalesced change sets. Each batch is
// sorted and duplicate-free.
func (w *Watcher) Batches() <-chan []string {
	return w.batches
}

// Errors returns the channel of watch errors. The watcher keeps running
// after an error; a full channel drops further ones.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Root returns the watched directory.
func (w *Watcher) Root() string {
	return w.root
}

// Close stops the watcher. Pending changes are discarded.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	close(w.done)
	return w.watcher.Close()
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			if err := w.watcher.Add(path); err != nil {
				if os.IsPermission(err) {
					return nil
				}
				return err
			}
		}
		return nil
	})
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op == fsnotify.Chmod {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				select {
				case w.errors <- err:
				default:
				}
			}
		}
	}

	w.log.WithFields(logger.Fields{
		"path": event.Name,
		"op":   event.Op.String(),
	}).Trace("Change observed")

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	w.pending[event.Name] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.quiet, w.flush)
}

// flush emits the pending set as one batch.
func (w *Watcher) flush() {
	w.mu.Lock()
	if w.closed || len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	batch := make([]string, 0, len(w.pending))
	for path := range w.pending {
		batch = append(batch, path)
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	sort.Strings(batch)

	select {
	case w.batches <- batch:
	case <-w.done:
	default:
		// Batch channel full: re-queue so the changes are not lost.
		w.mu.Lock()
		for _, path := range batch {
			w.pending[path] = struct{}{}
		}
		if !w.closed {
			if w.timer != nil {
				w.timer.Stop()
			}
			w.timer = time.AfterFunc(w.quiet, w.flush)
		}
		w.mu.Unlock()
	}
}
