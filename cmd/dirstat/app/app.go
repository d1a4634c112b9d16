/*
Package app provides the main application container and orchestration
for dirstat. It manages component lifecycle, coordinates scan and watch
operations, and handles graceful shutdown.

The application container initializes and manages the core components:
- Logger for structured logging
- Fingerprint cache for content hashes and storage tags
- Analysis engine for scans and incremental updates
- Progress visualization
- Report formatting

Usage:

	application := app.New(cfg)
	defer application.Shutdown()

	if err := application.Run(path, options); err != nil {
	    log.Fatal(err)
	}
*/
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"

	"github.com/Maverick-D-Aece/dirstat-pro/internal/config"
	"github.com/Maverick-D-Aece/dirstat-pro/pkg/analyze"
	"github.com/Maverick-D-Aece/dirstat-pro/pkg/cache"
	"github.com/Maverick-D-Aece/dirstat-pro/pkg/entry"
	"github.com/Maverick-D-Aece/dirstat-pro/pkg/filter"
	"github.com/Maverick-D-Aece/dirstat-pro/pkg/gitstatus"
	"github.com/Maverick-D-Aece/dirstat-pro/pkg/logger"
	"github.com/Maverick-D-Aece/dirstat-pro/pkg/progress"
	"github.com/Maverick-D-Aece/dirstat-pro/pkg/report"
	"github.com/Maverick-D-Aece/dirstat-pro/pkg/watch"
)

// ScanOptions defines the options for a single scan operation
type ScanOptions struct {
	// Output format (text, json, yaml, csv, markdown)
	Format report.Format

	// Output file path (empty for stdout)
	OutputPath string

	// DetectDupes enables content-hash duplicate detection
	DetectDupes bool

	// QuietPeriod is the debounce window for watch mode; zero selects
	// the watcher default
	QuietPeriod time.Duration
}

// App represents the main application container
type App struct {
	config *config.Config
	log    logger.Logger

	fs       afero.Fs
	store    cache.Store
	progress progress.Progress

	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	shutdown sync.Once
	mu       sync.Mutex
}

// New creates a new application instance
func New(cfg *config.Config) *App {
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		config: cfg,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	a.initLogger()
	a.initComponents()
	a.setupSignalHandling()

	a.log.WithFields(logger.Fields{
		"workers": cfg.Workers,
		"cache":   cfg.CacheEnabled,
		"verbose": cfg.Verbose,
	}).Info("Application initialized")

	return a
}

// Run executes a scan of path and writes the rendered report
func (a *App) Run(path string, opts *ScanOptions) error {
	defer func() {
		if r := recover(); r != nil {
			a.log.WithFields(logger.Fields{
				"panic": r,
				"stack": string(debug.Stack()),
			}).Error("Recovered from panic")
		}
	}()

	root, analyzer, err := a.prepare(path, opts)
	if err != nil {
		return err
	}

	if !a.config.NoProgress {
		a.progress.Start(fmt.Sprintf("Scanning %s", root))
	}

	rep, err := analyzer.Scan(a.ctx, root)
	if err != nil {
		a.progress.Error(fmt.Sprintf("Scan failed: %v", err))
		return fmt.Errorf("scan operation failed: %w", err)
	}

	if err := a.render(rep, opts); err != nil {
		a.progress.Error(fmt.Sprintf("Output failed: %v", err))
		return err
	}

	a.progress.Complete(fmt.Sprintf("Scanned %d files in %d directories (%s)",
		rep.Files, rep.Dirs, humanize.IBytes(uint64(rep.TotalSize))))

	a.log.WithFields(logger.Fields{
		"files":    rep.Files,
		"dirs":     rep.Dirs,
		"size":     rep.TotalSize,
		"warnings": len(rep.Warnings),
		"outputTo": opts.OutputPath,
	}).Info("Scan operation completed")

	return nil
}

// Watch performs an initial scan of path and then keeps the report
// current, re-rendering after every debounced batch of file changes.
// It blocks until the application context is cancelled.
func (a *App) Watch(path string, opts *ScanOptions) error {
	root, analyzer, err := a.prepare(path, opts)
	if err != nil {
		return err
	}

	if !a.config.NoProgress {
		a.progress.Start(fmt.Sprintf("Scanning %s", root))
	}

	rep, err := analyzer.Scan(a.ctx, root)
	if err != nil {
		a.progress.Error(fmt.Sprintf("Scan failed: %v", err))
		return fmt.Errorf("scan operation failed: %w", err)
	}
	a.progress.Complete(fmt.Sprintf("Watching %s (%d files)", root, rep.Files))

	if err := a.render(rep, opts); err != nil {
		return err
	}

	watcher, err := watch.New(root, opts.QuietPeriod, a.log)
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer watcher.Close()

	for {
		select {
		case <-a.ctx.Done():
			return a.ctx.Err()

		case werr := <-watcher.Errors():
			a.log.WithFields(logger.Fields{
				"error": werr,
			}).Warn("Watcher error")

		case batch, ok := <-watcher.Batches():
			if !ok {
				return nil
			}

			next, err := analyzer.IncrementalUpdate(a.ctx, rep, batch)
			if err != nil {
				if a.ctx.Err() != nil {
					return a.ctx.Err()
				}
				a.log.WithFields(logger.Fields{
					"error":   err,
					"changed": len(batch),
				}).Error("Incremental update failed")
				continue
			}
			if next == rep {
				continue
			}
			rep = next

			if err := a.render(rep, opts); err != nil {
				return err
			}

			a.log.WithFields(logger.Fields{
				"changed": len(batch),
				"files":   rep.Files,
				"size":    rep.TotalSize,
			}).Info("Report refreshed")
		}
	}
}

// Shutdown performs a graceful shutdown of the application
func (a *App) Shutdown() error {
	var err error
	a.shutdown.Do(func() {
		a.mu.Lock()
		defer a.mu.Unlock()

		a.log.Info("Initiating graceful shutdown")

		a.cancel()
		a.progress.Stop()

		if a.store != nil {
			if cerr := a.store.Close(); cerr != nil {
				a.log.WithFields(logger.Fields{
					"error": cerr,
				}).Error("Failed to close cache")
				err = cerr
			}
		}

		close(a.done)
		a.log.Info("Shutdown complete")
	})
	return err
}

// prepare resolves the scan root and assembles an analyzer for it.
func (a *App) prepare(path string, opts *ScanOptions) (string, *analyze.Analyzer, error) {
	root, err := a.validatePath(path)
	if err != nil {
		return "", nil, err
	}

	flt, err := filter.Compile(a.config.FilterOptions(), a.log)
	if err != nil {
		return "", nil, fmt.Errorf("invalid filter configuration: %w", err)
	}

	git := gitstatus.Collect(a.ctx, root, a.log)

	analyzer := analyze.New(analyze.Options{
		TopN:          a.config.TopN,
		Workers:       a.config.Workers,
		MaxDepth:      a.config.MaxDepth,
		DetectDupes:   opts.DetectDupes,
		SampleCeiling: a.config.SampleCeiling,
		RateLimit:     a.config.RateLimit,
		Classifier:    analyze.DefaultClassifierOptions(),
		OnEntry:       a.entryObserver(),
	}, a.fs, flt, git, a.store, a.log)

	return root, analyzer, nil
}

// entryObserver feeds the live counters next to the spinner.
func (a *App) entryObserver() func(entry.FileEntry) {
	if a.config.NoProgress {
		return nil
	}

	var files, dirs, bytes atomic.Int64
	return func(e entry.FileEntry) {
		if e.IsDir {
			dirs.Add(1)
		} else {
			files.Add(1)
			bytes.Add(e.Size)
		}
		a.progress.Update(progress.Status{
			Files:       files.Load(),
			Dirs:        dirs.Load(),
			Bytes:       bytes.Load(),
			CurrentPath: e.RelPath,
		})
	}
}

// render formats the report and writes it to the configured destination.
func (a *App) render(rep *analyze.Report, opts *ScanOptions) error {
	formatter := report.NewFormatter(report.Config{
		Format:     opts.Format,
		WithColors: !a.config.NoColor && opts.OutputPath == "",
	}, a.log)

	out, err := formatter.Format(rep)
	if err != nil {
		return fmt.Errorf("output formatting failed: %w", err)
	}

	return a.writeOutput(out, opts.OutputPath)
}

// initLogger initializes the application logger
func (a *App) initLogger() {
	a.log = logger.NewLogger(logger.Config{
		Verbosity: a.config.Verbose,
	})

	a.log.WithFields(logger.Fields{
		"verbosity": a.config.Verbose,
	}).Debug("Logger initialized")
}

// initComponents initializes all application components
func (a *App) initComponents() {
	a.log.Debug("Initializing application components")

	a.fs = afero.NewOsFs()

	// Cache failures degrade to a no-op store; a broken cache file must
	// never block a scan.
	if a.config.CacheEnabled {
		store, err := cache.Open(a.config.CachePath, a.log)
		if err != nil {
			a.log.WithFields(logger.Fields{
				"path":  a.config.CachePath,
				"error": err,
			}).Warn("Cache unavailable, continuing without it")
			a.store = cache.NewNoop()
		} else {
			a.store = store
		}
	} else {
		a.store = cache.NewNoop()
	}

	a.progress = progress.New(progress.Config{
		NoColor:     a.config.NoColor,
		RefreshRate: 100 * time.Millisecond,
	}, a.log)

	a.log.Debug("Components initialized successfully")
}

// writeOutput writes the formatted output to the specified destination
func (a *App) writeOutput(content string, outputPath string) error {
	a.log.WithFields(logger.Fields{
		"path": outputPath,
	}).Debug("Writing output")

	if outputPath == "" {
		_, err := fmt.Fprintln(os.Stdout, content)
		return err
	}

	if err := os.WriteFile(outputPath, []byte(content), 0644); err != nil {
		a.log.WithFields(logger.Fields{
			"error": err,
			"path":  outputPath,
		}).Error("Failed to write output file")
		return fmt.Errorf("failed to write output file: %w", err)
	}

	a.log.WithFields(logger.Fields{
		"path": outputPath,
	}).Info("Output written successfully")
	return nil
}

// validatePath checks that the given path is a scannable directory and
// returns its absolute form.
func (a *App) validatePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("path does not exist: %s", path)
		}
		return "", fmt.Errorf("cannot access path: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("path is not a directory: %s", path)
	}

	return abs, nil
}
