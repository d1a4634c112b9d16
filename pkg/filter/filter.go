/*
Package filter implements the predicate pipeline applied to every entry
discovered by traversal. All patterns are compiled once at construction;
a malformed pattern is a configuration error surfaced before any
traversal begins, never a per-file failure.

Basic usage:

	f, err := filter.Compile(filter.Options{
		MaxDepth: 3,
		MinSize:  1024,
		Exclude:  []string{"node_modules/**", "*.log"},
	}, log)
	if err != nil {
		// bad configuration
	}
	if f.Match(e) {
		// entry participates in the report
	}
*/
package filter

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/Maverick-D-Aece/dirstat-pro/pkg/entry"
	"github.com/Maverick-D-Aece/dirstat-pro/pkg/logger"
)

// Unlimited disables a depth, size or age bound.
const Unlimited = -1

// Options describes the filtering surface. Numeric bounds use Unlimited
// (-1) when unset.
type Options struct {
	// MaxDepth is the maximum depth of reported entries; the scan root
	// itself has depth 0. Unlimited disables the bound.
	MaxDepth int

	// IncludeHidden reports entries whose path contains a dot-prefixed
	// segment. Off by default.
	IncludeHidden bool

	// MinAgeDays/MaxAgeDays bound the file age in whole days.
	MinAgeDays int
	MaxAgeDays int

	// MinSize/MaxSize bound the file size in bytes.
	MinSize int64
	MaxSize int64

	// Include holds glob patterns; when non-empty a file must match at
	// least one. Exclude patterns always win over Include.
	Include []string
	Exclude []string

	// GitStatuses restricts files to the given set. Empty disables the
	// check. Directories are never rejected by the git filter.
	GitStatuses []entry.GitStatus
}

// DefaultOptions returns an Options with every bound disabled.
func DefaultOptions() Options {
	return Options{
		MaxDepth:   Unlimited,
		MinAgeDays: Unlimited,
		MaxAgeDays: Unlimited,
		MinSize:    Unlimited,
		MaxSize:    Unlimited,
	}
}

// Filter is a compiled, reusable predicate over file entries. A Filter
// is immutable after Compile and safe for concurrent use.
type Filter struct {
	opts     Options
	include  []string
	exclude  []string
	statuses map[entry.GitStatus]struct{}
	now      time.Time
	log      logger.Logger
}

// Compile validates the options and builds the matcher. Glob patterns
// are checked here, once, so Match never has to parse strings.
func Compile(opts Options, log logger.Logger) (*Filter, error) {
	if log == nil {
		log = logger.NewNop()
	}

	if opts.MaxDepth < Unlimited {
		return nil, fmt.Errorf("max depth must be %d (unlimited) or non-negative, got %d", Unlimited, opts.MaxDepth)
	}
	if opts.MinSize != Unlimited && opts.MaxSize != Unlimited && opts.MinSize > opts.MaxSize {
		return nil, fmt.Errorf("min size %d exceeds max size %d", opts.MinSize, opts.MaxSize)
	}
	if opts.MinAgeDays != Unlimited && opts.MaxAgeDays != Unlimited && opts.MinAgeDays > opts.MaxAgeDays {
		return nil, fmt.Errorf("min age %dd exceeds max age %dd", opts.MinAgeDays, opts.MaxAgeDays)
	}

	compile := func(patterns []string, kind string) ([]string, error) {
		out := make([]string, 0, len(patterns))
		for _, p := range patterns {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			p = path.Clean(strings.ReplaceAll(p, "\\", "/"))
			if !doublestar.ValidatePattern(p) {
				return nil, fmt.Errorf("invalid %s pattern %q", kind, p)
			}
			out = append(out, p)
		}
		return out, nil
	}

	include, err := compile(opts.Include, "include")
	if err != nil {
		return nil, err
	}
	exclude, err := compile(opts.Exclude, "exclude")
	if err != nil {
		return nil, err
	}

	var statuses map[entry.GitStatus]struct{}
	if len(opts.GitStatuses) > 0 {
		statuses = make(map[entry.GitStatus]struct{}, len(opts.GitStatuses))
		for _, s := range opts.GitStatuses {
			statuses[s] = struct{}{}
		}
	}

	log.WithFields(logger.Fields{
		"maxDepth": opts.MaxDepth,
		"include":  include,
		"exclude":  exclude,
	}).Debug("Filter compiled")

	return &Filter{
		opts:     opts,
		include:  include,
		exclude:  exclude,
		statuses: statuses,
		now:      time.Now(),
		log:      log,
	}, nil
}

// Match reports whether an entry passes every active predicate.
// Evaluation order: depth, hidden, size, age, exclude, include, git
// status. Exclude always takes precedence over include; an empty
// include list accepts everything.
func (f *Filter) Match(e entry.FileEntry) bool {
	if f.opts.MaxDepth != Unlimited && e.Depth > f.opts.MaxDepth {
		return false
	}

	if !f.opts.IncludeHidden && isHidden(e.RelPath) {
		return false
	}

	// Size and age bounds describe file content; directories pass.
	if !e.IsDir {
		if f.opts.MinSize != Unlimited && e.Size < f.opts.MinSize {
			return false
		}
		if f.opts.MaxSize != Unlimited && e.Size > f.opts.MaxSize {
			return false
		}

		ageDays := int(f.now.Sub(e.ModTime).Hours() / 24)
		if f.opts.MinAgeDays != Unlimited && ageDays < f.opts.MinAgeDays {
			return false
		}
		if f.opts.MaxAgeDays != Unlimited && ageDays > f.opts.MaxAgeDays {
			return false
		}
	}

	for _, p := range f.exclude {
		if matchPattern(p, e.RelPath) {
			return false
		}
	}

	if len(f.include) > 0 {
		matched := false
		for _, p := range f.include {
			if matchPattern(p, e.RelPath) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	if f.statuses != nil && !e.IsDir {
		if _, ok := f.statuses[e.GitStatus]; !ok {
			return false
		}
	}

	return true
}

// matchPattern matches a compiled glob against the root-relative path.
// Patterns without a separator also match the base name, so "*.log"
// excludes logs at any depth.
func matchPattern(pattern, relPath string) bool {
	if doublestar.MatchUnvalidated(pattern, relPath) {
		return true
	}
	if !strings.Contains(pattern, "/") {
		return doublestar.MatchUnvalidated(pattern, path.Base(relPath))
	}
	return false
}

// isHidden reports whether any segment of the relative path is
// dot-prefixed.
func isHidden(relPath string) bool {
	if relPath == "" || relPath == "." {
		return false
	}
	for _, seg := range strings.Split(relPath, "/") {
		if len(seg) > 1 && seg[0] == '.' {
			return true
		}
	}
	return false
}
