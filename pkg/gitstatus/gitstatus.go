/*
Package gitstatus supplies the per-file git classification consumed by
the analysis engine. It shells out to the git binary once per scan root
(ls-files for the tracked set, status --porcelain for pending changes)
and answers lookups from the resulting map.

When the root is not inside a work tree, or git is not installed, the
summary reports every path as unknown and git-based filtering is
effectively disabled.
*/
package gitstatus

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/Maverick-D-Aece/dirstat-pro/pkg/entry"
	"github.com/Maverick-D-Aece/dirstat-pro/pkg/logger"
)

// Summary holds the status classification for one scan root.
type Summary struct {
	root     string
	isRepo   bool
	statuses map[string]entry.GitStatus
}

// Collect gathers the git status for every file under root. Failures
// are never fatal: a missing binary or a non-repo root produce a
// Summary that answers unknown for everything.
func Collect(ctx context.Context, root string, log logger.Logger) *Summary {
	if log == nil {
		log = logger.NewNop()
	}

	s := &Summary{root: root}

	if out, err := runGit(ctx, root, "rev-parse", "--is-inside-work-tree"); err != nil || strings.TrimSpace(out) != "true" {
		log.WithFields(logger.Fields{
			"root": root,
		}).Debug("Not a git work tree, git statuses disabled")
		return s
	}

	tracked, err := runGit(ctx, root, "ls-files", "-z")
	if err != nil {
		log.WithFields(logger.Fields{
			"root":  root,
			"error": err,
		}).Warn("git ls-files failed, git statuses disabled")
		return s
	}

	porcelain, err := runGit(ctx, root, "status", "--porcelain", "-z")
	if err != nil {
		log.WithFields(logger.Fields{
			"root":  root,
			"error": err,
		}).Warn("git status failed, git statuses disabled")
		return s
	}

	s.isRepo = true
	s.statuses = make(map[string]entry.GitStatus)
	for _, rel := range splitZ(tracked) {
		s.statuses[rel] = entry.GitTracked
	}
	for rel, status := range ParsePorcelain(porcelain) {
		s.statuses[rel] = status
	}

	log.WithFields(logger.Fields{
		"root":  root,
		"files": len(s.statuses),
	}).Debug("Collected git statuses")

	return s
}

// NewSummary builds a Summary from an explicit relpath-to-status map.
// Intended for tests and for callers that obtain statuses elsewhere.
func NewSummary(root string, statuses map[string]entry.GitStatus) *Summary {
	return &Summary{root: root, isRepo: statuses != nil, statuses: statuses}
}

// IsRepo reports whether the root was inside a git work tree.
func (s *Summary) IsRepo() bool {
	return s.isRepo
}

// StatusOf classifies a root-relative slashed path. Paths outside the
// collected set are untracked in a repo and unknown otherwise.
func (s *Summary) StatusOf(rel string) entry.GitStatus {
	if !s.isRepo {
		return entry.GitUnknown
	}
	if status, ok := s.statuses[rel]; ok {
		return status
	}
	return entry.GitUntracked
}

// ParsePorcelain extracts per-path statuses from NUL-terminated
// `git status --porcelain -z` output. Renames consume two records; the
// new name is reported as modified.
func ParsePorcelain(out string) map[string]entry.GitStatus {
	statuses := make(map[string]entry.GitStatus)

	records := splitZ(out)
	for i := 0; i < len(records); i++ {
		rec := records[i]
		if len(rec) < 4 {
			continue
		}
		code := rec[:2]
		rel := rec[3:]

		switch {
		case code == "??":
			statuses[rel] = entry.GitUntracked
		case code[0] == 'R' || code[0] == 'C':
			statuses[rel] = entry.GitModified
			i++ // skip the origin path record
		default:
			statuses[rel] = entry.GitModified
		}
	}

	return statuses
}

func splitZ(out string) []string {
	var fields []string
	for _, f := range strings.Split(out, "\x00") {
		if f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

func runGit(ctx context.Context, root string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", filepath.Clean(root)}, args...)...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return "", err
	}
	return stdout.String(), nil
}
