package commands

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Maverick-D-Aece/dirstat-pro/internal/config"
	"github.com/Maverick-D-Aece/dirstat-pro/pkg/filter"
)

// scanFlags holds the traversal and reporting flags shared by the scan,
// dupes and watch commands. Values are applied over the environment
// configuration only when their flag was set on the command line.
type scanFlags struct {
	workers       int
	maxDepth      int
	hidden        bool
	include       []string
	exclude       []string
	gitStatus     []string
	minSize       string
	maxSize       string
	minAge        string
	maxAge        string
	output        string
	outputFile    string
	topN          int
	noCache       bool
	cachePath     string
	sampleCeiling string
	rateLimit     int
}

// addScanFlags registers the shared flag set on a command.
func addScanFlags(cmd *cobra.Command, sf *scanFlags) {
	fl := cmd.Flags()

	fl.IntVarP(&sf.workers, "workers", "w", 0,
		"number of concurrent workers (0 = number of CPUs)")
	fl.IntVarP(&sf.maxDepth, "max-depth", "d", -1,
		"maximum directory depth (-1 = unlimited)")
	fl.BoolVar(&sf.hidden, "hidden", false,
		"include hidden files and directories")
	fl.StringSliceVarP(&sf.include, "include", "i", nil,
		"glob patterns to include (can be repeated)")
	fl.StringSliceVarP(&sf.exclude, "exclude", "x", nil,
		"glob patterns to exclude (can be repeated)")
	fl.StringSliceVar(&sf.gitStatus, "git-status", nil,
		"keep only files with these git statuses")
	fl.StringVar(&sf.minSize, "min-size", "",
		"minimum file size, e.g. 500KB, 1MiB")
	fl.StringVar(&sf.maxSize, "max-size", "",
		"maximum file size")
	fl.StringVar(&sf.minAge, "min-age", "",
		"minimum file age, e.g. 30d, 4w, 6m, 1y")
	fl.StringVar(&sf.maxAge, "max-age", "",
		"maximum file age")
	fl.StringVarP(&sf.output, "output", "o", "text",
		"output format: text|json|yaml|csv|markdown")
	fl.StringVarP(&sf.outputFile, "file", "f", "",
		"write output to file instead of stdout")
	fl.IntVar(&sf.topN, "top-n", config.DefaultTopN,
		"number of largest files to report")
	fl.BoolVar(&sf.noCache, "no-cache", false,
		"disable the fingerprint cache")
	fl.StringVar(&sf.cachePath, "cache-path", config.DefaultCachePath,
		"cache database location")
	fl.StringVar(&sf.sampleCeiling, "sample-ceiling", "",
		"sample instead of fully hashing files above this size")
	fl.IntVar(&sf.rateLimit, "rate-limit", 0,
		"hashing tasks started per second (0 = unlimited)")
}

// applyScanFlags overlays explicitly set flags onto the configuration
// and re-validates the result.
func applyScanFlags(cmd *cobra.Command, cfg *config.Config, sf *scanFlags) error {
	fl := cmd.Flags()

	if fl.Changed("workers") {
		cfg.Workers = sf.workers
	}
	if fl.Changed("max-depth") {
		cfg.MaxDepth = sf.maxDepth
	}
	if fl.Changed("hidden") {
		cfg.IncludeHidden = sf.hidden
	}
	if fl.Changed("include") {
		cfg.Include = sf.include
	}
	if fl.Changed("exclude") {
		cfg.Exclude = sf.exclude
	}
	if fl.Changed("git-status") {
		statuses, err := config.ParseGitStatuses(sf.gitStatus)
		if err != nil {
			return err
		}
		cfg.GitStatuses = statuses
	}
	if fl.Changed("output") {
		cfg.Output = sf.output
	}
	if fl.Changed("file") {
		cfg.OutputFile = sf.outputFile
	}
	if fl.Changed("top-n") {
		cfg.TopN = sf.topN
	}
	if fl.Changed("no-cache") && sf.noCache {
		cfg.CacheEnabled = false
	}
	if fl.Changed("cache-path") {
		cfg.CachePath = sf.cachePath
	}
	if fl.Changed("rate-limit") {
		cfg.RateLimit = sf.rateLimit
	}

	var err error
	if fl.Changed("min-size") {
		if cfg.MinSize, err = parseSizeFlag(sf.minSize); err != nil {
			return fmt.Errorf("min size: %w", err)
		}
	}
	if fl.Changed("max-size") {
		if cfg.MaxSize, err = parseSizeFlag(sf.maxSize); err != nil {
			return fmt.Errorf("max size: %w", err)
		}
	}
	if fl.Changed("min-age") {
		if cfg.MinAgeDays, err = config.ParseAge(sf.minAge); err != nil {
			return fmt.Errorf("min age: %w", err)
		}
	}
	if fl.Changed("max-age") {
		if cfg.MaxAgeDays, err = config.ParseAge(sf.maxAge); err != nil {
			return fmt.Errorf("max age: %w", err)
		}
	}
	if fl.Changed("sample-ceiling") {
		if cfg.SampleCeiling, err = parseSizeFlag(sf.sampleCeiling); err != nil {
			return fmt.Errorf("sample ceiling: %w", err)
		}
		if cfg.SampleCeiling == filter.Unlimited {
			cfg.SampleCeiling = 0
		}
	}

	return cfg.Validate()
}

func parseSizeFlag(s string) (int64, error) {
	if s == "" {
		return filter.Unlimited, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}
