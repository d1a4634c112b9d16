/*
Package config provides configuration management for the dirstat
application. It merges environment variables with defaults and
validates every parameter before a scan starts, so malformed sizes,
ages or patterns fail up front instead of mid-traversal.

Environment Variables:

	DIRSTAT_WORKERS        Worker count, or "auto" for available CPUs
	DIRSTAT_MAX_DEPTH      Maximum directory depth (-1 for unlimited)
	DIRSTAT_INCLUDE_HIDDEN Include dot-files and dot-directories
	DIRSTAT_MIN_AGE        Minimum file age, e.g. 30d, 4w, 6m, 1y
	DIRSTAT_MAX_AGE        Maximum file age
	DIRSTAT_MIN_SIZE       Minimum file size, e.g. 500KB, 1MiB
	DIRSTAT_MAX_SIZE       Maximum file size
	DIRSTAT_INCLUDE        Comma-separated include globs
	DIRSTAT_EXCLUDE        Comma-separated exclude globs
	DIRSTAT_GIT_STATUS     Comma-separated git statuses to keep
	DIRSTAT_OUTPUT         Output format: text|json|yaml|csv|markdown
	DIRSTAT_OUTPUT_FILE    Output file path (empty for stdout)
	DIRSTAT_TOP_N          Number of largest files to report
	DIRSTAT_CACHE          Enable the fingerprint cache (true/false)
	DIRSTAT_CACHE_PATH     Cache database location
	DIRSTAT_SAMPLE_CEILING Size above which duplicate hashing samples
	DIRSTAT_RATE_LIMIT     Hashing tasks started per second (0 unlimited)
	DIRSTAT_NO_PROGRESS    Disable progress reporting
	DIRSTAT_NO_COLOR       Disable colored output
	DIRSTAT_VERBOSE        Verbosity level (number of 'v's)
*/
package config

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/Maverick-D-Aece/dirstat-pro/pkg/entry"
	"github.com/Maverick-D-Aece/dirstat-pro/pkg/filter"
)

// Config holds all configuration parameters for the application
type Config struct {
	// Workers is the number of concurrent workers; 0 means auto
	Workers int

	// MaxDepth is the maximum directory depth to scan (-1 for unlimited)
	MaxDepth int

	// IncludeHidden keeps dot-prefixed files and directories
	IncludeHidden bool

	// MinAgeDays and MaxAgeDays bound file age; -1 disables a bound
	MinAgeDays int
	MaxAgeDays int

	// MinSize and MaxSize bound file size in bytes; -1 disables a bound
	MinSize int64
	MaxSize int64

	// Include and Exclude are glob patterns over root-relative paths
	Include []string
	Exclude []string

	// GitStatuses restricts reported files to the given statuses
	GitStatuses []entry.GitStatus

	// Output specifies the report format
	Output string

	// OutputFile is the path to write the report (empty for stdout)
	OutputFile string

	// TopN is the number of largest files retained in the report
	TopN int

	// CacheEnabled persists content hashes and tags between runs
	CacheEnabled bool

	// CachePath is the cache database location
	CachePath string

	// SampleCeiling switches duplicate hashing to sampling above this
	// size; 0 keeps full-content hashing
	SampleCeiling int64

	// RateLimit is the maximum number of tasks started per second
	// (0 for unlimited)
	RateLimit int

	// NoProgress disables progress reporting
	NoProgress bool

	// NoColor disables colored output
	NoColor bool

	// Verbose sets the verbosity level
	Verbose int
}

var validOutputFormats = map[string]bool{
	"text":     true,
	"json":     true,
	"yaml":     true,
	"csv":      true,
	"markdown": true,
}

// Load reads configuration from environment variables and validates it
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("workers", "auto")
	v.SetDefault("max_depth", -1)
	v.SetDefault("include_hidden", false)
	v.SetDefault("output", "text")
	v.SetDefault("top_n", 10)
	v.SetDefault("cache", true)
	v.SetDefault("cache_path", ".dirstat-cache.db")
	v.SetDefault("rate_limit", 0)
	v.SetDefault("no_progress", false)
	v.SetDefault("no_color", false)
	v.SetDefault("verbose", 0)

	v.SetEnvPrefix("DIRSTAT")
	v.AutomaticEnv()

	v.BindEnv("workers")
	v.BindEnv("max_depth")
	v.BindEnv("include_hidden")
	v.BindEnv("min_age")
	v.BindEnv("max_age")
	v.BindEnv("min_size")
	v.BindEnv("max_size")
	v.BindEnv("include")
	v.BindEnv("exclude")
	v.BindEnv("git_status")
	v.BindEnv("output")
	v.BindEnv("output_file")
	v.BindEnv("top_n")
	v.BindEnv("cache")
	v.BindEnv("cache_path")
	v.BindEnv("sample_ceiling")
	v.BindEnv("rate_limit")
	v.BindEnv("no_progress")
	v.BindEnv("no_color")
	v.BindEnv("verbose")

	if verboseStr := v.GetString("verbose"); verboseStr != "" {
		v.Set("verbose", strings.Count(verboseStr, "v"))
	}

	cfg := Config{
		MaxDepth:      v.GetInt("max_depth"),
		IncludeHidden: v.GetBool("include_hidden"),
		Output:        v.GetString("output"),
		OutputFile:    v.GetString("output_file"),
		TopN:          v.GetInt("top_n"),
		CacheEnabled:  v.GetBool("cache"),
		CachePath:     v.GetString("cache_path"),
		RateLimit:     v.GetInt("rate_limit"),
		NoProgress:    v.GetBool("no_progress"),
		NoColor:       v.GetBool("no_color"),
		Verbose:       v.GetInt("verbose"),
	}

	var err error
	if cfg.Workers, err = ParseWorkers(v.GetString("workers")); err != nil {
		return Config{}, err
	}
	if cfg.MinAgeDays, err = parseOptionalAge(v.GetString("min_age")); err != nil {
		return Config{}, fmt.Errorf("min age: %w", err)
	}
	if cfg.MaxAgeDays, err = parseOptionalAge(v.GetString("max_age")); err != nil {
		return Config{}, fmt.Errorf("max age: %w", err)
	}
	if cfg.MinSize, err = parseOptionalSize(v.GetString("min_size")); err != nil {
		return Config{}, fmt.Errorf("min size: %w", err)
	}
	if cfg.MaxSize, err = parseOptionalSize(v.GetString("max_size")); err != nil {
		return Config{}, fmt.Errorf("max size: %w", err)
	}
	if cfg.SampleCeiling, err = parseOptionalSize(v.GetString("sample_ceiling")); err != nil {
		return Config{}, fmt.Errorf("sample ceiling: %w", err)
	}
	if cfg.SampleCeiling < 0 {
		cfg.SampleCeiling = 0
	}

	cfg.Include = splitList(v.GetString("include"))
	cfg.Exclude = splitList(v.GetString("exclude"))
	if cfg.GitStatuses, err = ParseGitStatuses(splitList(v.GetString("git_status"))); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks if the configuration is valid
func (c Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers count must be non-negative")
	}
	maxWorkers := runtime.NumCPU() * MaxWorkerMultiplier
	if c.Workers > maxWorkers {
		return fmt.Errorf("workers count cannot exceed system CPU count * %d", MaxWorkerMultiplier)
	}
	if c.MaxDepth < UnlimitedDepth {
		return fmt.Errorf("max depth must be -1 (unlimited) or non-negative")
	}
	if !validOutputFormats[c.Output] {
		return fmt.Errorf("invalid output format: must be one of [text json yaml csv markdown]")
	}
	if c.TopN < 0 {
		return fmt.Errorf("top-n must be non-negative")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit must be non-negative")
	}
	if c.MinSize != filter.Unlimited && c.MaxSize != filter.Unlimited && c.MinSize > c.MaxSize {
		return fmt.Errorf("min size exceeds max size")
	}
	if c.MinAgeDays != filter.Unlimited && c.MaxAgeDays != filter.Unlimited && c.MinAgeDays > c.MaxAgeDays {
		return fmt.Errorf("min age exceeds max age")
	}
	return nil
}

// FilterOptions maps the configuration onto the filter surface.
func (c Config) FilterOptions() filter.Options {
	return filter.Options{
		MaxDepth:      c.MaxDepth,
		IncludeHidden: c.IncludeHidden,
		MinAgeDays:    c.MinAgeDays,
		MaxAgeDays:    c.MaxAgeDays,
		MinSize:       c.MinSize,
		MaxSize:       c.MaxSize,
		Include:       c.Include,
		Exclude:       c.Exclude,
		GitStatuses:   c.GitStatuses,
	}
}

// ParseGitStatuses validates a list of git status names. Unrecognized
// names are a configuration error, never a silent unknown.
func ParseGitStatuses(values []string) ([]entry.GitStatus, error) {
	var statuses []entry.GitStatus
	for _, s := range values {
		status := entry.ParseGitStatus(s)
		if status == entry.GitUnknown && strings.ToLower(strings.TrimSpace(s)) != string(entry.GitUnknown) {
			return nil, fmt.Errorf("invalid git status %q: expected tracked, modified, untracked or unknown", s)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// ParseWorkers parses a worker count; "auto" or empty selects 0, which
// downstream resolves to the available parallelism.
func ParseWorkers(s string) (int, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == "auto" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid workers value %q: expected a number or \"auto\"", s)
	}
	return n, nil
}

// ParseAge parses an age like 30d, 4w, 6m or 1y into days. A bare
// number is taken as days.
func ParseAge(s string) (int, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, fmt.Errorf("empty age")
	}

	multiplier := 1
	switch s[len(s)-1] {
	case 'd':
		s = s[:len(s)-1]
	case 'w':
		multiplier = 7
		s = s[:len(s)-1]
	case 'm':
		multiplier = 30
		s = s[:len(s)-1]
	case 'y':
		multiplier = 365
		s = s[:len(s)-1]
	}

	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid age %q: expected forms like 30d, 4w, 6m, 1y", s)
	}
	return n * multiplier, nil
}

func parseOptionalAge(s string) (int, error) {
	if strings.TrimSpace(s) == "" {
		return filter.Unlimited, nil
	}
	return ParseAge(s)
}

func parseOptionalSize(s string) (int64, error) {
	if strings.TrimSpace(s) == "" {
		return filter.Unlimited, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return int64(n), nil
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// String returns a string representation of the configuration
func (c Config) String() string {
	return fmt.Sprintf(
		"Config{Workers: %d, MaxDepth: %d, IncludeHidden: %v, Output: %s, "+
			"TopN: %d, Cache: %v, Include: %v, Exclude: %v}",
		c.Workers, c.MaxDepth, c.IncludeHidden, c.Output,
		c.TopN, c.CacheEnabled, c.Include, c.Exclude,
	)
}
