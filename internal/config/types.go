package config

// Constants for configuration limits and defaults
const (
	// MaxWorkerMultiplier is the maximum multiple of CPU cores for worker count
	MaxWorkerMultiplier = 4

	// UnlimitedDepth represents unlimited directory depth
	UnlimitedDepth = -1

	// DefaultTopN is the default number of largest files reported
	DefaultTopN = 10

	// DefaultCachePath is the default cache database location
	DefaultCachePath = ".dirstat-cache.db"
)
