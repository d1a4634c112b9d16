/*
Package commands implements the CLI command structure for dirstat. It
provides the root command and the scan, dupes, watch and version
subcommands, with flag handling layered over the environment
configuration.
*/
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Maverick-D-Aece/dirstat-pro/internal/config"
	"github.com/Maverick-D-Aece/dirstat-pro/internal/version"
)

// Options holds command-line options that apply to all commands
type Options struct {
	Config     *config.Config
	Verbosity  int
	NoProgress bool
	NoColor    bool
}

// NewRootCommand creates the root command for the application
func NewRootCommand() *cobra.Command {
	opts := &Options{}

	rootCmd := &cobra.Command{
		Use:   "dirstat [command] [flags] <path>",
		Short: "Directory analysis and storage reporting tool",
		Long: `dirstat ` + version.Version + `

Analyzes directory trees concurrently and reports size totals, extension
breakdowns, largest files, duplicate content and storage findings such
as temporary, backup and compressible files. A fingerprint cache keeps
repeated scans cheap, and watch mode keeps a report current as files
change.

Configuration comes from DIRSTAT_* environment variables; command-line
flags override them.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initializeCommand(cmd, opts)
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().CountVarP(&opts.Verbosity, "verbose", "v",
		"verbose output (can be used multiple times)")
	rootCmd.PersistentFlags().BoolVar(&opts.NoProgress, "no-progress", false,
		"disable progress reporting")
	rootCmd.PersistentFlags().BoolVar(&opts.NoColor, "no-color", false,
		"disable colored output")

	rootCmd.AddCommand(
		newScanCommand(opts),
		newDupesCommand(opts),
		newWatchCommand(opts),
		newVersionCommand(),
	)

	return rootCmd
}

// initializeCommand performs common initialization for all commands
func initializeCommand(cmd *cobra.Command, opts *Options) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if opts.Verbosity > 0 {
		cfg.Verbose = opts.Verbosity
	}
	if opts.NoProgress {
		cfg.NoProgress = true
	}
	if opts.NoColor {
		cfg.NoColor = true
	}

	opts.Config = &cfg
	return nil
}
