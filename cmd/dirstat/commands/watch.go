package commands

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/Maverick-D-Aece/dirstat-pro/cmd/dirstat/app"
	"github.com/Maverick-D-Aece/dirstat-pro/pkg/report"
	"github.com/Maverick-D-Aece/dirstat-pro/pkg/watch"
)

type watchOptions struct {
	*Options
	scanFlags
	dupes       bool
	quietPeriod time.Duration
}

func newWatchCommand(opts *Options) *cobra.Command {
	wo := &watchOptions{
		Options: opts,
	}

	cmd := &cobra.Command{
		Use:   "watch [flags] <path>",
		Short: "Keep a report current as files change",
		Long: `Scan a directory tree once, then watch it for changes and refresh the
report incrementally after every debounced batch of filesystem events.
Runs until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return cmd.Help()
			}
			if err := applyScanFlags(cmd, wo.Config, &wo.scanFlags); err != nil {
				return err
			}
			return runWatch(args[0], wo)
		},
	}

	addScanFlags(cmd, &wo.scanFlags)
	cmd.Flags().BoolVar(&wo.dupes, "dupes", false,
		"include duplicate detection in the report")
	cmd.Flags().DurationVar(&wo.quietPeriod, "quiet-period", watch.DefaultQuietPeriod,
		"pause after the last event before a batch is processed")

	return cmd
}

func runWatch(path string, opts *watchOptions) error {
	application := app.New(opts.Config)
	defer application.Shutdown()

	err := application.Watch(path, &app.ScanOptions{
		Format:      report.Format(opts.Config.Output),
		OutputPath:  opts.Config.OutputFile,
		DetectDupes: opts.dupes,
		QuietPeriod: opts.quietPeriod,
	})
	if errors.Is(err, context.Canceled) {
		// Normal exit path for an interrupted watch session.
		return nil
	}
	return err
}
