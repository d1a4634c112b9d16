package commands

import (
	"github.com/spf13/cobra"

	"github.com/Maverick-D-Aece/dirstat-pro/cmd/dirstat/app"
	"github.com/Maverick-D-Aece/dirstat-pro/pkg/report"
)

type dupesOptions struct {
	*Options
	scanFlags
}

func newDupesCommand(opts *Options) *cobra.Command {
	do := &dupesOptions{
		Options: opts,
	}

	cmd := &cobra.Command{
		Use:   "dupes [flags] <path>",
		Short: "Find duplicate files",
		Long: `Scan a directory tree and group files with identical content by
SHA-256 digest, reporting the space reclaimable from each group. Files
above --sample-ceiling are compared by sampled digests instead of full
content, which is faster but may rarely group non-identical files.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return cmd.Help()
			}
			if err := applyScanFlags(cmd, do.Config, &do.scanFlags); err != nil {
				return err
			}
			return runDupes(args[0], do)
		},
	}

	addScanFlags(cmd, &do.scanFlags)

	return cmd
}

func runDupes(path string, opts *dupesOptions) error {
	application := app.New(opts.Config)
	defer application.Shutdown()

	return application.Run(path, &app.ScanOptions{
		Format:      report.Format(opts.Config.Output),
		OutputPath:  opts.Config.OutputFile,
		DetectDupes: true,
	})
}
