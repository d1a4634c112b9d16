package commands

import (
	"github.com/spf13/cobra"

	"github.com/Maverick-D-Aece/dirstat-pro/cmd/dirstat/app"
	"github.com/Maverick-D-Aece/dirstat-pro/pkg/report"
)

type scanOptions struct {
	*Options
	scanFlags
	dupes bool
}

func newScanCommand(opts *Options) *cobra.Command {
	so := &scanOptions{
		Options: opts,
	}

	cmd := &cobra.Command{
		Use:   "scan [flags] <path>",
		Short: "Analyze a directory tree",
		Long: `Scan a directory tree and report size totals, extension breakdowns,
the largest files, git status counts and storage findings such as
temporary, backup and compressible files.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return cmd.Help()
			}
			if err := applyScanFlags(cmd, so.Config, &so.scanFlags); err != nil {
				return err
			}
			return runScan(args[0], so)
		},
	}

	addScanFlags(cmd, &so.scanFlags)
	cmd.Flags().BoolVar(&so.dupes, "dupes", false,
		"include duplicate detection in the report")

	return cmd
}

func runScan(path string, opts *scanOptions) error {
	application := app.New(opts.Config)
	defer application.Shutdown()

	return application.Run(path, &app.ScanOptions{
		Format:      report.Format(opts.Config.Output),
		OutputPath:  opts.Config.OutputFile,
		DetectDupes: opts.dupes,
	})
}
