package report

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/Maverick-D-Aece/dirstat-pro/pkg/analyze"
)

// maxListed caps the extension and duplicate listings in text output;
// the structured formats carry everything.
const maxListed = 15

func (f *formatter) formatText(rep *analyze.Report) (string, error) {
	f.log.Debug("Formatting text output")

	var b strings.Builder

	heading := func(s string) string { return s }
	dim := func(s string) string { return s }
	if f.config.WithColors {
		blue := color.New(color.FgBlue, color.Bold)
		faint := color.New(color.Faint)
		heading = func(s string) string { return blue.Sprint(s) }
		dim = func(s string) string { return faint.Sprint(s) }
	}

	b.WriteString(heading(rep.Root) + "\n")
	b.WriteString(fmt.Sprintf("  Files: %d  Directories: %d  Symlinks: %d\n", rep.Files, rep.Dirs, rep.Symlinks))
	b.WriteString(fmt.Sprintf("  Total Size: %s\n", humanize.IBytes(uint64(rep.TotalSize))))

	if len(rep.Extensions) > 0 {
		b.WriteString("\n" + heading("By Extension:") + "\n")
		for i, ext := range rep.Extensions {
			if i >= maxListed {
				b.WriteString(dim(fmt.Sprintf("  ... and %d more\n", len(rep.Extensions)-maxListed)))
				break
			}
			name := ext.Ext
			if name == "" {
				name = "(none)"
			}
			b.WriteString(fmt.Sprintf("  %-12s %6d  %10s\n", name, ext.Count, humanize.IBytes(uint64(ext.Size))))
		}
	}

	if len(rep.TopFiles) > 0 {
		b.WriteString("\n" + heading("Largest Files:") + "\n")
		for _, e := range rep.TopFiles {
			b.WriteString(fmt.Sprintf("  %10s  %s\n", humanize.IBytes(uint64(e.Size)), e.RelPath))
		}
	}

	if len(rep.Duplicates) > 0 {
		b.WriteString("\n" + heading("Duplicates:") + "\n")
		for i, set := range rep.Duplicates {
			if i >= maxListed {
				b.WriteString(dim(fmt.Sprintf("  ... and %d more sets\n", len(rep.Duplicates)-maxListed)))
				break
			}
			b.WriteString(fmt.Sprintf("  %d files x %s (reclaimable %s)\n",
				len(set.Entries), humanize.IBytes(uint64(set.Size)), humanize.IBytes(uint64(set.Savings()))))
			for _, e := range set.Entries {
				b.WriteString(dim(fmt.Sprintf("    %s\n", e.RelPath)))
			}
		}
		b.WriteString(fmt.Sprintf("  Total reclaimable: %s\n", humanize.IBytes(uint64(rep.DuplicateSavings))))
	}

	if hasStorageFindings(rep.Storage) {
		b.WriteString("\n" + heading("Storage Findings:") + "\n")
		writeStorageLine(&b, "Temp/cache", rep.Storage.TempCount, rep.Storage.TempSize)
		writeStorageLine(&b, "Old backups", rep.Storage.BackupCount, rep.Storage.BackupSize)
		writeStorageLine(&b, "Compressible", rep.Storage.CompressibleCount, rep.Storage.CompressibleSize)
	}

	if len(rep.Warnings) > 0 {
		warn := func(s string) string { return s }
		if f.config.WithColors {
			yellow := color.New(color.FgYellow)
			warn = func(s string) string { return yellow.Sprint(s) }
		}
		b.WriteString("\n" + warn(fmt.Sprintf("Warnings (%d):", len(rep.Warnings))) + "\n")
		for _, w := range rep.Warnings {
			b.WriteString(fmt.Sprintf("  %s: %s (%s)\n", w.Op, w.Path, w.Message))
		}
	}

	return b.String(), nil
}

func hasStorageFindings(s analyze.StorageStats) bool {
	return s.TempCount > 0 || s.BackupCount > 0 || s.CompressibleCount > 0
}

func writeStorageLine(b *strings.Builder, label string, count, size int64) {
	if count == 0 {
		return
	}
	b.WriteString(fmt.Sprintf("  %-13s %6d  %10s\n", label, count, humanize.IBytes(uint64(size))))
}
