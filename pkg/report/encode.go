package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Maverick-D-Aece/dirstat-pro/pkg/analyze"
	"github.com/Maverick-D-Aece/dirstat-pro/pkg/logger"
)

func (f *formatter) formatJSON(rep *analyze.Report) (string, error) {
	f.log.Debug("Formatting JSON output")

	bytes, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		f.log.WithFields(logger.Fields{
			"error": err,
		}).Error("Failed to marshal JSON")
		return "", err
	}
	return string(bytes), nil
}

func (f *formatter) formatYAML(rep *analyze.Report) (string, error) {
	f.log.Debug("Formatting YAML output")

	bytes, err := yaml.Marshal(rep)
	if err != nil {
		f.log.WithFields(logger.Fields{
			"error": err,
		}).Error("Failed to marshal YAML")
		return "", err
	}
	return string(bytes), nil
}

// formatCSV emits one row per reported entry, suitable for spreadsheet
// import. Summary numbers live in the other formats.
func (f *formatter) formatCSV(rep *analyze.Report) (string, error) {
	f.log.Debug("Formatting CSV output")

	var b strings.Builder
	w := csv.NewWriter(&b)

	if err := w.Write([]string{"path", "type", "size", "modified", "ext", "git_status"}); err != nil {
		return "", err
	}
	for _, e := range rep.Entries() {
		kind := "file"
		switch {
		case e.IsDir:
			kind = "dir"
		case e.IsSymlink:
			kind = "symlink"
		}
		row := []string{
			e.RelPath,
			kind,
			strconv.FormatInt(e.Size, 10),
			e.ModTime.Format("2006-01-02T15:04:05Z07:00"),
			e.Ext,
			string(e.GitStatus),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (f *formatter) formatMarkdown(rep *analyze.Report) (string, error) {
	f.log.Debug("Formatting Markdown output")

	var b strings.Builder
	fmt.Fprintf(&b, "# Scan Report: %s\n\n", rep.Root)
	fmt.Fprintf(&b, "| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Files | %d |\n", rep.Files)
	fmt.Fprintf(&b, "| Directories | %d |\n", rep.Dirs)
	fmt.Fprintf(&b, "| Total size | %d |\n", rep.TotalSize)
	fmt.Fprintf(&b, "| Duplicate sets | %d |\n", len(rep.Duplicates))
	fmt.Fprintf(&b, "| Reclaimable | %d |\n", rep.DuplicateSavings)

	if len(rep.Extensions) > 0 {
		b.WriteString("\n## Extensions\n\n| Extension | Count | Size |\n|---|---|---|\n")
		for _, ext := range rep.Extensions {
			name := ext.Ext
			if name == "" {
				name = "(none)"
			}
			fmt.Fprintf(&b, "| %s | %d | %d |\n", name, ext.Count, ext.Size)
		}
	}

	if len(rep.TopFiles) > 0 {
		b.WriteString("\n## Largest Files\n\n| Path | Size |\n|---|---|\n")
		for _, e := range rep.TopFiles {
			fmt.Fprintf(&b, "| %s | %d |\n", e.RelPath, e.Size)
		}
	}

	if len(rep.Duplicates) > 0 {
		b.WriteString("\n## Duplicates\n\n")
		for _, set := range rep.Duplicates {
			fmt.Fprintf(&b, "- %d files, %d bytes each:\n", len(set.Entries), set.Size)
			for _, e := range set.Entries {
				fmt.Fprintf(&b, "  - `%s`\n", e.RelPath)
			}
		}
	}

	if len(rep.Warnings) > 0 {
		b.WriteString("\n## Warnings\n\n")
		for _, w := range rep.Warnings {
			fmt.Fprintf(&b, "- %s: %s (%s)\n", w.Op, w.Path, w.Message)
		}
	}

	return b.String(), nil
}
