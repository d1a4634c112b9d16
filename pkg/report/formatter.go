/*
Package report renders a completed analysis into the supported output
formats: a colored text summary, JSON, YAML, CSV, and Markdown.

Basic usage:

	formatter := report.NewFormatter(report.Config{
		Format:     report.FormatText,
		WithColors: true,
	}, log)

	out, err := formatter.Format(rep)
*/
package report

import (
	"fmt"

	"github.com/Maverick-D-Aece/dirstat-pro/pkg/analyze"
	"github.com/Maverick-D-Aece/dirstat-pro/pkg/logger"
)

// Format represents the output format type
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatText, FormatJSON, FormatYAML, FormatCSV, FormatMarkdown:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// Config holds formatter configuration
type Config struct {
	Format     Format
	WithColors bool
}

// Formatter defines the interface for report rendering
type Formatter interface {
	Format(*analyze.Report) (string, error)
}

type formatter struct {
	config Config
	log    logger.Logger
}

// NewFormatter creates a new formatter instance
func NewFormatter(config Config, log logger.Logger) Formatter {
	if log == nil {
		log = logger.NewNop()
	}
	return &formatter{
		config: config,
		log:    log,
	}
}

func (f *formatter) Format(rep *analyze.Report) (string, error) {
	if rep == nil {
		f.log.Error("nil report provided for formatting")
		return "", fmt.Errorf("nil report provided for formatting")
	}

	f.log.WithFields(logger.Fields{
		"format":     f.config.Format,
		"withColors": f.config.WithColors,
	}).Debug("Starting format operation")

	switch f.config.Format {
	case FormatText:
		return f.formatText(rep)
	case FormatJSON:
		return f.formatJSON(rep)
	case FormatYAML:
		return f.formatYAML(rep)
	case FormatCSV:
		return f.formatCSV(rep)
	case FormatMarkdown:
		return f.formatMarkdown(rep)
	default:
		msg := fmt.Sprintf("unsupported format: %s", f.config.Format)
		f.log.Error(msg)
		return "", fmt.Errorf("%s", msg)
	}
}
