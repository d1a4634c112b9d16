/*
Package progress renders live scan feedback on the terminal. A scan has
no known total, so the display is a spinner with running counters
rather than a percentage bar. On non-terminal writers only the start
and completion lines are printed.
*/
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	"github.com/Maverick-D-Aece/dirstat-pro/pkg/logger"
)

// Status carries the running counters shown next to the spinner.
type Status struct {
	Files       int64
	Dirs        int64
	Bytes       int64
	CurrentPath string
}

// Config holds the configuration for progress display
type Config struct {
	// NoColor disables colored output
	NoColor bool

	// RefreshRate defines how often the display updates
	RefreshRate time.Duration

	// Writer receives the rendered output; defaults to stderr
	Writer io.Writer
}

// Progress defines the interface for scan feedback
type Progress interface {
	// Start begins the display with an initial message
	Start(message string)

	// Update replaces the running counters
	Update(status Status)

	// Complete stops the display with a success message
	Complete(message string)

	// Error stops the display with a failure message
	Error(message string)

	// Stop tears the display down without a closing message
	Stop()

	// IsSupportedTerminal reports whether the writer is a live terminal
	IsSupportedTerminal() bool
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

type progress struct {
	config Config
	writer io.Writer
	log    logger.Logger

	mu       sync.Mutex
	status   Status
	message  string
	frame    int
	active   bool
	stopChan chan struct{}
	doneChan chan struct{}
}

// New creates a progress display.
func New(config Config, log logger.Logger) Progress {
	if config.RefreshRate <= 0 {
		config.RefreshRate = 100 * time.Millisecond
	}
	if config.Writer == nil {
		config.Writer = os.Stderr
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &progress{
		config: config,
		writer: config.Writer,
		log:    log,
	}
}

func (p *progress) Start(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active {
		return
	}
	p.message = message
	p.status = Status{}
	p.active = true

	if !p.IsSupportedTerminal() {
		fmt.Fprintln(p.writer, message)
		return
	}

	p.stopChan = make(chan struct{})
	p.doneChan = make(chan struct{})
	go p.renderLoop()
}

func (p *progress) Update(status Status) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = status
}

func (p *progress) Complete(message string) {
	p.finish(message, false)
}

func (p *progress) Error(message string) {
	p.finish(message, true)
}

func (p *progress) Stop() {
	p.finish("", false)
}

func (p *progress) IsSupportedTerminal() bool {
	if f, ok := p.writer.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

func (p *progress) finish(message string, failed bool) {
	p.mu.Lock()
	if !p.active {
		p.mu.Unlock()
		return
	}
	p.active = false
	stop := p.stopChan
	done := p.doneChan
	p.stopChan = nil
	p.doneChan = nil
	p.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
		p.clearLine()
	}

	if message == "" {
		return
	}
	if !p.config.NoColor && p.IsSupportedTerminal() {
		code := "\033[32m" // green
		if failed {
			code = "\033[31m"
		}
		fmt.Fprintf(p.writer, "%s%s\033[0m\n", code, message)
		return
	}
	fmt.Fprintln(p.writer, message)
}

func (p *progress) renderLoop() {
	ticker := time.NewTicker(p.config.RefreshRate)
	defer ticker.Stop()
	defer close(p.doneChan)

	for {
		select {
		case <-p.stopChan:
			return
		case <-ticker.C:
			p.mu.Lock()
			p.render()
			p.mu.Unlock()
		}
	}
}

func (p *progress) render() {
	p.frame = (p.frame + 1) % len(spinnerFrames)
	spinner := spinnerFrames[p.frame]
	if !p.config.NoColor {
		spinner = fmt.Sprintf("\033[36m%s\033[0m", spinner)
	}

	line := fmt.Sprintf("%s %s  %s files, %s dirs, %s",
		spinner,
		p.message,
		humanize.Comma(p.status.Files),
		humanize.Comma(p.status.Dirs),
		humanize.IBytes(uint64(p.status.Bytes)),
	)
	if p.status.CurrentPath != "" {
		line += "  " + truncate(p.status.CurrentPath, 40)
	}

	p.clearLine()
	fmt.Fprint(p.writer, line)
}

func (p *progress) clearLine() {
	fmt.Fprint(p.writer, "\r\033[K")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max+3:]
}
