// Package progress renders the single-line ingestion status shown while a
// log is being read.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/deadbeesec/sysmon-pstree/internal/summary"
)

// Reporter rewrites one status line in place. It is silent unless its
// output is a terminal.
type Reporter struct {
	mu      sync.Mutex
	out     io.Writer
	printer *message.Printer
	enabled bool
	wrote   bool
}

// New returns a reporter on stderr, enabled when stderr is a terminal.
func New() *Reporter {
	fd := os.Stderr.Fd()
	return NewWriter(os.Stderr, isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd))
}

// NewWriter returns a reporter on out. enabled forces the terminal check.
func NewWriter(out io.Writer, enabled bool) *Reporter {
	return &Reporter{out: out, printer: message.NewPrinter(language.English), enabled: enabled}
}

// Enabled reports whether updates are written.
func (r *Reporter) Enabled() bool {
	return r != nil && r.enabled
}

// Update overwrites the status line with the counters in s.
func (r *Reporter) Update(s summary.Summary) {
	if !r.Enabled() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.printer.Fprintf(r.out, "\r Processing: %d events | Processes: %d | Speed: %.0f events/sec",
		s.TotalEvents, s.ProcessEvents, s.EventsPerSecond())
	r.wrote = true
}

// Done terminates the status line if one was written.
func (r *Reporter) Done() {
	if !r.Enabled() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.wrote {
		fmt.Fprintln(r.out)
		r.wrote = false
	}
}
