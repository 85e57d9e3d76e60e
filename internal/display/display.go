// Package display renders run progress on the user's terminal.
//
// A Display is acquired for the duration of a run and must be released, which
// restores the terminal state captured at acquisition.
package display

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/yuya-takeyama/strict-fs-sync/pkg/report"
	"golang.org/x/term"
)

const (
	hideCursor   = "\x1b[?25l"
	showCursor   = "\x1b[?25h"
	defaultWidth = 80
)

type Display struct {
	mu       sync.Mutex
	out      io.Writer
	fd       int
	terminal bool
	state    *term.State
	width    int
	released bool
}

// Acquire takes over f for progress output. When f is not a terminal the
// display degrades to one plain line per update.
func Acquire(f *os.File) (*Display, error) {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return New(f), nil
	}

	state, err := term.GetState(fd)
	if err != nil {
		return nil, fmt.Errorf("failed to get terminal state: %w", err)
	}

	width := defaultWidth
	if w, _, err := term.GetSize(fd); err == nil && w > 0 {
		width = w
	}

	d := &Display{out: f, fd: fd, terminal: true, state: state, width: width}
	fmt.Fprint(d.out, hideCursor)
	return d, nil
}

// New creates a line-oriented display on out
func New(out io.Writer) *Display {
	return &Display{out: out, width: defaultWidth}
}

// Update renders the state after processed files
func (d *Display) Update(p *report.Progress, processed int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.released {
		return
	}

	line := Format(p.Percent(processed), processed, p.Total(), p.Remaining(processed))
	if !d.terminal {
		fmt.Fprintln(d.out, line)
		return
	}

	if len(line) > d.width-1 {
		line = line[:d.width-1]
	}
	fmt.Fprintf(d.out, "\r%s%s", line, strings.Repeat(" ", d.width-1-len(line)))
}

// Release restores the terminal. It is safe to call more than once.
func (d *Display) Release() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.released {
		return nil
	}
	d.released = true

	if !d.terminal {
		return nil
	}

	fmt.Fprint(d.out, "\n"+showCursor)
	if err := term.Restore(d.fd, d.state); err != nil {
		return fmt.Errorf("failed to restore terminal: %w", err)
	}
	return nil
}

func Format(percent, processed, total int, remaining time.Duration) string {
	return fmt.Sprintf("[%3d%%] %d/%d files, ETA %s", percent, processed, total, remaining.Round(time.Second))
}
