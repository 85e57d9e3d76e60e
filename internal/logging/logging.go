package logging

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/yuya-takeyama/strict-fs-sync/pkg/copier"
	"github.com/yuya-takeyama/strict-fs-sync/pkg/report"
)

// Printer writes human-facing run output. Structured operation logs go through
// pkg/logger; this is only for the lines a user reads at the end of a run.
type Printer struct {
	out   io.Writer
	quiet bool
}

// NewPrinter creates a new printer
func NewPrinter(out io.Writer, quiet bool) *Printer {
	return &Printer{out: out, quiet: quiet}
}

// Passthru prints one line per result as it arrives
func (p *Printer) Passthru(r copier.Result) {
	status := "OK"
	if !r.Matched {
		status = "FAILED"
	}
	line := fmt.Sprintf("%s\t%s -> %s\t%s\t%s/%s",
		status, r.Source, r.Destination, humanize.IBytes(r.Size), r.SourceChecksum, r.DestinationChecksum)
	if r.ErrorMessage != "" {
		line += "\t" + r.ErrorMessage
	}
	fmt.Fprintln(p.out, line)
}

// PrintSummary prints a summary of the run
func (p *Printer) PrintSummary(rep report.Report, removed int, duration time.Duration) {
	if p.quiet && !rep.Failed() {
		return
	}

	copied := rep.FileCount - uint64(len(rep.FailedItems))

	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, "=== Summary ===")
	fmt.Fprintf(p.out, "Copied: %s files (%s)\n", humanize.Comma(int64(copied)), humanize.IBytes(rep.TotalBytes))
	fmt.Fprintf(p.out, "Removed: %d\n", removed)
	if rep.Failed() {
		fmt.Fprintf(p.out, "Failed: %d\n", len(rep.FailedItems))
		for _, r := range rep.FailedItems {
			reason := r.ErrorMessage
			if reason == "" {
				reason = "checksum mismatch"
			}
			fmt.Fprintf(p.out, "  %s: %s\n", r.Source, reason)
		}
	}
	if duration > 0 && rep.TotalBytes > 0 {
		rate := uint64(float64(rep.TotalBytes) / duration.Seconds())
		fmt.Fprintf(p.out, "Throughput: %s/s\n", humanize.IBytes(rate))
	}
	fmt.Fprintf(p.out, "Duration: %s\n", duration.Round(time.Millisecond))
}
