package report

import (
	"time"

	"github.com/yuya-takeyama/strict-fs-sync/internal/clock"
)

// Progress estimates completion of a run with a known number of files
type Progress struct {
	total int
	start time.Time
	clock clock.Clock
}

func NewProgress(total int, clk clock.Clock) *Progress {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Progress{total: total, start: clk.Now(), clock: clk}
}

func (p *Progress) Total() int {
	return p.total
}

// Percent returns processed/total as a whole percentage capped at 100
func (p *Progress) Percent(processed int) int {
	if p.total <= 0 {
		return 100
	}
	pct := int(float64(processed) / float64(p.total) * 100)
	if pct > 100 {
		return 100
	}
	return pct
}

// Remaining extrapolates the average time per processed file over the files left
func (p *Progress) Remaining(processed int) time.Duration {
	if processed <= 0 || processed >= p.total {
		return 0
	}
	elapsed := p.clock.Now().Sub(p.start)
	perFile := elapsed / time.Duration(processed)
	return perFile * time.Duration(p.total-processed)
}
