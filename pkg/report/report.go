// Package report folds copy results into run totals and renders plan and
// result documents.
package report

import (
	"time"

	"github.com/yuya-takeyama/strict-fs-sync/pkg/copier"
)

// Report summarizes a stream of copy results
type Report struct {
	TotalTime   time.Duration   `json:"total_time" yaml:"total_time"` // Sum of per-file elapsed times
	FileCount   uint64          `json:"file_count" yaml:"file_count"`
	TotalBytes  uint64          `json:"total_bytes" yaml:"total_bytes"` // Bytes of matched files only
	FailedItems []copier.Result `json:"failed_items" yaml:"failed_items"`
}

// Failed reports whether any result did not match
func (r Report) Failed() bool {
	return len(r.FailedItems) > 0
}

// Aggregator accumulates results one at a time. It is not safe for concurrent use.
type Aggregator struct {
	report Report
}

func NewAggregator() *Aggregator {
	return &Aggregator{report: Report{FailedItems: []copier.Result{}}}
}

func (a *Aggregator) Add(r copier.Result) {
	a.report.TotalTime += r.Elapsed
	a.report.FileCount++

	if !r.Matched {
		a.report.FailedItems = append(a.report.FailedItems, r)
		return
	}
	a.report.TotalBytes += r.Size
}

func (a *Aggregator) Report() Report {
	return a.report
}

// Aggregate drains results and returns the totals
func Aggregate(results <-chan copier.Result) Report {
	a := NewAggregator()
	for r := range results {
		a.Add(r)
	}
	return a.Report()
}
