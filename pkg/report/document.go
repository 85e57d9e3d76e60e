package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuya-takeyama/strict-fs-sync/pkg/copier"
	"github.com/yuya-takeyama/strict-fs-sync/pkg/planner"
	"gopkg.in/yaml.v3"
)

// PlanDocument represents the planned operations before execution
type PlanDocument struct {
	Mode            planner.Mode    `json:"mode" yaml:"mode"`
	SourceRoot      string          `json:"source_root" yaml:"source_root"`
	DestinationRoot string          `json:"destination_root" yaml:"destination_root"`
	Items           []planner.Item  `json:"items" yaml:"items"`
	Summary         planner.Summary `json:"summary" yaml:"summary"`
}

func NewPlanDocument(mode planner.Mode, plan *planner.Plan) PlanDocument {
	return PlanDocument{
		Mode:            mode,
		SourceRoot:      plan.SourceRoot,
		DestinationRoot: plan.DestinationRoot,
		Items:           plan.Items(),
		Summary:         plan.Summary(),
	}
}

// ResultDocument represents the actual execution results
type ResultDocument struct {
	Files   []copier.Result `json:"files" yaml:"files"`
	Errors  []copier.Result `json:"errors" yaml:"errors"`
	Summary ResultSummary   `json:"summary" yaml:"summary"`
}

type ResultSummary struct {
	Files       uint64  `json:"files" yaml:"files"`
	Copied      uint64  `json:"copied" yaml:"copied"`
	Failed      int     `json:"failed" yaml:"failed"`
	Bytes       uint64  `json:"bytes" yaml:"bytes"`
	TotalTimeMs float64 `json:"total_time_ms" yaml:"total_time_ms"`
}

func NewResultDocument(results []copier.Result, r Report) ResultDocument {
	files := results
	if files == nil {
		files = []copier.Result{}
	}
	return ResultDocument{
		Files:  files,
		Errors: r.FailedItems,
		Summary: ResultSummary{
			Files:       r.FileCount,
			Copied:      r.FileCount - uint64(len(r.FailedItems)),
			Failed:      len(r.FailedItems),
			Bytes:       r.TotalBytes,
			TotalTimeMs: float64(r.TotalTime.Microseconds()) / 1000,
		},
	}
}

// WriteFile writes v as YAML when path ends in .yaml or .yml, and as
// indented JSON otherwise
func WriteFile(path string, v any) error {
	var (
		data []byte
		err  error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
	default:
		data, err = json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}
