package planner

import (
	"context"

	"github.com/yuya-takeyama/strict-fs-sync/pkg/snapshot"
)

type Planner interface {
	Plan(ctx context.Context, source Source, dest Destination, opts Options) (*Plan, error)
}

type Mode string

const (
	ModeCopy Mode = "copy"
	ModeMove Mode = "move"
	ModeSync Mode = "sync"
)

type Source struct {
	Root      string
	Filter    string
	Recursive bool
	ListFile  string // Explicit file list; replaces Filter and Recursive when set
}

type Destination struct {
	Root string
}

type Options struct {
	Mode     Mode
	Excludes []string
	Workers  int // Parallel checksum workers for equal-size pairs
}

type Action string

const (
	ActionMkdir  Action = "mkdir"
	ActionDelete Action = "delete"
	ActionRmdir  Action = "rmdir"
	ActionCopy   Action = "copy"
)

type Item struct {
	Action      Action `json:"action" yaml:"action"`
	Source      string `json:"source,omitempty" yaml:"source,omitempty"`
	Destination string `json:"destination" yaml:"destination"`
	Size        uint64 `json:"size,omitempty" yaml:"size,omitempty"`
	Reason      string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Plan is the set of changes that makes a destination reflect a source.
// Slices are ordered by key and the plan is consumed once by the executor.
type Plan struct {
	SourceRoot      string                `json:"source_root" yaml:"source_root"`
	DestinationRoot string                `json:"destination_root" yaml:"destination_root"`
	FoldersToCreate []string              `json:"folders_to_create" yaml:"folders_to_create"`
	FoldersToRemove []string              `json:"folders_to_remove" yaml:"folders_to_remove"`
	FilesToCopy     []Item                `json:"files_to_copy" yaml:"files_to_copy"`
	FilesToRemove   []snapshot.FileRecord `json:"files_to_remove" yaml:"files_to_remove"`
}

// Items flattens the plan into execution order
func (p *Plan) Items() []Item {
	items := []Item{}
	for _, dir := range p.FoldersToCreate {
		items = append(items, Item{Action: ActionMkdir, Destination: dir})
	}
	for _, rec := range p.FilesToRemove {
		items = append(items, Item{Action: ActionDelete, Destination: rec.FullPath, Size: rec.Size, Reason: "not in source"})
	}
	for _, dir := range p.FoldersToRemove {
		items = append(items, Item{Action: ActionRmdir, Destination: dir, Reason: "not in source"})
	}
	return append(items, p.FilesToCopy...)
}

// Empty reports whether applying the plan would change nothing
func (p *Plan) Empty() bool {
	return len(p.FoldersToCreate) == 0 && len(p.FoldersToRemove) == 0 &&
		len(p.FilesToCopy) == 0 && len(p.FilesToRemove) == 0
}

type Summary struct {
	FoldersToCreate int    `json:"folders_to_create" yaml:"folders_to_create"`
	FoldersToRemove int    `json:"folders_to_remove" yaml:"folders_to_remove"`
	FilesToCopy     int    `json:"files_to_copy" yaml:"files_to_copy"`
	FilesToRemove   int    `json:"files_to_remove" yaml:"files_to_remove"`
	BytesToCopy     uint64 `json:"bytes_to_copy" yaml:"bytes_to_copy"`
}

func (p *Plan) Summary() Summary {
	s := Summary{
		FoldersToCreate: len(p.FoldersToCreate),
		FoldersToRemove: len(p.FoldersToRemove),
		FilesToCopy:     len(p.FilesToCopy),
		FilesToRemove:   len(p.FilesToRemove),
	}
	for _, item := range p.FilesToCopy {
		s.BytesToCopy += item.Size
	}
	return s
}
