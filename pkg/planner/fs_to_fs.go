package planner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/yuya-takeyama/strict-fs-sync/internal/checksum"
	"github.com/yuya-takeyama/strict-fs-sync/pkg/fserr"
	"github.com/yuya-takeyama/strict-fs-sync/pkg/logger"
	"github.com/yuya-takeyama/strict-fs-sync/pkg/snapshot"
)

type FSToFSPlanner struct {
	fs     billy.Filesystem
	logger logger.Logger
}

func NewFSToFSPlanner(fs billy.Filesystem, logger logger.Logger) *FSToFSPlanner {
	return &FSToFSPlanner{
		fs:     fs,
		logger: logger,
	}
}

func (p *FSToFSPlanner) Plan(ctx context.Context, source Source, dest Destination, opts Options) (*Plan, error) {
	builder, err := snapshot.NewBuilder(p.fs, opts.Excludes)
	if err != nil {
		return nil, err
	}

	sourceRoot := snapshot.TrimRoot(source.Root)
	destRoot := snapshot.TrimRoot(dest.Root)

	switch opts.Mode {
	case ModeCopy, ModeMove:
		if filepath.Clean(sourceRoot) == filepath.Clean(destRoot) {
			return nil, fserr.Newf(fserr.InvalidArgument, "plan", destRoot, "destination is the source root")
		}

		var records []snapshot.FileRecord
		if source.ListFile != "" {
			records, err = builder.FromList(sourceRoot, source.ListFile)
		} else {
			records, err = builder.Build(sourceRoot, source.Filter, source.Recursive)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to snapshot source: %w", err)
		}
		return CopyPlan(sourceRoot, destRoot, records), nil

	case ModeSync:
		return p.planSync(ctx, builder, sourceRoot, destRoot, source, opts)

	default:
		return nil, fmt.Errorf("unknown mode %q", opts.Mode)
	}
}

func (p *FSToFSPlanner) planSync(ctx context.Context, builder *snapshot.Builder, sourceRoot, destRoot string, source Source, opts Options) (*Plan, error) {
	destRoot = NestedDestination(sourceRoot, destRoot)
	p.logger.Debug(fmt.Sprintf("mirroring %s into %s", sourceRoot, destRoot))

	sourceRecords, err := builder.Build(sourceRoot, source.Filter, source.Recursive)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot source: %w", err)
	}

	destMissing := false
	if _, err := p.fs.Stat(destRoot); errors.Is(err, fs.ErrNotExist) {
		destMissing = true
	}

	var destRecords []snapshot.FileRecord
	if !destMissing {
		destRecords, err = builder.Build(destRoot, source.Filter, source.Recursive)
		if err != nil {
			return nil, fmt.Errorf("failed to snapshot destination: %w", err)
		}
	}

	phase1 := Phase1Compare(sourceRecords, destRecords)

	checksums, err := p.Phase2CollectChecksums(ctx, phase1.NeedChecksum, opts.Workers)
	if err != nil {
		return nil, fmt.Errorf("failed to collect checksums: %w", err)
	}

	plan := Phase3GeneratePlan(phase1, checksums, sourceRoot, destRoot)
	if destMissing {
		plan.FoldersToCreate = append([]string{destRoot}, plan.FoldersToCreate...)
	}

	p.logPlan(plan)
	return plan, nil
}

// Phase2CollectChecksums hashes both sides of every equal-size pair
func (p *FSToFSPlanner) Phase2CollectChecksums(ctx context.Context, items []ItemRef, workers int) ([]ChecksumData, error) {
	hasher := func(rec snapshot.FileRecord) (string, error) {
		if rec.ContentHash != "" {
			return rec.ContentHash, nil
		}
		return checksum.CalculateFile(p.fs, rec.FullPath)
	}
	return collectChecksums(ctx, items, hasher, workers, p.logger)
}

func collectChecksums(ctx context.Context, items []ItemRef, hasher Hasher, workers int, log logger.Logger) ([]ChecksumData, error) {
	if workers <= 0 {
		workers = 1
	}
	if log == nil {
		log = logger.NullLogger{}
	}

	results := make([]ChecksumData, len(items))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return nil, err
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, ref ItemRef) {
			defer wg.Done()
			defer func() { <-sem }()

			data := ChecksumData{ItemRef: ref}
			data.SourceChecksum, data.Err = hasher(ref.Source)
			if data.Err == nil {
				data.DestChecksum, data.Err = hasher(ref.Dest)
			}
			if data.Err != nil {
				log.Warn("checksum", ref.Key, data.Err)
			}
			results[idx] = data
		}(i, item)
	}

	wg.Wait()
	return results, nil
}

func (p *FSToFSPlanner) logPlan(plan *Plan) {
	for _, dir := range plan.FoldersToCreate {
		p.logger.Debug("dir to create: " + dir)
	}
	for _, dir := range plan.FoldersToRemove {
		p.logger.Debug("dir to remove: " + dir)
	}
	for _, item := range plan.FilesToCopy {
		p.logger.Debug(fmt.Sprintf("file to copy: %s (%s)", item.Source, item.Reason))
	}
	for _, rec := range plan.FilesToRemove {
		p.logger.Debug("file to remove: " + rec.FullPath)
	}
}
