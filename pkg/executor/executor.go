package executor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/yuya-takeyama/strict-fs-sync/pkg/copier"
	"github.com/yuya-takeyama/strict-fs-sync/pkg/logger"
	"github.com/yuya-takeyama/strict-fs-sync/pkg/planner"
)

type Executor struct {
	fs          billy.Filesystem
	copier      *copier.Copier
	logger      logger.Logger
	concurrency int
}

// NewExecutor creates an Executor. A concurrency of 1 or less copies files
// strictly in plan order.
func NewExecutor(fs billy.Filesystem, copier *copier.Copier, logger logger.Logger, concurrency int) *Executor {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Executor{
		fs:          fs,
		copier:      copier,
		logger:      logger,
		concurrency: concurrency,
	}
}

// Execute applies plan in phases: folders are created, stale files and then
// stale folders are removed, and finally files are copied. One result per
// attempted copy is streamed on the returned channel, which is closed when
// the plan is exhausted or ctx is cancelled. Cancellation is observed between
// files; a copy in progress always completes. The caller must drain the
// channel.
func (e *Executor) Execute(ctx context.Context, plan *planner.Plan, opts copier.Options) <-chan copier.Result {
	results := make(chan copier.Result)

	go func() {
		defer close(results)

		e.createFolders(plan.FoldersToCreate)
		e.removeFiles(plan)
		e.removeFolders(plan.FoldersToRemove)

		if e.concurrency == 1 {
			e.copySequential(ctx, plan.FilesToCopy, opts, results)
			return
		}
		e.copyParallel(ctx, plan.FilesToCopy, opts, results)
	}()

	return results
}

func (e *Executor) createFolders(dirs []string) {
	for _, dir := range dirs {
		e.logger.Mkdir(dir)
		if err := e.fs.MkdirAll(dir, 0755); err != nil {
			e.logger.Error("mkdir", dir, err)
		}
	}
}

func (e *Executor) removeFiles(plan *planner.Plan) {
	for _, rec := range plan.FilesToRemove {
		e.logger.Delete(rec.FullPath)
		if err := e.fs.Remove(rec.FullPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			e.logger.Error("delete", rec.FullPath, err)
		}
	}
}

func (e *Executor) removeFolders(dirs []string) {
	for _, dir := range dirs {
		e.logger.Delete(dir)
		if err := util.RemoveAll(e.fs, dir); err != nil && !errors.Is(err, fs.ErrNotExist) {
			e.logger.Error("rmdir", dir, err)
		}
	}
}

func (e *Executor) copySequential(ctx context.Context, items []planner.Item, opts copier.Options, results chan<- copier.Result) {
	for _, item := range items {
		if ctx.Err() != nil {
			return
		}
		results <- e.copyItem(item, opts)
	}
}

func (e *Executor) copyParallel(ctx context.Context, items []planner.Item, opts copier.Options, results chan<- copier.Result) {
	sem := make(chan struct{}, e.concurrency)
	var wg sync.WaitGroup

	for _, item := range items {
		if ctx.Err() != nil {
			break
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(itm planner.Item) {
			defer wg.Done()
			defer func() { <-sem }()

			results <- e.copyItem(itm, opts)
		}(item)
	}

	wg.Wait()
}

func (e *Executor) copyItem(item planner.Item, opts copier.Options) copier.Result {
	e.logger.Copy(item.Source, item.Destination)

	result := e.copier.CopyOne(item.Source, item.Destination, opts)

	switch {
	case result.ErrorMessage != "":
		e.logger.Error("copy", item.Destination, errors.New(result.ErrorMessage))
	case !result.Matched:
		e.logger.Error("verify", item.Destination,
			fmt.Errorf("checksum mismatch: source %s, destination %s", result.SourceChecksum, result.DestinationChecksum))
	}

	return result
}
