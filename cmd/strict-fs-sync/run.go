package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/go-git/go-billy/v5"
	"github.com/spf13/cobra"
	"github.com/yuya-takeyama/strict-fs-sync/internal/clock"
	"github.com/yuya-takeyama/strict-fs-sync/internal/config"
	"github.com/yuya-takeyama/strict-fs-sync/internal/display"
	"github.com/yuya-takeyama/strict-fs-sync/internal/logging"
	"github.com/yuya-takeyama/strict-fs-sync/internal/watch"
	"github.com/yuya-takeyama/strict-fs-sync/pkg/copier"
	"github.com/yuya-takeyama/strict-fs-sync/pkg/executor"
	"github.com/yuya-takeyama/strict-fs-sync/pkg/localfs"
	"github.com/yuya-takeyama/strict-fs-sync/pkg/logger"
	"github.com/yuya-takeyama/strict-fs-sync/pkg/planner"
	"github.com/yuya-takeyama/strict-fs-sync/pkg/report"
	"go.uber.org/zap"
)

// job is one fully resolved invocation
type job struct {
	mode   planner.Mode
	source planner.Source
	dest   planner.Destination
	cfg    *config.Config
	fs     billy.Filesystem
	log    *logger.SyncLogger
	out    *logging.Printer
}

func newJob(cmd *cobra.Command, mode planner.Mode, args []string) (*job, error) {
	loader := config.NewLoader()
	if err := loader.BindFlags(cmd.Flags()); err != nil {
		return nil, err
	}
	cfg, err := loader.Load(configFile)
	if err != nil {
		return nil, err
	}

	filter := cfg.Filter
	if len(args) > 2 {
		filter = args[2]
	}

	syncLogger, err := logger.NewSyncLogger(logger.Options{
		DryRun: dryRun,
		Quiet:  cfg.Quiet,
		Debug:  cfg.Debug,
		JSON:   cfg.LogFormat == "json",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	if used := loader.Used(); used != "" {
		syncLogger.Debug("using config file " + used)
	}

	j := &job{
		mode: mode,
		source: planner.Source{
			Root:      args[0],
			Filter:    filter,
			Recursive: recurse || mode == planner.ModeSync,
		},
		dest: planner.Destination{Root: args[1]},
		cfg:  cfg,
		fs:   localfs.NewOS(),
		log:  syncLogger,
		out:  logging.NewPrinter(os.Stdout, cfg.Quiet),
	}
	if mode != planner.ModeSync {
		j.source.ListFile = listFile
	}

	return j, nil
}

func run(cmd *cobra.Command, mode planner.Mode, args []string) error {
	j, err := newJob(cmd, mode, args)
	if err != nil {
		return err
	}
	defer j.log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep, err := j.execute(ctx)
	if err != nil {
		return err
	}
	if rep.Failed() {
		return fmt.Errorf("%d operations failed", len(rep.FailedItems))
	}
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	j, err := newJob(cmd, planner.ModeSync, args)
	if err != nil {
		return err
	}
	defer j.log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := j.execute(ctx); err != nil {
		return err
	}

	sourceRoot := filepath.Clean(j.source.Root)
	mirror := planner.NestedDestination(sourceRoot, filepath.Clean(j.dest.Root))

	w, err := watch.New(j.log.Zap(), j.cfg.WatchDebounce, mirror)
	if err != nil {
		return err
	}

	return w.Run(ctx, sourceRoot, func(ctx context.Context, changed []string) error {
		j.log.Zap().Info("source changed, syncing", zap.Int("paths", len(changed)))
		rep, err := j.execute(ctx)
		if err != nil {
			return err
		}
		if rep.Failed() {
			return fmt.Errorf("%d operations failed", len(rep.FailedItems))
		}
		return nil
	})
}

// execute plans and applies one run. Per-file failures are reported in the
// returned Report; only failures that stop the whole run are returned as errors.
func (j *job) execute(ctx context.Context) (report.Report, error) {
	started := clock.Real{}.Now()

	plnr := planner.NewFSToFSPlanner(j.fs, j.log)
	plan, err := plnr.Plan(ctx, j.source, j.dest, planner.Options{
		Mode:     j.mode,
		Excludes: j.cfg.Excludes,
		Workers:  j.cfg.Workers,
	})
	if err != nil {
		return report.Report{}, fmt.Errorf("failed to generate plan: %w", err)
	}

	if planJSONFile != "" {
		if err := report.WriteFile(planJSONFile, report.NewPlanDocument(j.mode, plan)); err != nil {
			return report.Report{}, fmt.Errorf("failed to write plan: %w", err)
		}
	}

	if dryRun {
		// In dry-run mode, just log the operations
		for _, item := range plan.Items() {
			switch item.Action {
			case planner.ActionMkdir:
				j.log.Mkdir(item.Destination)
			case planner.ActionDelete, planner.ActionRmdir:
				j.log.Delete(item.Destination)
			case planner.ActionCopy:
				j.log.Copy(item.Source, item.Destination)
			}
		}
		return report.NewAggregator().Report(), nil
	}

	opts := copier.Options{
		Overwrite: overwrite || j.mode == planner.ModeSync,
		Fast:      j.cfg.Fast,
		Move:      j.mode == planner.ModeMove,
	}
	cp := copier.NewCopier(j.fs, j.log, clock.Real{})
	exec := executor.NewExecutor(j.fs, cp, j.log, j.cfg.Concurrency)

	var (
		disp     *display.Display
		progress *report.Progress
	)
	if j.cfg.ShowProgress {
		disp, err = display.Acquire(os.Stderr)
		if err != nil {
			return report.Report{}, err
		}
		defer disp.Release()
		progress = report.NewProgress(len(plan.FilesToCopy), clock.Real{})
	}

	results := []copier.Result{}
	rep := report.Aggregate(observe(exec.Execute(ctx, plan, opts), func(r copier.Result) {
		results = append(results, r)
		if j.cfg.Passthru {
			j.out.Passthru(r)
		}
		if disp != nil {
			disp.Update(progress, len(results))
		}
	}))

	if disp != nil {
		if err := disp.Release(); err != nil {
			j.log.Warn("restore terminal", "stderr", err)
		}
	}

	if resultJSONFile != "" {
		if err := report.WriteFile(resultJSONFile, report.NewResultDocument(results, rep)); err != nil {
			return rep, fmt.Errorf("failed to write result: %w", err)
		}
	}

	removed := len(plan.FilesToRemove) + len(plan.FoldersToRemove)
	j.out.PrintSummary(rep, removed, clock.Real{}.Now().Sub(started))

	return rep, nil
}

// observe calls fn for every result before passing it on. The returned
// channel is closed after the last fn call.
func observe(in <-chan copier.Result, fn func(copier.Result)) <-chan copier.Result {
	out := make(chan copier.Result)
	go func() {
		defer close(out)
		for r := range in {
			fn(r)
			out <- r
		}
	}()
	return out
}
