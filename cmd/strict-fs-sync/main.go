package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/yuya-takeyama/strict-fs-sync/pkg/planner"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
	builtBy = "unknown"
)

var (
	configFile     string
	dryRun         bool
	recurse        bool
	overwrite      bool
	fast           bool
	listFile       string
	excludes       []string
	passthru       bool
	showProgress   bool
	concurrency    int
	workers        int
	quiet          bool
	debug          bool
	logFormat      string
	planJSONFile   string
	resultJSONFile string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "strict-fs-sync",
		Short: "Verified file copy, move and sync using CRC32 checksums",
		Long: `strict-fs-sync copies, moves or mirrors file trees and proves every
transferred file by comparing the CRC32 checksum of the source with the
checksum of the bytes written at the destination.`,
		Version: fmt.Sprintf("%s (commit: %s, built at: %s by %s)", version, commit, date, builtBy),
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default $XDG_CONFIG_HOME/strict-fs-sync/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dryrun", false, "Shows operations without executing")
	rootCmd.PersistentFlags().BoolVar(&fast, "fast", false, "Skip copying file timestamps")
	rootCmd.PersistentFlags().StringSliceVar(&excludes, "exclude", nil, "Exclude patterns (multiple allowed)")
	rootCmd.PersistentFlags().BoolVar(&passthru, "passthru", false, "Print every result as it completes")
	rootCmd.PersistentFlags().BoolVar(&showProgress, "show-progress", false, "Show percentage complete and time remaining")
	rootCmd.PersistentFlags().IntVar(&concurrency, "concurrency", 1, "Number of files copied at once")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 16, "Number of concurrent checksum workers while planning")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress non-error output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Log the full plan and debug messages")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "Log format: console or json")
	rootCmd.PersistentFlags().StringVar(&planJSONFile, "plan-json-file", "", "Path to output plan as JSON (or YAML for .yaml/.yml)")
	rootCmd.PersistentFlags().StringVar(&resultJSONFile, "result-json-file", "", "Path to output result as JSON (or YAML for .yaml/.yml)")

	rootCmd.AddCommand(
		transferCommand(planner.ModeCopy, "Copy files from source to destination and verify them"),
		transferCommand(planner.ModeMove, "Copy files, verify them and delete each verified source file"),
		syncCommand(),
		watchCommand(),
	)

	return rootCmd
}

func transferCommand(mode planner.Mode, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:          string(mode) + " <source> <destination> [filter]",
		Short:        short,
		Args:         cobra.RangeArgs(2, 3),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, mode, args)
		},
	}

	cmd.Flags().BoolVarP(&recurse, "recurse", "r", false, "Include files in subdirectories")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing destination files")
	cmd.Flags().StringVar(&listFile, "list", "", "File listing source-relative paths to copy, one per line")

	return cmd
}

func syncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync <source> <destination> [filter]",
		Short: "Make destination mirror source, removing what source does not have",
		Long: `sync recursively mirrors source into destination. When the last path
elements of source and destination differ, the mirror is created under
destination/<source name>.`,
		Args:         cobra.RangeArgs(2, 3),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, planner.ModeSync, args)
		},
	}
}

func watchCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "watch <source> <destination> [filter]",
		Short:        "Sync once, then sync again whenever source changes",
		Args:         cobra.RangeArgs(2, 3),
		SilenceUsage: true,
		RunE:         runWatch,
	}
}
