package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wonhada/parcopy/internal/cli"
	"github.com/wonhada/parcopy/internal/engine"
	"github.com/wonhada/parcopy/internal/tui"
)

var opts engine.Options

var (
	flagVerbose int
	flagQuiet   bool
	flagUI      bool
)

func newRootCmd() *cobra.Command {
	opts = engine.DefaultOptions()

	root := &cobra.Command{
		Use:   "parcopy <source> <destination>",
		Short: "Copy files and directories with bounded, admission-controlled parallelism",
		Long: "Copy files and directories with bounded, admission-controlled parallelism.\n\n" +
			"If <destination> ends with a path separator and does not exist yet, it is\n" +
			"created up front only with --copy-empty-directories; otherwise it is created\n" +
			"when the first file is copied into it.",
		Args: cobra.ExactArgs(2),
		RunE: runCopy,
	}

	flags := root.Flags()
	flags.IntVar(&opts.MaxConcurrentFiles, "max-concurrent-files", opts.MaxConcurrentFiles, "maximum number of files copied at once")
	flags.IntVar(&opts.MaxThreadsPerFile, "max-threads-per-file", opts.MaxThreadsPerFile, "maximum worker streams per file")
	flags.IntVar(&opts.MaxTotalThreads, "max-total-threads", opts.MaxTotalThreads, "maximum worker streams across all in-flight files")
	flags.IntVar(&opts.BufferSize, "buffer-size", opts.BufferSize, "chunk size in bytes read/written by each worker")
	flags.IntVar(&opts.MaxFileQueueLength, "max-queue-length", opts.MaxFileQueueLength, "maximum files admitted to the queue ahead of copy")
	flags.BoolVar(&opts.UseIncompleteFilename, "use-incomplete-filename", opts.UseIncompleteFilename, "stage into a .incomplete file and rename on success")
	flags.BoolVar(&opts.CopyEmptyDirectories, "copy-empty-directories", opts.CopyEmptyDirectories, "create destination directories that contain no matched files")
	flags.StringVar(&opts.IncrementalSourcePath, "incremental-source-path", opts.IncrementalSourcePath, "absolute source path prefix rewritten per extra worker, for multi-handle mounts")
	flags.IntVar(&opts.MinChunksPerThread, "min-chunks-per-thread", opts.MinChunksPerThread, "minimum chunks a worker must have before another worker is elected")
	flags.BoolVar(&opts.SkipExistingIdentical, "skip-existing-identical", opts.SkipExistingIdentical, "skip files whose destination already matches size and mod time")

	flags.CountVarP(&flagVerbose, "verbose", "v", "increase log verbosity (repeatable)")
	flags.BoolVarP(&flagQuiet, "quiet", "q", false, "suppress all event output except the final summary")
	flags.BoolVar(&flagUI, "ui", false, "run the interactive progress view instead of line-mode logging")

	return root
}

func runCopy(cmd *cobra.Command, args []string) error {
	src, dst := args[0], args[1]

	if err := opts.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	level := engine.LevelInfo + flagVerbose
	if flagQuiet {
		level = engine.LevelError - 1 // below LevelError: nothing shown but the summary
	}

	if flagUI && tui.IsTerminal() {
		eng, err := engine.NewCopyEngine(opts, engine.NopObserver{})
		if err != nil {
			return err
		}
		if err := tui.Run(ctx, eng, src, dst); err != nil {
			return err
		}
		printSummary(eng.Stats())
		return nil
	}

	observer := cli.NewLineObserver(cmd.ErrOrStderr(), level)
	eng, err := engine.NewCopyEngine(opts, observer)
	if err != nil {
		return err
	}

	var reporter *cli.SpinnerReporter
	if flagQuiet {
		reporter = cli.NewSpinnerReporter(eng.Stats, 100*time.Millisecond)
		reporter.Start()
	}

	err = eng.Copy(ctx, src, dst)

	if reporter != nil {
		reporter.Stop()
	}

	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return fmt.Errorf("copy cancelled: %w", ctx.Err())
	}
	printSummary(eng.Stats())
	return nil
}

func printSummary(stats engine.Stats) {
	fmt.Printf("copied %d files (%d bytes), %d failed, %d skipped, in %s\n",
		stats.CopiedFileCount, stats.CopiedByteCount, stats.FailedFileCount, stats.SkippedFileCount, stats.Elapsed)
}

// waitForKeypress mirrors the interactive "press any key to continue"
// idle prompt a double-clicked binary needs before its console closes.
func waitForKeypress() {
	fmt.Print("press any key to continue...")
	if runtime.GOOS == "windows" {
		c := exec.Command("cmd", "/C", "pause>nul")
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		_ = c.Run()
		return
	}
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		if old, err := term.MakeRaw(fd); err == nil {
			defer term.Restore(fd, old)
			var b [1]byte
			_, _ = os.Stdin.Read(b[:])
			return
		}
	}
	reader := bufio.NewReader(os.Stdin)
	_, _ = reader.ReadBytes('\n')
}

func main() {
	root := newRootCmd()
	ctx := context.Background()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if isatty() {
			waitForKeypress()
		}
		os.Exit(1)
	}
}

func isatty() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
