package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lexandro/projectindex/config"
	"github.com/lexandro/projectindex/hook"
)

// globalFlags are shared by every subcommand. Values only take effect when
// the flag is set explicitly; otherwise config and environment apply.
type globalFlags struct {
	configPath  string
	logLevel    string
	logFile     string
	output      string
	cacheDir    string
	workers     int
	threshold   int
	maxFileSize int64
	noCache     bool
	allFiles    bool
	excludes    []string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "projectindex [root]",
		Short: "Generate PROJECT_INDEX.json for a project",
		Long: `projectindex walks a project, extracts imports, functions, classes, constants
and exports from Python, Go, JavaScript and TypeScript files, and writes the
result to PROJECT_INDEX.json at the project root.

Unchanged files are served from a cache under .claude/cache. Run as a
PostToolUse hook it prints a one-line JSON event on stdout for the host tool.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, flags, rootArg(args))
			if err != nil {
				return err
			}
			defer a.Close()

			r, err := a.indexer.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("generating project index: %w", err)
			}

			name := a.reportName()
			hook.WriteSummary(cmd.ErrOrStderr(), name, r.Summary)
			return hook.Emit(cmd.OutOrStdout(), hook.IndexUpdated(name, r.Summary))
		},
	}

	bindGlobalFlags(rootCmd, flags)

	rootCmd.AddCommand(
		newWatchCmd(flags),
		newServeCmd(flags),
		newSearchCmd(flags),
		newCacheCmd(flags),
		newHistoryCmd(flags),
		newRegisterCmd(),
	)
	return rootCmd
}

// bindGlobalFlags registers the persistent flags every subcommand inherits.
func bindGlobalFlags(cmd *cobra.Command, flags *globalFlags) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "Config file (default: <root>/"+config.DefaultPath+")")
	pf.StringVar(&flags.logLevel, "log-level", config.DefaultLogLevel, "Log level: debug|info|warn|error")
	pf.StringVar(&flags.logFile, "log-file", "", "Log file path (default: stderr)")
	pf.StringVar(&flags.output, "output", "", "Report path, relative to root (default: PROJECT_INDEX.json)")
	pf.StringVar(&flags.cacheDir, "cache-dir", config.DefaultCacheDir, "Cache directory, relative to root")
	pf.IntVar(&flags.workers, "workers", 0, "Maximum concurrent extractions (default: 4)")
	pf.IntVar(&flags.threshold, "threshold", 0, "Largest file count processed sequentially (default: 2)")
	pf.Int64Var(&flags.maxFileSize, "max-file-size", 0, "Skip extraction for files larger than this many bytes (default: 1MB)")
	pf.BoolVar(&flags.noCache, "no-cache", false, "Do not read or write the persistent cache")
	pf.BoolVar(&flags.allFiles, "all-files", false, "Also record line counts for files without an extractor")
	pf.StringArrayVar(&flags.excludes, "exclude", nil, "Extra ignore pattern, glob syntax (repeatable)")
}

func rootArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

// setupLogger creates an slog.Logger writing to fallback or a file. The
// returned closer releases the log file, if one was opened.
func setupLogger(level string, logFile string, fallback io.Writer) (*slog.Logger, func()) {
	writer := fallback
	closer := func() {}
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(fallback, "Warning: cannot open log file %s: %v, falling back to stderr\n", logFile, err)
		} else {
			writer = f
			closer = func() { _ = f.Close() }
		}
	}

	handler := slog.NewTextHandler(writer, &slog.HandlerOptions{Level: config.ParseLevel(level)})
	return slog.New(handler), closer
}
