package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/lexandro/projectindex/hook"
	"github.com/lexandro/projectindex/report"
	"github.com/lexandro/projectindex/search"
	"github.com/lexandro/projectindex/server"
	"github.com/lexandro/projectindex/tools"
	"github.com/lexandro/projectindex/watcher"
)

func newWatchCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [root]",
		Short: "Regenerate the index whenever project files change",
		Long: `watch indexes the project once, then watches it for changes and regenerates
the index after each quiet period. Editing .gitignore or .claudeignore reloads
the ignore rules before the next run. Stop with Ctrl+C.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(cmd, flags, rootArg(args))
			if err != nil {
				return err
			}
			defer a.Close()

			refresh := func(ctx context.Context) (*report.IndexReport, error) {
				r, err := a.indexer.Run(ctx)
				if err != nil {
					return nil, err
				}
				hook.WriteSummary(cmd.ErrOrStderr(), a.reportName(), r.Summary)
				return r, nil
			}

			if _, err := refresh(ctx); err != nil {
				return fmt.Errorf("generating project index: %w", err)
			}
			a.logger.Info("watching for changes", "root", a.root, "debounce", a.cfg.Debounce)
			return a.watch(ctx, refresh)
		},
	}
}

func newServeCmd(flags *globalFlags) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve [root]",
		Short: "Serve the project index over MCP on stdio",
		Long: `serve indexes the project and exposes the result as MCP tools on stdin/stdout:
symbol search, file lookup, per-file outlines, status and reindexing.

With --watch the index is kept current as files change. Logs go to stderr or
the configured log file; stdout carries only the protocol.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			startTime := time.Now()
			a, err := newApp(cmd, flags, rootArg(args))
			if err != nil {
				return err
			}
			defer a.Close()

			symbols, err := search.NewIndex()
			if err != nil {
				return fmt.Errorf("creating symbol index: %w", err)
			}
			defer symbols.Close()

			refresh := func(ctx context.Context) (*report.IndexReport, error) {
				r, err := a.indexer.Run(ctx)
				if err != nil {
					return nil, err
				}
				if err := symbols.Rebuild(r); err != nil {
					return nil, fmt.Errorf("rebuilding symbol index: %w", err)
				}
				return r, nil
			}

			r, err := refresh(ctx)
			if err != nil {
				return fmt.Errorf("generating project index: %w", err)
			}
			a.logger.Info("initial indexing complete",
				"files", r.Summary.TotalFiles,
				"analyzed", r.Summary.AnalyzedFiles,
				"symbols", symbols.Count(),
				"duration", time.Since(startTime),
			)

			if watch {
				go func() {
					if err := a.watch(ctx, refresh); err != nil {
						a.logger.Warn("file watcher stopped, continuing without live updates", "error", err)
					}
				}()
			}

			handlers := server.Handlers{
				Search:  &tools.SearchHandler{Symbols: symbols, Logger: a.logger},
				Files:   &tools.FilesHandler{Reports: a.indexer, Logger: a.logger},
				Outline: &tools.OutlineHandler{Reports: a.indexer, Logger: a.logger},
				Status: &tools.StatusHandler{
					Reports:     a.indexer,
					SymbolCount: symbols.Count,
					StartTime:   startTime,
					RootDir:     a.root,
					Logger:      a.logger,
				},
				Reindex: &tools.ReindexHandler{
					Logger: a.logger,
					DoReindex: func(ctx context.Context) (*report.IndexReport, error) {
						a.indexer.Matcher().Reload()
						return refresh(ctx)
					},
				},
			}
			if a.db != nil {
				handlers.Status.History = a.db
			}

			mcpServer := server.Setup(handlers)
			a.logger.Info("MCP server starting on stdio")
			if err := mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
				return fmt.Errorf("MCP server: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Keep the index current as files change")
	return cmd
}

// watch reruns refresh after every debounced batch of changes until ctx is
// done. The ignore rules are reloaded first when an ignore file changed.
func (a *app) watch(ctx context.Context, refresh tools.ReindexFunc) error {
	fileWatcher, err := watcher.NewWatcher(a.root, a.indexer.Matcher(), watcher.Options{
		Debounce:  a.cfg.Debounce,
		SkipPaths: a.skipPaths(),
	}, a.logger)
	if err != nil {
		return fmt.Errorf("starting file watcher: %w", err)
	}

	return fileWatcher.Run(ctx, func(ctx context.Context, batch []watcher.DebouncedEvent) {
		if watcher.IgnoreFileChanged(batch) {
			a.logger.Info("ignore rules changed, reloading")
			a.indexer.Matcher().Reload()
		}
		a.logger.Debug("changes detected", "events", len(batch))
		if _, err := refresh(ctx); err != nil {
			a.logger.Error("reindex failed", "error", err)
		}
	})
}
