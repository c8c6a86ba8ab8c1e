package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/lexandro/projectindex/register"
	"github.com/lexandro/projectindex/report"
	"github.com/lexandro/projectindex/search"
	"github.com/lexandro/projectindex/tools"
)

const defaultHistoryLimit = 10

func newSearchCmd(flags *globalFlags) *cobra.Command {
	var (
		kind       string
		fileGlob   string
		maxResults int
	)

	cmd := &cobra.Command{
		Use:   "search <query> [root]",
		Short: "Search symbol definitions in the project index",
		Long: `search looks up functions, methods, classes, constants, interfaces and types
by name. The existing PROJECT_INDEX.json is used; when there is none the
project is indexed first.

Query forms:
  parse              words of a name (matches parseArgs, parse_config)
  "load config"      phrase over the words of a name
  /^test_/           regular expression over the lower-cased name

Examples:
  projectindex search handler --kind function
  projectindex search /^test_/ --glob "tests/**"`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, flags, rootArg(args[1:]))
			if err != nil {
				return err
			}
			defer a.Close()

			r, err := a.currentReport(cmd.Context())
			if err != nil {
				return err
			}

			symbols, err := search.NewIndex()
			if err != nil {
				return fmt.Errorf("creating symbol index: %w", err)
			}
			defer symbols.Close()
			if err := symbols.Rebuild(r); err != nil {
				return fmt.Errorf("building symbol index: %w", err)
			}

			results, total, err := symbols.Search(search.Options{
				Query:      args[0],
				Kind:       kind,
				FileGlob:   fileGlob,
				MaxResults: maxResults,
			})
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), tools.FormatSymbolResults(results, total))
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Only symbols of this kind: function|method|class|constant|interface|type")
	cmd.Flags().StringVar(&fileGlob, "glob", "", "Only symbols in files matching this glob")
	cmd.Flags().IntVar(&maxResults, "max", 0, "Maximum results (default: 50)")
	return cmd
}

// currentReport loads the report on disk, indexing the project when there is
// none yet.
func (a *app) currentReport(ctx context.Context) (*report.IndexReport, error) {
	r, err := report.Load(a.cfg.OutputPath(a.root))
	if errors.Is(err, report.ErrNoReport) {
		a.logger.Info("no index yet, generating", "root", a.root)
		r, err = a.indexer.Run(ctx)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func newCacheCmd(flags *globalFlags) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Maintain the extraction cache",
	}

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "prune [root]",
		Short: "Drop cache entries for files that no longer exist",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, flags, rootArg(args), func(ctx context.Context, a *app, w io.Writer) error {
				c := a.indexer.Cache()
				removed := c.Prune()
				if err := c.Persist(ctx); err != nil {
					return fmt.Errorf("saving cache: %w", err)
				}
				fmt.Fprintf(w, "Pruned %s, %s remaining\n",
					entries(removed), entries(c.Len()))
				return nil
			})
		},
	})

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "clear [root]",
		Short: "Remove every cache entry",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, flags, rootArg(args), func(ctx context.Context, a *app, w io.Writer) error {
				c := a.indexer.Cache()
				cleared := c.Len()
				c.Clear()
				if err := c.Persist(ctx); err != nil {
					return fmt.Errorf("saving cache: %w", err)
				}
				fmt.Fprintf(w, "Cleared %s\n", entries(cleared))
				return nil
			})
		},
	})

	return cacheCmd
}

func entries(n int) string {
	if n == 1 {
		return "1 entry"
	}
	return humanize.Comma(int64(n)) + " entries"
}

func newHistoryCmd(flags *globalFlags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [root]",
		Short: "Show recent indexing runs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, flags, rootArg(args), func(ctx context.Context, a *app, w io.Writer) error {
				runs, err := a.db.RecentRuns(ctx, limit)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					fmt.Fprintln(w, "No runs recorded")
					return nil
				}
				fmt.Fprint(w, tools.FormatRuns(runs, time.Now()))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", defaultHistoryLimit, "Number of runs to show")
	return cmd
}

func newRegisterCmd() *cobra.Command {
	registerCmd := &cobra.Command{
		Use:   "register",
		Short: "Register projectindex with the coding assistant",
	}

	var matcher string
	hookCmd := &cobra.Command{
		Use:   "hook [project|user] [dir] [-- args...]",
		Short: "Run projectindex after every file-modifying tool call",
		Long: `hook adds a PostToolUse hook to .claude/settings.json (in dir for the project
scope, in the home directory for the user scope). Arguments after -- are passed
to every hook invocation. Registering the same command twice is a no-op.

Examples:
  projectindex register hook
  projectindex register hook user -- --workers 8`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, dir, extra, err := registerArgs(cmd, args)
			if err != nil {
				return err
			}
			path, err := register.Hook(scope, dir, matcher, extra)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered PostToolUse hook in %s\n", path)
			return nil
		},
	}
	hookCmd.Flags().StringVar(&matcher, "matcher", register.DefaultHookMatcher, "Tool name pattern the hook runs for")

	var name string
	mcpCmd := &cobra.Command{
		Use:   "mcp [project|user] [dir] [-- args...]",
		Short: "Register `projectindex serve` as an MCP server",
		Long: `mcp adds an entry running "projectindex serve" to .mcp.json (project scope)
or ~/.claude.json (user scope). Arguments after -- are appended to serve.

Examples:
  projectindex register mcp
  projectindex register mcp project . -- --watch`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, dir, extra, err := registerArgs(cmd, args)
			if err != nil {
				return err
			}
			if name == "" {
				name = register.DeriveServerName(os.Args[0])
			}
			path, err := register.MCPServer(scope, dir, name, extra)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered MCP server %q in %s\n", name, path)
			return nil
		},
	}
	mcpCmd.Flags().StringVar(&name, "name", "", "Server name (default: derived from the binary name)")

	registerCmd.AddCommand(hookCmd, mcpCmd)
	return registerCmd
}

// registerArgs splits `[scope] [dir] -- extra...`.
func registerArgs(cmd *cobra.Command, args []string) (register.Scope, string, []string, error) {
	positional, extra := args, []string(nil)
	if dash := cmd.ArgsLenAtDash(); dash >= 0 {
		positional, extra = args[:dash], args[dash:]
	}
	if len(positional) > 2 {
		return "", "", nil, fmt.Errorf("expected at most scope and directory, got %d arguments", len(positional))
	}

	scope, dir := register.ScopeProject, "."
	if len(positional) > 0 {
		parsed, err := register.ParseScope(positional[0])
		if err != nil {
			return "", "", nil, err
		}
		scope = parsed
	}
	if len(positional) > 1 {
		dir = positional[1]
	}
	return scope, dir, extra, nil
}
