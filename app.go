package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lexandro/projectindex/cache"
	"github.com/lexandro/projectindex/config"
	"github.com/lexandro/projectindex/ignore"
	"github.com/lexandro/projectindex/indexer"
	"github.com/lexandro/projectindex/store"
)

// app holds everything one command needs to index a project root.
type app struct {
	root     string
	cfg      config.Config
	logger   *slog.Logger
	closeLog func()
	db       *store.SQLite
	indexer  *indexer.Indexer
}

// newApp resolves the root, layers flags over config, and opens the cache.
// The persistent store is optional: when it cannot be opened the app runs
// with an in-memory cache and no history.
func newApp(cmd *cobra.Command, flags *globalFlags, rootArg string) (*app, error) {
	root, err := indexer.ResolveRoot(rootArg)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("project root: %w", err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("project root %s is not a directory", root)
	}

	bootLogger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: config.ParseLevel(flags.logLevel)}))
	cfg := config.Load(root, flags.configPath, bootLogger)
	applyFlags(cmd, flags, &cfg)

	logger, closeLog := setupLogger(cfg.LogLevel, cfg.LogFilePath(root), cmd.ErrOrStderr())
	a := &app{root: root, cfg: cfg, logger: logger, closeLog: closeLog}

	matcher := ignore.NewMatcher(ignore.MatcherOptions{
		RootDir:          root,
		CustomPatterns:   append(append([]string{}, cfg.Exclude...), cacheDirPatterns(root, cfg.CacheDir)...),
		MaxFileSizeBytes: cfg.MaxFileSize,
	})

	var c *cache.Cache
	if cfg.DisableCache {
		c = cache.New(nil, logger)
	} else {
		a.db = openStore(store.Path(root, cfg.CacheDir), logger)
		if a.db != nil {
			c = cache.Open(cmd.Context(), a.db, logger)
		} else {
			c = cache.New(nil, logger)
		}
	}

	a.indexer = indexer.New(indexer.Options{
		RootDir:           root,
		OutputPath:        cfg.OutputPath(root),
		Workers:           cfg.Workers,
		ParallelThreshold: cfg.Threshold(),
		IncludeGeneric:    cfg.IncludeGeneric,
		ExcludePaths:      a.skipPaths(),
	}, matcher, c, logger)
	if a.db != nil {
		a.indexer.SetRecorder(a.db)
	}

	logger.Debug("app ready",
		"root", root,
		"output", cfg.OutputPath(root),
		"cache_entries", c.Len(),
		"persistent", a.db != nil,
	)
	return a, nil
}

// Close releases the store and the log file.
func (a *app) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("closing cache store", "error", err)
		}
	}
	a.closeLog()
}

func (a *app) reportName() string {
	return filepath.Base(a.cfg.OutputPath(a.root))
}

// skipPaths are files the tool writes itself. They are never indexed and
// their changes never trigger a rerun.
func (a *app) skipPaths() []string {
	paths := []string{a.cfg.OutputPath(a.root)}
	if logFile := a.cfg.LogFilePath(a.root); logFile != "" {
		paths = append(paths, logFile)
	}
	return paths
}

// openStore opens the SQLite cache. A database that fails to open is assumed
// corrupt: it is removed and opened once more. Nil means no persistence.
func openStore(dbPath string, logger *slog.Logger) *store.SQLite {
	db, err := store.Open(dbPath)
	if err == nil {
		return db
	}
	logger.Warn("cache store unusable, recreating", "path", dbPath, "error", err)

	if err := store.Remove(dbPath); err != nil {
		logger.Warn("removing cache store failed", "path", dbPath, "error", err)
		return nil
	}
	db, err = store.Open(dbPath)
	if err != nil {
		logger.Warn("cache store unavailable, using memory cache", "path", dbPath, "error", err)
		return nil
	}
	return db
}

// cacheDirPatterns ignores the cache directory when it lives inside root.
func cacheDirPatterns(root, cacheDir string) []string {
	if !filepath.IsAbs(cacheDir) {
		cacheDir = filepath.Join(root, cacheDir)
	}
	rel, err := filepath.Rel(root, cacheDir)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return nil
	}
	rel = filepath.ToSlash(rel)
	return []string{rel, rel + "/**"}
}

// applyFlags overrides cfg with every flag set on the command line.
func applyFlags(cmd *cobra.Command, flags *globalFlags, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("log-level") {
		cfg.LogLevel = flags.logLevel
	}
	if changed("log-file") {
		cfg.LogFile = flags.logFile
	}
	if changed("output") && flags.output != "" {
		cfg.Output = flags.output
	}
	if changed("cache-dir") && flags.cacheDir != "" {
		cfg.CacheDir = flags.cacheDir
	}
	if changed("workers") && flags.workers > 0 {
		cfg.Workers = flags.workers
	}
	if changed("threshold") && flags.threshold >= 0 {
		threshold := flags.threshold
		cfg.ParallelThreshold = &threshold
	}
	if changed("max-file-size") && flags.maxFileSize > 0 {
		cfg.MaxFileSize = flags.maxFileSize
	}
	if changed("no-cache") {
		cfg.DisableCache = flags.noCache
	}
	if changed("all-files") {
		cfg.IncludeGeneric = flags.allFiles
	}
	if changed("exclude") {
		cfg.Exclude = append(cfg.Exclude, flags.excludes...)
	}
}

// withStore runs fn against the persistent store of rootArg. It fails when
// caching is disabled or the store cannot be opened.
func withStore(cmd *cobra.Command, flags *globalFlags, rootArg string, fn func(ctx context.Context, a *app, w io.Writer) error) error {
	a, err := newApp(cmd, flags, rootArg)
	if err != nil {
		return err
	}
	defer a.Close()
	if a.db == nil {
		return fmt.Errorf("no persistent cache for %s", a.root)
	}
	return fn(cmd.Context(), a, cmd.OutOrStdout())
}
