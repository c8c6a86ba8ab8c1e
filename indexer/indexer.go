// Package indexer produces the project index: it walks the tree, extracts
// facts from candidate files through the cache, and assembles the report.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/lexandro/projectindex/cache"
	"github.com/lexandro/projectindex/ignore"
	"github.com/lexandro/projectindex/report"
	"github.com/lexandro/projectindex/store"
)

// HookName identifies indexer runs in the run history.
const HookName = "project-indexer"

// Options configure an Indexer.
type Options struct {
	RootDir           string
	OutputPath        string // empty: the report is not written
	Workers           int
	ParallelThreshold int
	IncludeGeneric    bool
	ExcludePaths      []string
}

// RunRecorder receives one record per finished run.
type RunRecorder interface {
	RecordRun(ctx context.Context, run store.Run) error
}

// Indexer runs one indexing pass at a time over a project root.
type Indexer struct {
	mu        sync.Mutex
	options   Options
	matcher   *ignore.Matcher
	cache     *cache.Cache
	recorder  RunRecorder
	extractFn ExtractFunc
	logger    *slog.Logger
	last      *report.IndexReport
}

// New creates an indexer. A nil cache is replaced with an in-memory one.
func New(options Options, matcher *ignore.Matcher, c *cache.Cache, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if c == nil {
		c = cache.New(nil, logger)
	}
	return &Indexer{
		options: options,
		matcher: matcher,
		cache:   c,
		logger:  logger,
	}
}

// SetRecorder makes every run append to recorder's history.
func (ix *Indexer) SetRecorder(recorder RunRecorder) {
	ix.recorder = recorder
}

// Matcher returns the ignore matcher in use.
func (ix *Indexer) Matcher() *ignore.Matcher {
	return ix.matcher
}

// Cache returns the extraction cache in use.
func (ix *Indexer) Cache() *cache.Cache {
	return ix.cache
}

// Options returns the configuration the indexer was built with.
func (ix *Indexer) Options() Options {
	return ix.options
}

// Last returns the report of the most recent successful run, or nil.
func (ix *Indexer) Last() *report.IndexReport {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.last
}

// Run performs one full pass and, when OutputPath is set, writes the report.
// Only a failure to walk the root or to write the report is returned; files
// that fail extraction are left out of the report.
func (ix *Indexer) Run(ctx context.Context) (*report.IndexReport, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	started := time.Now()
	r, err := ix.run(ctx, started)
	ix.record(ctx, started, r, err)
	if err != nil {
		return nil, err
	}
	ix.last = r
	return r, nil
}

func (ix *Indexer) run(ctx context.Context, started time.Time) (*report.IndexReport, error) {
	excludes := append([]string{}, ix.options.ExcludePaths...)
	if ix.options.OutputPath != "" {
		excludes = append(excludes, ix.options.OutputPath)
	}

	candidates, stats, err := Walk(ctx, ix.options.RootDir, ix.matcher, WalkOptions{
		IncludeGeneric: ix.options.IncludeGeneric,
		ExcludePaths:   excludes,
	}, ix.logger)
	if err != nil {
		return nil, err
	}

	scheduler := &Scheduler{
		Cache:     ix.cache,
		Workers:   ix.options.Workers,
		Threshold: ix.options.ParallelThreshold,
		Extract:   ix.extractFn,
		Logger:    ix.logger,
	}
	ix.logger.Debug("extracting",
		"candidates", len(candidates),
		"parallel", scheduler.Parallel(len(candidates)),
	)
	results := scheduler.Run(ctx, candidates)

	r := Assemble(ctx, ix.options.RootDir, started, stats, results, ix.cache)

	if ix.options.OutputPath != "" {
		if err := report.Write(ix.options.OutputPath, r); err != nil {
			return nil, err
		}
	}

	ix.logger.Info("index generated",
		"files", r.Summary.TotalFiles,
		"analyzed", r.Summary.AnalyzedFiles,
		"cached", r.Summary.CachedFiles,
		"seconds", r.Summary.GenerationTimeSeconds,
	)
	return r, nil
}

func (ix *Indexer) record(ctx context.Context, started time.Time, r *report.IndexReport, runErr error) {
	if ix.recorder == nil {
		return
	}
	run := store.Run{
		HookName:  HookName,
		StartedAt: started,
		Duration:  time.Since(started),
		Success:   runErr == nil,
	}
	if r != nil {
		run.TotalFiles = r.Summary.TotalFiles
		run.AnalyzedFiles = r.Summary.AnalyzedFiles
		run.CachedFiles = r.Summary.CachedFiles
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	if err := ix.recorder.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		ix.logger.Warn("run not recorded", "error", err)
	}
}

// ResolveRoot turns a root argument into a clean absolute path.
func ResolveRoot(root string) (string, error) {
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving root %s: %w", root, err)
	}
	return abs, nil
}
