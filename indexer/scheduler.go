package indexer

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/lexandro/projectindex/cache"
	"github.com/lexandro/projectindex/extract"
	"github.com/lexandro/projectindex/language"
	"github.com/lexandro/projectindex/report"
)

const (
	DefaultWorkers           = 4
	DefaultParallelThreshold = 2
)

// ExtractFunc extracts facts from one file.
type ExtractFunc func(ctx context.Context, filePath string, lang language.Language) (*extract.Facts, error)

// Result is the outcome for one candidate. Record is nil when extraction
// failed.
type Result struct {
	RelPath string
	Record  *report.FileRecord
	Cached  bool
}

// Scheduler runs cache-checked extraction over candidates, on a bounded pool
// of workers when there are more candidates than Threshold.
type Scheduler struct {
	Cache *cache.Cache
	// Workers bounds concurrent extractions; zero means DefaultWorkers.
	Workers int
	// Threshold is the largest candidate count handled sequentially.
	// Negative means DefaultParallelThreshold.
	Threshold int
	// Extract defaults to extract.File.
	Extract ExtractFunc
	Logger  *slog.Logger
}

// Parallel reports whether n candidates are dispatched to the pool.
func (s *Scheduler) Parallel(n int) bool {
	return n > s.threshold()
}

// Run processes every candidate and returns one Result per candidate.
// Individual failures never abort the run.
func (s *Scheduler) Run(ctx context.Context, candidates []Candidate) []Result {
	results := make([]Result, len(candidates))

	if !s.Parallel(len(candidates)) {
		for i, c := range candidates {
			results[i] = s.process(ctx, c)
		}
		return results
	}

	var g errgroup.Group
	g.SetLimit(s.workers())
	for i, c := range candidates {
		g.Go(func() error {
			results[i] = s.process(ctx, c)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *Scheduler) process(ctx context.Context, c Candidate) Result {
	if facts, ok := s.Cache.Lookup(c.AbsPath); ok {
		return Result{RelPath: c.RelPath, Record: report.NewFileRecord(c.RelPath, c.Info, facts), Cached: true}
	}

	fingerprint := cache.FingerprintOf(c.Info)
	extractFn := s.Extract
	if extractFn == nil {
		extractFn = extract.File
	}
	facts, err := extractFn(ctx, c.AbsPath, c.Language)
	if err != nil {
		s.logger().Debug("skipped file", "path", c.RelPath, "error", err)
		return Result{RelPath: c.RelPath}
	}
	s.Cache.Store(c.AbsPath, fingerprint, facts)
	return Result{RelPath: c.RelPath, Record: report.NewFileRecord(c.RelPath, c.Info, facts)}
}

func (s *Scheduler) workers() int {
	if s.Workers <= 0 {
		return DefaultWorkers
	}
	return s.Workers
}

func (s *Scheduler) threshold() int {
	if s.Threshold < 0 {
		return DefaultParallelThreshold
	}
	return s.Threshold
}

func (s *Scheduler) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.Logger
}
