package indexer

import (
	"context"
	"math"
	"time"

	"github.com/lexandro/projectindex/cache"
	"github.com/lexandro/projectindex/report"
)

// Assemble merges the walk statistics and extraction results into a report,
// then prunes and persists the cache. The returned report is not modified
// afterwards.
func Assemble(ctx context.Context, rootDir string, started time.Time, stats WalkStats, results []Result, c *cache.Cache) *report.IndexReport {
	r := report.New(rootDir, started)
	r.Summary.TotalFiles = stats.TotalFiles
	r.Summary.Directories = stats.Directories
	for ext, count := range stats.Languages {
		r.Summary.Languages[ext] = count
	}

	for _, res := range results {
		if res.Record == nil {
			continue
		}
		r.Files[res.RelPath] = res.Record
		r.Summary.TotalFunctions += len(res.Record.Functions)
		r.Summary.TotalClasses += len(res.Record.Classes)
		if res.Cached {
			r.Summary.CachedFiles++
		}
	}
	r.Summary.AnalyzedFiles = len(r.Files)

	if c != nil {
		c.PruneAndPersist(ctx)
	}
	r.Summary.GenerationTimeSeconds = roundSeconds(time.Since(started))
	return r
}

func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}
