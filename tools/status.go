package tools

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lexandro/projectindex/report"
)

const statusHistoryLimit = 5

// StatusArgs defines the input parameters for the projectindex_status tool (none required).
type StatusArgs struct{}

// StatusHandler holds the dependencies for the status tool. History and
// SymbolCount are optional.
type StatusHandler struct {
	Reports     ReportSource
	History     HistorySource
	SymbolCount func() int
	StartTime   time.Time
	RootDir     string
	Logger      *slog.Logger
}

// Handle processes a projectindex_status request.
func (h *StatusHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args StatusArgs) (*mcp.CallToolResult, any, error) {
	var builder strings.Builder

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	uptime := time.Since(h.StartTime)

	builder.WriteString("=== projectindex Status ===\n\n")
	builder.WriteString(fmt.Sprintf("Root directory: %s\n", h.RootDir))
	builder.WriteString(fmt.Sprintf("Uptime: %s\n", formatDuration(uptime)))
	builder.WriteString(fmt.Sprintf("Memory usage: %s\n", humanize.IBytes(memStats.Alloc)))

	r := h.Reports.Last()
	if r == nil {
		builder.WriteString("\n" + noReport + "\n")
	} else {
		writeReportStatus(&builder, r)
		if h.SymbolCount != nil {
			builder.WriteString(fmt.Sprintf("Searchable symbols: %s\n", humanize.Comma(int64(h.SymbolCount()))))
		}
		writeLanguages(&builder, r.Summary.Languages)
	}

	if h.History != nil {
		runs, err := h.History.RecentRuns(ctx, statusHistoryLimit)
		if err != nil {
			h.Logger.Warn("reading run history", "error", err)
		} else if len(runs) > 0 {
			builder.WriteString("\nRecent runs:\n")
			builder.WriteString(FormatRuns(runs, time.Now()))
		}
	}

	h.Logger.Info("projectindex_status", "memory", memStats.Alloc, "uptime", uptime)

	return textResult(builder.String()), nil, nil
}

func writeReportStatus(builder *strings.Builder, r *report.IndexReport) {
	var totalSize int64
	for _, record := range r.Files {
		totalSize += record.Size
	}
	s := r.Summary
	builder.WriteString(fmt.Sprintf("Last generated: %s\n", r.GeneratedAt))
	builder.WriteString(fmt.Sprintf("Files: %d total, %d analyzed, %d from cache\n", s.TotalFiles, s.AnalyzedFiles, s.CachedFiles))
	builder.WriteString(fmt.Sprintf("Directories: %d\n", s.Directories))
	builder.WriteString(fmt.Sprintf("Functions: %d, classes: %d\n", s.TotalFunctions, s.TotalClasses))
	builder.WriteString(fmt.Sprintf("Analyzed size: %s\n", humanize.Bytes(uint64(totalSize))))
	builder.WriteString(fmt.Sprintf("Generation time: %.2fs\n", s.GenerationTimeSeconds))
}

func writeLanguages(builder *strings.Builder, languages map[string]int) {
	if len(languages) == 0 {
		return
	}
	builder.WriteString("\nLanguages:\n")

	type langEntry struct {
		ext   string
		count int
	}
	entries := make([]langEntry, 0, len(languages))
	for ext, count := range languages {
		entries = append(entries, langEntry{ext, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].ext < entries[j].ext
	})

	for _, entry := range entries {
		builder.WriteString(fmt.Sprintf("  %-12s %d files\n", entry.ext, entry.count))
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	totalSeconds := int(d.Seconds())
	if totalSeconds < 60 {
		return fmt.Sprintf("%ds", totalSeconds)
	}
	totalMinutes := totalSeconds / 60
	remainderSeconds := totalSeconds % 60
	if totalMinutes < 60 {
		return fmt.Sprintf("%dm%ds", totalMinutes, remainderSeconds)
	}
	hours := totalMinutes / 60
	remainderMinutes := totalMinutes % 60
	return fmt.Sprintf("%dh%dm", hours, remainderMinutes)
}
