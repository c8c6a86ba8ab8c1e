package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lexandro/projectindex/hook"
	"github.com/lexandro/projectindex/report"
)

// ReindexArgs defines the input parameters for the projectindex_reindex tool.
type ReindexArgs struct{}

// ReindexFunc runs one indexing pass. It is provided by main so the watcher
// and this tool share the same refresh path.
type ReindexFunc func(ctx context.Context) (*report.IndexReport, error)

// ReindexHandler holds the dependencies for the reindex tool.
type ReindexHandler struct {
	DoReindex ReindexFunc
	Logger    *slog.Logger
}

// Handle processes a projectindex_reindex request.
func (h *ReindexHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args ReindexArgs) (*mcp.CallToolResult, any, error) {
	h.Logger.Info("projectindex_reindex started")

	r, err := h.DoReindex(ctx)
	if err != nil {
		h.Logger.Error("projectindex_reindex failed", "error", err)
		return errorResult(fmt.Sprintf("Reindex error: %v", err)), nil, nil
	}

	s := r.Summary
	h.Logger.Info("projectindex_reindex complete",
		"files", s.TotalFiles,
		"analyzed", s.AnalyzedFiles,
		"cached", s.CachedFiles,
	)

	output := fmt.Sprintf("Reindex complete: %d files analyzed (%d from cache) of %d, %d functions, %d classes in %ss",
		s.AnalyzedFiles, s.CachedFiles, s.TotalFiles, s.TotalFunctions, s.TotalClasses,
		hook.FormatSeconds(s.GenerationTimeSeconds))
	return textResult(output), nil, nil
}
