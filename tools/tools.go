// Package tools implements the MCP tool handlers served by `projectindex serve`.
package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lexandro/projectindex/report"
	"github.com/lexandro/projectindex/store"
)

// ReportSource provides the most recent index report, or nil before the
// first successful run.
type ReportSource interface {
	Last() *report.IndexReport
}

// HistorySource lists recorded runs, newest first.
type HistorySource interface {
	RecentRuns(ctx context.Context, limit int) ([]store.Run, error)
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}

const noReport = "No index has been generated yet. Run projectindex_reindex first."
