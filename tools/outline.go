package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// OutlineArgs defines the input parameters for the projectindex_outline tool.
type OutlineArgs struct {
	FilePath string `json:"filePath" jsonschema:"Relative path of an analyzed file (e.g. src/main.py)"`
}

// OutlineHandler serves the extracted structure of a single file.
type OutlineHandler struct {
	Reports ReportSource
	Logger  *slog.Logger
}

// Handle processes a projectindex_outline request.
func (h *OutlineHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args OutlineArgs) (*mcp.CallToolResult, any, error) {
	if args.FilePath == "" {
		h.Logger.Warn("projectindex_outline called with empty filePath")
		return errorResult("Error: filePath parameter is required"), nil, nil
	}

	r := h.Reports.Last()
	if r == nil {
		return errorResult(noReport), nil, nil
	}

	filePath := strings.TrimPrefix(strings.ReplaceAll(args.FilePath, "\\", "/"), "./")
	record, ok := r.Files[filePath]
	if !ok {
		h.Logger.Info("projectindex_outline file not found", "filePath", filePath)
		return errorResult(fmt.Sprintf("File not in index: %s", filePath)), nil, nil
	}

	h.Logger.Info("projectindex_outline", "filePath", filePath)
	return textResult(FormatOutline(record)), nil, nil
}
