package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lexandro/projectindex/search"
)

// SearchArgs defines the input parameters for the projectindex_search tool.
type SearchArgs struct {
	Query      string `json:"query" jsonschema:"Symbol query. Plain text for word match, quoted for exact phrase, /regex/ for regular expression"`
	Kind       string `json:"kind,omitempty" jsonschema:"Optional symbol kind: function, method, class, constant, interface or type"`
	FileGlob   string `json:"fileGlob,omitempty" jsonschema:"Optional glob pattern to filter files (e.g. **/*.py)"`
	MaxResults int    `json:"maxResults,omitempty" jsonschema:"Maximum number of symbols to return (default 50)"`
}

// SearchHandler holds the dependencies for the search tool.
type SearchHandler struct {
	Symbols *search.Index
	Logger  *slog.Logger
}

// Handle processes a projectindex_search request.
func (h *SearchHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args SearchArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	if args.Query == "" {
		h.Logger.Warn("projectindex_search called with empty query")
		return errorResult("Error: query parameter is required"), nil, nil
	}
	if args.Kind != "" && !validKind(args.Kind) {
		return errorResult(fmt.Sprintf("Error: unknown kind %q", args.Kind)), nil, nil
	}

	results, total, err := h.Symbols.Search(search.Options{
		Query:      args.Query,
		Kind:       args.Kind,
		FileGlob:   args.FileGlob,
		MaxResults: args.MaxResults,
	})
	if err != nil {
		h.Logger.Error("projectindex_search failed", "query", args.Query, "error", err)
		return errorResult(fmt.Sprintf("Search error: %v", err)), nil, nil
	}

	h.Logger.Info("projectindex_search",
		"query", args.Query,
		"kind", args.Kind,
		"fileGlob", args.FileGlob,
		"results", len(results),
		"total", total,
		"elapsed", time.Since(start),
	)

	return textResult(FormatSymbolResults(results, total)), nil, nil
}

func validKind(kind string) bool {
	switch kind {
	case search.KindFunction, search.KindMethod, search.KindClass,
		search.KindConstant, search.KindInterface, search.KindType:
		return true
	}
	return false
}
