package server

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lexandro/projectindex/tools"
)

// Name and Version identify the server to MCP clients.
const (
	Name    = "projectindex"
	Version = "0.1.0"
)

// Handlers groups the tool handlers the server exposes.
type Handlers struct {
	Search  *tools.SearchHandler
	Files   *tools.FilesHandler
	Outline *tools.OutlineHandler
	Status  *tools.StatusHandler
	Reindex *tools.ReindexHandler
}

// Setup creates and configures the MCP server with all tool registrations.
func Setup(h Handlers) *mcp.Server {
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    Name,
			Version: Version,
		},
		&mcp.ServerOptions{
			Instructions: `This server exposes the project index (PROJECT_INDEX.json): the imports, functions, classes, constants and exports extracted from every source file in the project.

Use these tools to orient yourself before reading files:
- projectindex_search finds where a function, class or method is defined
- projectindex_outline shows the structure of one file without reading it
- projectindex_files lists analyzed files matching a glob, with symbol counts
- projectindex_status shows index statistics and recent indexing runs
- projectindex_reindex regenerates the index after large changes`,
		},
	)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "projectindex_search",
		Description: `Search symbol definitions (functions, methods, classes, constants, interfaces, types) across the project.

Query formats:
  - Plain text: word matching on names and their camelCase/snake_case parts (e.g. "user" finds getUser and UserService)
  - "quoted text": phrase over name parts (e.g. "\"http request\"")
  - /regex/: regular expression over lower-cased names (e.g. "/get.*/")

Filtering:
  - kind: function, method, class, constant, interface or type
  - fileGlob: glob pattern to filter by path (e.g. "src/**/*.py")`,
	}, h.Search.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "projectindex_files",
		Description: `Find analyzed files by glob pattern.

Pattern examples:
  - "**/*.go" - all Go files
  - "src/**/*.ts" - TypeScript files under src/
  - "**/test_*.py" - Python test files`,
	}, h.Files.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "projectindex_outline",
		Description: "Show the extracted structure of one file: imports, functions with arguments and line numbers, classes with methods, constants and exports.",
	}, h.Outline.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "projectindex_status",
		Description: "Show index status: file counts, languages, symbol counts, memory usage and recent indexing runs.",
	}, h.Status.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "projectindex_reindex",
		Description: "Regenerate PROJECT_INDEX.json now. Unchanged files are served from the cache.",
	}, h.Reindex.Handle)

	return mcpServer
}
