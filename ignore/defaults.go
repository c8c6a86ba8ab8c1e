package ignore

// DefaultPatterns are directory and file names that are never indexed.
// They are matched against whole path segments, not as globs.
var DefaultPatterns = []string{
	// Version control
	".git",
	".svn",
	".hg",

	// Dependencies and virtual environments
	"node_modules",
	".venv",
	"venv",
	".env",

	// Build output
	"dist",
	"build",
	"out",
	"target",
	"bin",
	"obj",

	// Tool caches
	"__pycache__",
	".pytest_cache",
	".mypy_cache",
	".tox",
	".cache",
	".parcel-cache",
	".next",
	".nuxt",

	// Coverage
	"coverage",
	".nyc_output",
	"htmlcov",

	// IDE and OS metadata
	".idea",
	".vscode",
	".DS_Store",
}

// IgnoreFileNames are the project-root files whose lines are added to the
// pattern set.
var IgnoreFileNames = []string{".gitignore", ".claudeignore"}
