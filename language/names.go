package language

import (
	"path/filepath"
	"strings"
)

// displayNames maps lowercase extensions (without dot) to the human readable
// language name recorded for generic files.
var displayNames = map[string]string{
	"go":     "Go",
	"js":     "JavaScript",
	"jsx":    "JavaScript",
	"mjs":    "JavaScript",
	"cjs":    "JavaScript",
	"ts":     "TypeScript",
	"tsx":    "TypeScript",
	"mts":    "TypeScript",
	"cts":    "TypeScript",
	"py":     "Python",
	"pyi":    "Python",
	"rs":     "Rust",
	"java":   "Java",
	"kt":     "Kotlin",
	"c":      "C",
	"h":      "C",
	"cpp":    "C++",
	"cc":     "C++",
	"hpp":    "C++",
	"cs":     "C#",
	"swift":  "Swift",
	"rb":     "Ruby",
	"php":    "PHP",
	"sh":     "Shell",
	"bash":   "Shell",
	"zsh":    "Shell",
	"html":   "HTML",
	"htm":    "HTML",
	"css":    "CSS",
	"scss":   "SCSS",
	"json":   "JSON",
	"yaml":   "YAML",
	"yml":    "YAML",
	"toml":   "TOML",
	"xml":    "XML",
	"md":     "Markdown",
	"mdx":    "Markdown",
	"sql":    "SQL",
	"proto":  "Protobuf",
	"tf":     "Terraform",
	"lua":    "Lua",
	"vue":    "Vue",
	"svelte": "Svelte",
	"txt":    "Text",
	"csv":    "CSV",
}

// DisplayName returns a human readable language name for filePath,
// or "Unknown" when neither the extension nor the file name is recognized.
func DisplayName(filePath string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filePath), "."))
	if ext == "" {
		switch strings.ToLower(filepath.Base(filePath)) {
		case "makefile", "gnumakefile":
			return "Makefile"
		case "dockerfile":
			return "Dockerfile"
		}
		return "Unknown"
	}
	if name, ok := displayNames[ext]; ok {
		return name
	}
	return "Unknown"
}
