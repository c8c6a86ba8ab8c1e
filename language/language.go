package language

import (
	"path/filepath"
	"strings"
)

// Language selects the extraction strategy for a file.
// Every extension that is not registered below resolves to Generic.
type Language string

const (
	Python     Language = "python"
	Go         Language = "go"
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	Generic    Language = "generic"
)

var extensionRegistry = map[string]Language{
	".py":  Python,
	".pyi": Python,
	".go":  Go,
	".js":  JavaScript,
	".jsx": JavaScript,
	".mjs": JavaScript,
	".cjs": JavaScript,
	".vue": JavaScript,
	".ts":  TypeScript,
	".tsx": TypeScript,
	".mts": TypeScript,
	".cts": TypeScript,
}

// ForExtension maps an extension (with leading dot) to its Language.
func ForExtension(ext string) Language {
	if lang, ok := extensionRegistry[strings.ToLower(ext)]; ok {
		return lang
	}
	return Generic
}

// ForPath is ForExtension applied to the extension of filePath.
func ForPath(filePath string) Language {
	return ForExtension(filepath.Ext(filePath))
}

// Script reports whether the language is handled by the pattern-based extractor.
func (l Language) Script() bool {
	return l == JavaScript || l == TypeScript
}

// Extensions lists the registered extensions, used by the watcher to decide
// which events are worth a rerun.
func Extensions() []string {
	exts := make([]string, 0, len(extensionRegistry))
	for ext := range extensionRegistry {
		exts = append(exts, ext)
	}
	return exts
}
