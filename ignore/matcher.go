package ignore

import (
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/denormal/go-gitignore"
)

// DefaultMaxFileSizeBytes is the size ceiling above which files are counted
// but not extracted.
const DefaultMaxFileSizeBytes int64 = 1024 * 1024

// Matcher decides which paths under a project root are skipped.
// It unions the literal segment rules of DefaultPatterns and the project
// ignore files, full gitignore rules for those same files, and custom
// doublestar globs.
// Thread-safe: Reload() acquires a write lock, matching acquires a read lock.
type Matcher struct {
	mu               sync.RWMutex
	rootDir          string
	literals         PatternSet
	dotted           bool
	ignoreFiles      []gitignore.GitIgnore
	customPatterns   []string
	maxFileSizeBytes int64
}

// MatcherOptions configures the ignore matcher.
type MatcherOptions struct {
	RootDir          string
	CustomPatterns   []string
	MaxFileSizeBytes int64
}

// NewMatcher loads the project ignore files under options.RootDir and returns
// a ready matcher. Missing or unreadable ignore files are skipped.
func NewMatcher(options MatcherOptions) *Matcher {
	matcher := &Matcher{
		rootDir:          options.RootDir,
		customPatterns:   options.CustomPatterns,
		maxFileSizeBytes: options.MaxFileSizeBytes,
	}
	if matcher.maxFileSizeBytes <= 0 {
		matcher.maxFileSizeBytes = DefaultMaxFileSizeBytes
	}
	matcher.literals, matcher.ignoreFiles = loadIgnoreFiles(options.RootDir)
	matcher.dotted = matcher.literals.HasDotted()
	return matcher
}

// Match reports whether a root-relative, slash separated path is ignored.
func (m *Matcher) Match(relativePath string, isDir bool) bool {
	relativePath = filepath.ToSlash(relativePath)
	if relativePath == "." || relativePath == "" {
		return false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if shouldIgnoreSegments(relativePath, m.literals, m.dotted) {
		return true
	}
	for _, gi := range m.ignoreFiles {
		if match := gi.Relative(relativePath, isDir); match != nil && match.Ignore() {
			return true
		}
	}
	return m.matchesCustomPatterns(relativePath)
}

// ShouldIgnore returns true if the given absolute path should be excluded.
func (m *Matcher) ShouldIgnore(absolutePath string) bool {
	isDir := false
	if info, err := os.Stat(absolutePath); err == nil {
		isDir = info.IsDir()
	}
	return m.Match(m.relative(absolutePath), isDir)
}

// ShouldIgnoreDir returns true if a directory should be skipped entirely during traversal.
func (m *Matcher) ShouldIgnoreDir(absolutePath string) bool {
	return m.Match(m.relative(absolutePath), true)
}

// IsFileTooLarge returns true if the file exceeds the max file size limit.
func (m *Matcher) IsFileTooLarge(fileSize int64) bool {
	return fileSize > m.maxFileSizeBytes
}

// Patterns returns a copy of the literal pattern set in effect.
func (m *Matcher) Patterns() PatternSet {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(PatternSet, len(m.literals))
	for p := range m.literals {
		out[p] = struct{}{}
	}
	return out
}

// Reload re-reads the project ignore files.
// Used when the watcher detects changes to these files.
func (m *Matcher) Reload() {
	literals, files := loadIgnoreFiles(m.rootDir)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.literals = literals
	m.dotted = literals.HasDotted()
	m.ignoreFiles = files
}

// IsIgnoreFile reports whether the base name of p is one of IgnoreFileNames.
func IsIgnoreFile(p string) bool {
	base := filepath.Base(p)
	for _, name := range IgnoreFileNames {
		if base == name {
			return true
		}
	}
	return false
}

func (m *Matcher) relative(absolutePath string) string {
	rel, err := filepath.Rel(m.rootDir, absolutePath)
	if err != nil {
		return filepath.ToSlash(absolutePath)
	}
	return filepath.ToSlash(rel)
}

// matchesCustomPatterns checks the user supplied globs against the full
// relative path and against the base name.
func (m *Matcher) matchesCustomPatterns(relativePath string) bool {
	base := path.Base(relativePath)
	for _, pattern := range m.customPatterns {
		if ok, err := doublestar.Match(pattern, relativePath); err == nil && ok {
			return true
		}
		if !strings.Contains(pattern, "/") {
			if ok, err := doublestar.Match(pattern, base); err == nil && ok {
				return true
			}
		}
	}
	return false
}

func loadIgnoreFiles(rootDir string) (PatternSet, []gitignore.GitIgnore) {
	literals := DefaultPatternSet()
	var files []gitignore.GitIgnore
	for _, name := range IgnoreFileNames {
		filePath := filepath.Join(rootDir, name)
		literals.Add(LoadPatternFile(filePath)...)
		if gi := loadGitIgnore(filePath, rootDir); gi != nil {
			files = append(files, gi)
		}
	}
	return literals, files
}

// loadGitIgnore uses the io.Reader constructor so the handle is closed
// before returning.
func loadGitIgnore(filePath string, baseDir string) gitignore.GitIgnore {
	f, err := os.Open(filePath)
	if err != nil {
		return nil
	}
	defer f.Close()
	return gitignore.New(f, baseDir, nil)
}
