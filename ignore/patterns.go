package ignore

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// PatternSet is a set of literal ignore patterns.
type PatternSet map[string]struct{}

// NewPatternSet builds a set from the given patterns, skipping empty strings.
func NewPatternSet(patterns ...string) PatternSet {
	set := make(PatternSet, len(patterns))
	set.Add(patterns...)
	return set
}

// DefaultPatternSet returns a fresh set holding DefaultPatterns.
func DefaultPatternSet() PatternSet {
	return NewPatternSet(DefaultPatterns...)
}

func (s PatternSet) Add(patterns ...string) {
	for _, p := range patterns {
		if p != "" {
			s[p] = struct{}{}
		}
	}
}

func (s PatternSet) Contains(pattern string) bool {
	_, ok := s[pattern]
	return ok
}

// HasDotted reports whether any pattern starts with ".". When it does, every
// hidden path segment is treated as ignored.
func (s PatternSet) HasDotted() bool {
	for p := range s {
		if strings.HasPrefix(p, ".") {
			return true
		}
	}
	return false
}

// ShouldIgnorePath reports whether relPath is excluded by patterns.
// A path is ignored when one of its segments equals a pattern, or when one of
// its segments is hidden and the set holds at least one dotted pattern.
func ShouldIgnorePath(relPath string, patterns PatternSet) bool {
	return shouldIgnoreSegments(relPath, patterns, patterns.HasDotted())
}

func shouldIgnoreSegments(relPath string, patterns PatternSet, dotted bool) bool {
	for _, segment := range strings.Split(filepath.ToSlash(relPath), "/") {
		if segment == "" || segment == "." || segment == ".." {
			continue
		}
		if patterns.Contains(segment) {
			return true
		}
		if dotted && strings.HasPrefix(segment, ".") {
			return true
		}
	}
	return false
}

// LoadPatternFile reads one pattern per line from filePath. Blank lines and
// comments are skipped and a trailing "/" is dropped, so "build/" lands on
// the segment "build". Lines that still contain a "/" are anchored or nested
// paths, not segment names; they are left to the gitignore matcher. An
// unreadable file contributes nothing.
func LoadPatternFile(filePath string) []string {
	f, err := os.Open(filePath)
	if err != nil {
		return nil
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimRight(line, "/")
		if line != "" && !strings.Contains(line, "/") {
			patterns = append(patterns, line)
		}
	}
	if scanner.Err() != nil {
		return nil
	}
	return patterns
}
