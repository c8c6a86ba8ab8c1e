package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/lexandro/projectindex/ignore"
	"github.com/lexandro/projectindex/language"
)

// Candidate is a file eligible for extraction.
type Candidate struct {
	AbsPath  string
	RelPath  string
	Info     fs.FileInfo
	Language language.Language
}

// WalkStats are the counts gathered over every non-ignored file.
type WalkStats struct {
	TotalFiles  int
	Directories int
	Oversized   int
	Languages   map[string]int
}

// WalkOptions tune which files become candidates.
type WalkOptions struct {
	// IncludeGeneric makes files without a registered extractor candidates.
	IncludeGeneric bool
	// ExcludePaths are absolute paths left out entirely, such as the report
	// file itself.
	ExcludePaths []string
}

// Walk traverses rootDir once. Ignored directories are pruned before they are
// listed. Every non-ignored file counts towards the stats; only files under
// the size ceiling with an applicable extractor become candidates.
func Walk(ctx context.Context, rootDir string, matcher *ignore.Matcher, options WalkOptions, logger *slog.Logger) ([]Candidate, WalkStats, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	stats := WalkStats{Languages: make(map[string]int)}
	excluded := make(map[string]struct{}, len(options.ExcludePaths))
	for _, p := range options.ExcludePaths {
		excluded[filepath.Clean(p)] = struct{}{}
	}

	var candidates []Candidate
	err := filepath.WalkDir(rootDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == rootDir {
				return err
			}
			logger.Debug("skipped unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if path == rootDir {
			return nil
		}

		relPath, relErr := filepath.Rel(rootDir, path)
		if relErr != nil {
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if matcher.Match(relPath, true) {
				return filepath.SkipDir
			}
			stats.Directories++
			return nil
		}
		if _, skip := excluded[path]; skip {
			return nil
		}
		if matcher.Match(relPath, false) {
			return nil
		}

		info, ok := regularFileInfo(path, d)
		if !ok {
			return nil
		}

		stats.TotalFiles++
		if ext := extensionOf(path); ext != "" {
			stats.Languages[ext]++
		}

		if matcher.IsFileTooLarge(info.Size()) {
			stats.Oversized++
			return nil
		}
		lang := language.ForPath(path)
		if lang == language.Generic && !options.IncludeGeneric {
			return nil
		}
		candidates = append(candidates, Candidate{
			AbsPath:  path,
			RelPath:  relPath,
			Info:     info,
			Language: lang,
		})
		return nil
	})
	if err != nil {
		return nil, stats, fmt.Errorf("walking %s: %w", rootDir, err)
	}
	return candidates, stats, nil
}

// regularFileInfo returns the info of a regular file, following symlinks.
func regularFileInfo(path string, d os.DirEntry) (fs.FileInfo, bool) {
	if d.Type()&fs.ModeSymlink != 0 {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			return nil, false
		}
		return info, true
	}
	if !d.Type().IsRegular() {
		return nil, false
	}
	info, err := d.Info()
	if err != nil {
		return nil, false
	}
	return info, true
}

// extensionOf returns the case-preserved extension of path. Leading dots of
// the base name do not start an extension, so ".env" has none.
func extensionOf(path string) string {
	return filepath.Ext(strings.TrimLeft(filepath.Base(path), "."))
}
