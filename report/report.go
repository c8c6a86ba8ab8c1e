// Package report defines PROJECT_INDEX.json and reads and writes it.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/lexandro/projectindex/extract"
)

// DefaultFileName is the report written at the project root.
const DefaultFileName = "PROJECT_INDEX.json"

// TimestampLayout formats generated_at.
const TimestampLayout = "2006-01-02 15:04:05"

// ErrNoReport is returned by Load when the report file does not exist.
var ErrNoReport = errors.New("no project index found")

// FileRecord is one analyzed file.
type FileRecord struct {
	Path     string  `json:"path"`
	Size     int64   `json:"size"`
	Modified float64 `json:"modified"`
	extract.Facts
}

// NewFileRecord builds a record from facts and the file's metadata.
func NewFileRecord(relativePath string, info os.FileInfo, facts *extract.Facts) *FileRecord {
	record := &FileRecord{
		Path:     relativePath,
		Size:     info.Size(),
		Modified: float64(info.ModTime().UnixNano()) / float64(time.Second),
	}
	if facts != nil {
		record.Facts = *facts
	}
	return record
}

// Summary holds the whole-project roll-ups.
type Summary struct {
	TotalFiles            int            `json:"total_files"`
	AnalyzedFiles         int            `json:"analyzed_files"`
	CachedFiles           int            `json:"cached_files"`
	Languages             map[string]int `json:"languages"`
	Directories           int            `json:"directories"`
	TotalFunctions        int            `json:"total_functions"`
	TotalClasses          int            `json:"total_classes"`
	GenerationTimeSeconds float64        `json:"generation_time_seconds"`
}

// IndexReport is the snapshot produced by one run.
type IndexReport struct {
	ProjectRoot string                 `json:"project_root"`
	GeneratedAt string                 `json:"generated_at"`
	Files       map[string]*FileRecord `json:"files"`
	Summary     Summary                `json:"summary"`
}

// New returns an empty report for rootDir stamped with generatedAt.
func New(rootDir string, generatedAt time.Time) *IndexReport {
	return &IndexReport{
		ProjectRoot: rootDir,
		GeneratedAt: generatedAt.Format(TimestampLayout),
		Files:       make(map[string]*FileRecord),
		Summary:     Summary{Languages: make(map[string]int)},
	}
}

// Paths returns the analyzed paths in sorted order.
func (r *IndexReport) Paths() []string {
	paths := make([]string, 0, len(r.Files))
	for p := range r.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Glob returns records whose path matches a doublestar pattern, in path
// order, at most maxResults of them.
func (r *IndexReport) Glob(pattern string, maxResults int) ([]*FileRecord, error) {
	if maxResults <= 0 {
		maxResults = 50
	}

	// Normalize pattern to forward slashes
	pattern = strings.ReplaceAll(pattern, "\\", "/")
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid glob pattern: %s", pattern)
	}

	var results []*FileRecord
	for _, p := range r.Paths() {
		if len(results) >= maxResults {
			break
		}
		if matched, err := doublestar.Match(pattern, p); err == nil && matched {
			results = append(results, r.Files[p])
		}
	}
	return results, nil
}

// Write stores the report at filePath. The JSON is written to a temporary
// file in the same directory and renamed into place, so a failed write never
// leaves a partial report.
func Write(filePath string, r *IndexReport) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}

	dir := filepath.Dir(filePath)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(filePath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating report: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("writing report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("writing report: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		cleanup()
		return fmt.Errorf("writing report: %w", err)
	}
	if err := os.Rename(tmpPath, filePath); err != nil {
		cleanup()
		return fmt.Errorf("replacing report: %w", err)
	}
	return nil
}

// Load reads a report written by Write.
func Load(filePath string) (*IndexReport, error) {
	data, err := os.ReadFile(filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoReport
	}
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}

	var r IndexReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding report %s: %w", filePath, err)
	}
	if r.Files == nil {
		r.Files = make(map[string]*FileRecord)
	}
	return &r, nil
}
