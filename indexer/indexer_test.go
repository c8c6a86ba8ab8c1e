package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexandro/projectindex/cache"
	"github.com/lexandro/projectindex/extract"
	"github.com/lexandro/projectindex/ignore"
	"github.com/lexandro/projectindex/language"
	"github.com/lexandro/projectindex/report"
	"github.com/lexandro/projectindex/store"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	}
}

func newTestIndexer(t *testing.T, root string, c *cache.Cache, mutate func(*Options)) *Indexer {
	t.Helper()
	options := Options{
		RootDir:           root,
		OutputPath:        filepath.Join(root, report.DefaultFileName),
		Workers:           DefaultWorkers,
		ParallelThreshold: DefaultParallelThreshold,
	}
	if mutate != nil {
		mutate(&options)
	}
	return New(options, ignore.NewMatcher(ignore.MatcherOptions{RootDir: root}), c, nil)
}

func filesJSON(t *testing.T, r *report.IndexReport) string {
	t.Helper()
	data, err := json.Marshal(r.Files)
	require.NoError(t, err)
	return string(data)
}

type recordingRecorder struct {
	mu   sync.Mutex
	runs []store.Run
}

func (r *recordingRecorder) RecordRun(ctx context.Context, run store.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return nil
}

func Test_Indexer_GitignoredDependencyScenario(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.py":                      "def f(x): pass\nclass C: pass\n",
		".gitignore":                "node_modules\n",
		"node_modules/ignored.py":   "def g(y): pass\n",
		".git/hooks/post-commit.py": "def h(): pass\n",
	})

	r, err := newTestIndexer(t, root, nil, nil).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, r.Summary.TotalFunctions)
	assert.Equal(t, 1, r.Summary.TotalClasses)
	assert.Equal(t, 1, r.Summary.AnalyzedFiles)
	assert.NotContains(t, r.Files, "node_modules/ignored.py")
	assert.NotContains(t, r.Files, ".git/hooks/post-commit.py")
	assert.Contains(t, r.Files, "a.py")

	onDisk, err := report.Load(filepath.Join(root, report.DefaultFileName))
	require.NoError(t, err)
	assert.Equal(t, filesJSON(t, r), filesJSON(t, onDisk))
}

func Test_Indexer_RootAnchoredIgnoreKeepsNestedDirectory(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		".gitignore":      "/lib\n",
		"lib/gen.py":      "def generated(): pass\n",
		"src/lib/util.py": "def helper(): pass\n",
	})

	r, err := newTestIndexer(t, root, nil, nil).Run(context.Background())

	require.NoError(t, err)
	assert.Contains(t, r.Files, "src/lib/util.py")
	assert.NotContains(t, r.Files, "lib/gen.py")
}

func Test_Indexer_IdempotentWithCacheHits(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.py":        "def f(x): pass\n",
		"pkg/b.py":    "class B(Base):\n    def run(self): pass\n",
		"web/app.js":  "export function start(opts) {\n}\n",
		"cmd/main.go": "package main\n\nfunc main() {}\n",
		"README.md":   "# readme\n",
	})
	ix := newTestIndexer(t, root, nil, nil)

	first, err := ix.Run(context.Background())
	require.NoError(t, err)
	second, err := ix.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, filesJSON(t, first), filesJSON(t, second))
	assert.Equal(t, first.Summary.TotalFiles, second.Summary.TotalFiles)
	assert.Equal(t, first.Summary.AnalyzedFiles, second.Summary.AnalyzedFiles)
	assert.Equal(t, first.Summary.TotalFunctions, second.Summary.TotalFunctions)
	assert.Equal(t, first.Summary.TotalClasses, second.Summary.TotalClasses)
	assert.Equal(t, first.Summary.Languages, second.Summary.Languages)
	assert.Equal(t, 0, first.Summary.CachedFiles)
	assert.Equal(t, first.Summary.AnalyzedFiles, second.Summary.CachedFiles)
}

func Test_Indexer_SizeChangeInvalidatesCache(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.py": "def f(x): pass\n"})
	ix := newTestIndexer(t, root, nil, nil)
	_, err := ix.Run(context.Background())
	require.NoError(t, err)

	writeTree(t, root, map[string]string{"a.py": "def f(x): pass\n\ndef g(y): pass\n"})
	r, err := ix.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, r.Summary.CachedFiles)
	assert.Equal(t, 2, r.Summary.TotalFunctions)
}

func Test_Indexer_SameFingerprintKeepsPriorFacts(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.py": "def f(x): pass\n"})
	filePath := filepath.Join(root, "a.py")
	stamp := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(filePath, stamp, stamp))
	ix := newTestIndexer(t, root, nil, nil)
	_, err := ix.Run(context.Background())
	require.NoError(t, err)

	writeTree(t, root, map[string]string{"a.py": "def g(x): pass\n"})
	require.NoError(t, os.Chtimes(filePath, stamp, stamp))
	r, err := ix.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, r.Summary.CachedFiles)
	assert.Equal(t, "f", r.Files["a.py"].Functions[0].Name)
}

func Test_Indexer_InvalidFileIsExcludedButCounted(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"good.py": "def ok(): pass\n",
		"bad.py":  "def broken(:\n",
		"bad.go":  "package bad\nfunc (\n",
		"enc.py":  "def f():\n    return '\xff'\n",
	})

	r, err := newTestIndexer(t, root, nil, nil).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 4, r.Summary.TotalFiles)
	assert.Equal(t, 1, r.Summary.AnalyzedFiles)
	assert.Contains(t, r.Files, "good.py")
	assert.NotContains(t, r.Files, "bad.py")
	assert.NotContains(t, r.Files, "bad.go")
	assert.NotContains(t, r.Files, "enc.py")
}

func Test_Indexer_ExtractorErrorDoesNotAbortRun(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.py": "x = 1\n", "b.py": "y = 2\n", "c.py": "z = 3\n", "d.py": "w = 4\n"})
	ix := newTestIndexer(t, root, nil, nil)
	ix.extractFn = func(ctx context.Context, filePath string, lang language.Language) (*extract.Facts, error) {
		if strings.HasSuffix(filePath, "b.py") {
			return nil, &extract.Error{Path: filePath, Err: errors.New("boom")}
		}
		return extract.File(ctx, filePath, lang)
	}

	r, err := ix.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 4, r.Summary.TotalFiles)
	assert.Equal(t, 3, r.Summary.AnalyzedFiles)
	assert.NotContains(t, r.Files, "b.py")
}

func Test_Indexer_EditDuringExtractionIsNotCached(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.py": "def f(x): pass\n"})
	ix := newTestIndexer(t, root, nil, nil)
	edited := false
	ix.extractFn = func(ctx context.Context, filePath string, lang language.Language) (*extract.Facts, error) {
		facts, err := extract.File(ctx, filePath, lang)
		if !edited {
			edited = true
			writeTree(t, root, map[string]string{"a.py": "def f(x): pass\n\ndef g(y): pass\n"})
		}
		return facts, err
	}

	first, err := ix.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Summary.TotalFunctions)

	second, err := ix.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Summary.CachedFiles)
	assert.Equal(t, 2, second.Summary.TotalFunctions)
}

func Test_Indexer_ParallelAndSequentialAgree(t *testing.T) {
	projects := map[string]map[string]string{
		"small": {
			"a.py": "def f(x): pass\n",
			"b.ts": "export interface Shape {\n  area(): number;\n}\n",
		},
		"large": {
			"a.py":       "import os\n\ndef f(x): pass\n",
			"b.py":       "class B:\n    def m(self): pass\n",
			"c.js":       "const double = x => x * 2;\n",
			"d.ts":       "export type ID = string;\n",
			"e/main.go":  "package main\n\nfunc main() {}\n",
			"e/types.go": "package main\n\ntype S struct{}\n",
		},
	}

	for name, files := range projects {
		t.Run(name, func(t *testing.T) {
			seqRoot, parRoot := t.TempDir(), t.TempDir()
			writeTree(t, seqRoot, files)
			writeTree(t, parRoot, files)

			sequential, err := newTestIndexer(t, seqRoot, nil, func(o *Options) { o.ParallelThreshold = 1000 }).Run(context.Background())
			require.NoError(t, err)
			parallel, err := newTestIndexer(t, parRoot, nil, func(o *Options) { o.ParallelThreshold = 0; o.Workers = 3 }).Run(context.Background())
			require.NoError(t, err)

			assert.Equal(t, sequential.Paths(), parallel.Paths())
			for _, p := range sequential.Paths() {
				seqFacts, _ := json.Marshal(sequential.Files[p].Facts)
				parFacts, _ := json.Marshal(parallel.Files[p].Facts)
				assert.JSONEq(t, string(seqFacts), string(parFacts), p)
			}
			assert.Equal(t, sequential.Summary.TotalFunctions, parallel.Summary.TotalFunctions)
		})
	}
}

func Test_Indexer_DeletedFileIsPrunedFromPersistedCache(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"keep.py": "a = 1\n", "gone.py": "b = 2\n"})
	db, err := store.Open(store.Path(root, ".claude/cache"))
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	ix := newTestIndexer(t, root, cache.Open(ctx, db, nil), nil)
	_, err = ix.Run(ctx)
	require.NoError(t, err)
	persisted, err := db.Load(ctx)
	require.NoError(t, err)
	require.Contains(t, persisted, filepath.Join(root, "gone.py"))

	require.NoError(t, os.Remove(filepath.Join(root, "gone.py")))
	_, err = ix.Run(ctx)
	require.NoError(t, err)

	persisted, err = db.Load(ctx)
	require.NoError(t, err)
	assert.NotContains(t, persisted, filepath.Join(root, "gone.py"))
	assert.Contains(t, persisted, filepath.Join(root, "keep.py"))
}

func Test_Indexer_ColdCacheFromPersistedStore(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.py": "def f(): pass\n"})
	dbPath := store.Path(root, ".claude/cache")
	ctx := context.Background()

	db, err := store.Open(dbPath)
	require.NoError(t, err)
	_, err = newTestIndexer(t, root, cache.Open(ctx, db, nil), nil).Run(ctx)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	reopened, err := store.Open(dbPath)
	require.NoError(t, err)
	defer reopened.Close()
	r, err := newTestIndexer(t, root, cache.Open(ctx, reopened, nil), nil).Run(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, r.Summary.CachedFiles)
}

func Test_Indexer_OversizedFileCountedNotExtracted(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"small.py": "def f(): pass\n",
		"huge.py":  "x = 1\n" + strings.Repeat("# padding\n", 120_000),
	})

	r, err := newTestIndexer(t, root, nil, nil).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, r.Summary.TotalFiles)
	assert.Equal(t, 2, r.Summary.Languages[".py"])
	assert.NotContains(t, r.Files, "huge.py")
}

func Test_Indexer_StatsCoverNonExtractableFiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.py":          "x = 1\n",
		"docs/guide.md": "# guide\n",
		"docs/NOTES.MD": "# notes\n",
		"Makefile":      "all:\n",
	})

	r, err := newTestIndexer(t, root, nil, nil).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 4, r.Summary.TotalFiles)
	assert.Equal(t, 1, r.Summary.AnalyzedFiles)
	assert.Equal(t, 1, r.Summary.Directories)
	assert.Equal(t, map[string]int{".py": 1, ".md": 1, ".MD": 1}, r.Summary.Languages)
}

func Test_Indexer_IncludeGeneric(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.py": "x = 1\n", "notes.txt": "one\ntwo\n"})

	r, err := newTestIndexer(t, root, nil, func(o *Options) { o.IncludeGeneric = true }).Run(context.Background())

	require.NoError(t, err)
	require.Contains(t, r.Files, "notes.txt")
	assert.Equal(t, "text", r.Files["notes.txt"].Kind)
	assert.Equal(t, 2, r.Files["notes.txt"].Lines)
}

func Test_Indexer_ReportFileIsNotIndexed(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.py": "x = 1\n"})
	ix := newTestIndexer(t, root, nil, func(o *Options) { o.IncludeGeneric = true })

	first, err := ix.Run(context.Background())
	require.NoError(t, err)
	second, err := ix.Run(context.Background())
	require.NoError(t, err)

	assert.NotContains(t, second.Files, report.DefaultFileName)
	assert.Equal(t, first.Summary.TotalFiles, second.Summary.TotalFiles)
}

func Test_Indexer_WriteFailureIsFatalAndRecorded(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.py": "x = 1\n"})
	recorder := &recordingRecorder{}
	ix := newTestIndexer(t, root, nil, func(o *Options) {
		o.OutputPath = filepath.Join(root, "missing-dir", report.DefaultFileName)
	})
	ix.SetRecorder(recorder)

	_, err := ix.Run(context.Background())

	assert.Error(t, err)
	assert.Nil(t, ix.Last())
	require.Len(t, recorder.runs, 1)
	assert.False(t, recorder.runs[0].Success)
	assert.NotEmpty(t, recorder.runs[0].Error)
}

func Test_Indexer_RecordsSuccessfulRun(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.py": "x = 1\n", "b.py": "y = 2\n"})
	recorder := &recordingRecorder{}
	ix := newTestIndexer(t, root, nil, nil)
	ix.SetRecorder(recorder)

	r, err := ix.Run(context.Background())

	require.NoError(t, err)
	assert.Same(t, r, ix.Last())
	require.Len(t, recorder.runs, 1)
	assert.True(t, recorder.runs[0].Success)
	assert.Equal(t, HookName, recorder.runs[0].HookName)
	assert.Equal(t, 2, recorder.runs[0].AnalyzedFiles)
}

func Test_Indexer_MissingRootIsFatal(t *testing.T) {
	root := filepath.Join(t.TempDir(), "missing")

	_, err := newTestIndexer(t, root, nil, func(o *Options) { o.OutputPath = "" }).Run(context.Background())

	assert.Error(t, err)
}

func Test_Scheduler_ParallelDecision(t *testing.T) {
	s := &Scheduler{Threshold: 2}
	assert.False(t, s.Parallel(2))
	assert.True(t, s.Parallel(3))

	defaults := &Scheduler{Threshold: -1}
	assert.False(t, defaults.Parallel(DefaultParallelThreshold))
}

func Test_extensionOf(t *testing.T) {
	assert.Equal(t, ".py", extensionOf("src/a.py"))
	assert.Equal(t, ".PY", extensionOf("src/B.PY"))
	assert.Equal(t, ".gz", extensionOf("dist/app.tar.gz"))
	assert.Equal(t, "", extensionOf("Makefile"))
	assert.Equal(t, "", extensionOf(".env"))
	assert.Equal(t, ".yml", extensionOf(".github/ci.yml"))
}
