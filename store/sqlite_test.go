package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexandro/projectindex/cache"
	"github.com/lexandro/projectindex/extract"
)

func openTemp(t *testing.T) (*SQLite, string) {
	t.Helper()
	dbPath := Path(t.TempDir(), ".claude/cache")
	s, err := Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, dbPath
}

func Test_SQLite_SaveAndLoadRoundTrip(t *testing.T) {
	s, _ := openTemp(t)
	ctx := context.Background()
	ret := "None"
	entries := map[string]cache.Entry{
		"/p/a.py": {Fingerprint: "1:10", Facts: &extract.Facts{
			Language:  "python",
			Functions: []extract.Function{{Name: "f", Args: []string{"x"}, Returns: &ret, Line: 1}},
		}},
		"/p/b.go": {Fingerprint: "2:20", Facts: &extract.Facts{Language: "go"}},
	}

	require.NoError(t, s.Save(ctx, entries))
	loaded, err := s.Load(ctx)

	require.NoError(t, err)
	assert.Equal(t, entries, loaded)
}

func Test_SQLite_SaveReplacesPreviousEntries(t *testing.T) {
	s, _ := openTemp(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, map[string]cache.Entry{
		"/p/old.py": {Fingerprint: "1:1", Facts: &extract.Facts{Language: "python"}},
	}))

	require.NoError(t, s.Save(ctx, map[string]cache.Entry{
		"/p/new.py": {Fingerprint: "2:2", Facts: &extract.Facts{Language: "python"}},
	}))
	loaded, err := s.Load(ctx)

	require.NoError(t, err)
	assert.NotContains(t, loaded, "/p/old.py")
	assert.Contains(t, loaded, "/p/new.py")
}

func Test_SQLite_LoadSkipsUndecodableRows(t *testing.T) {
	s, _ := openTemp(t)
	ctx := context.Background()
	_, err := s.db.ExecContext(ctx, `INSERT INTO cache_entries (path, fingerprint, facts) VALUES ('/p/x.py', '1:1', '{not json')`)
	require.NoError(t, err)

	loaded, err := s.Load(ctx)

	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func Test_SQLite_PersistsAcrossReopen(t *testing.T) {
	s, dbPath := openTemp(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, map[string]cache.Entry{
		"/p/a.py": {Fingerprint: "1:1", Facts: &extract.Facts{Language: "python"}},
	}))
	require.NoError(t, s.Close())

	reopened, err := Open(dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	loaded, err := reopened.Load(ctx)
	require.NoError(t, err)
	assert.Contains(t, loaded, "/p/a.py")
}

func Test_SQLite_OpenRejectsGarbageFile(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(dbPath, []byte(strings.Repeat("not a database ", 512)), 0644))

	_, err := Open(dbPath)

	assert.Error(t, err)
	require.NoError(t, Remove(dbPath))
	_, statErr := os.Stat(dbPath)
	assert.True(t, os.IsNotExist(statErr))
}

func Test_SQLite_ClosedStore(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.Load(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Close(), ErrClosed)
}

func Test_SQLite_RecordAndListRuns(t *testing.T) {
	s, _ := openTemp(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.RecordRun(ctx, Run{HookName: "project-indexer", StartedAt: base, Duration: 120 * time.Millisecond, Success: true, TotalFiles: 5, AnalyzedFiles: 4}))
	require.NoError(t, s.RecordRun(ctx, Run{HookName: "project-indexer", StartedAt: base.Add(time.Minute), Duration: 30 * time.Millisecond, Success: true, TotalFiles: 5, AnalyzedFiles: 4, CachedFiles: 4}))
	require.NoError(t, s.RecordRun(ctx, Run{HookName: "project-indexer", StartedAt: base.Add(2 * time.Minute), Success: false, Error: "write failed"}))

	runs, err := s.RecentRuns(ctx, 2)

	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.False(t, runs[0].Success)
	assert.Equal(t, "write failed", runs[0].Error)
	assert.NotEmpty(t, runs[0].ID)
	assert.Equal(t, 4, runs[1].CachedFiles)
	assert.Equal(t, 30*time.Millisecond, runs[1].Duration)
	assert.True(t, runs[1].StartedAt.Equal(base.Add(time.Minute)))
}

func Test_Path_RelativeAndAbsolute(t *testing.T) {
	assert.Equal(t, filepath.Join("/repo", ".claude", "cache", FileName), Path("/repo", ".claude/cache"))
	assert.Equal(t, filepath.Join("/var/cache", FileName), Path("/repo", "/var/cache"))
}
