package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexandro/projectindex/ignore"
)

const waitFor = 3 * time.Second

func newTestWatcher(t *testing.T, root string, skip ...string) *Watcher {
	t.Helper()
	matcher := ignore.NewMatcher(ignore.MatcherOptions{RootDir: root})
	w, err := NewWatcher(root, matcher, Options{Debounce: testInterval, SkipPaths: skip}, nil)
	require.NoError(t, err)
	return w
}

// collect runs w until it has seen a batch containing want, or times out.
func collect(t *testing.T, w *Watcher, trigger func(), want string) []DebouncedEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()

	var mu sync.Mutex
	var seen []DebouncedEvent
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx, func(_ context.Context, batch []DebouncedEvent) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, batch...)
			for _, e := range batch {
				if e.Path == want {
					cancel()
				}
			}
		})
	}()

	time.Sleep(testInterval)
	trigger()
	<-done

	mu.Lock()
	defer mu.Unlock()
	return seen
}

func Test_Watcher_ReportsSourceChanges(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root)
	target := filepath.Join(root, "app.py")

	seen := collect(t, w, func() {
		require.NoError(t, os.WriteFile(target, []byte("x = 1\n"), 0644))
	}, target)

	assert.Contains(t, paths(seen), target)
}

func Test_Watcher_SkipsOwnOutput(t *testing.T) {
	root := t.TempDir()
	output := filepath.Join(root, "PROJECT_INDEX.json")
	w := newTestWatcher(t, root, output)
	sentinel := filepath.Join(root, "after.py")

	seen := collect(t, w, func() {
		require.NoError(t, os.WriteFile(output, []byte("{}"), 0644))
		time.Sleep(testInterval * 2)
		require.NoError(t, os.WriteFile(sentinel, []byte("y = 2\n"), 0644))
	}, sentinel)

	assert.NotContains(t, paths(seen), output)
	assert.Contains(t, paths(seen), sentinel)
}

func Test_Watcher_PassesIgnoreFilesThrough(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root)
	gitignore := filepath.Join(root, ".gitignore")

	seen := collect(t, w, func() {
		require.NoError(t, os.WriteFile(gitignore, []byte("build\n"), 0644))
	}, gitignore)

	assert.True(t, IgnoreFileChanged(seen))
}

func Test_Watcher_IgnoresDefaultDirectories(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules"), 0755))
	w := newTestWatcher(t, root)
	ignored := filepath.Join(root, "node_modules", "dep.js")
	sentinel := filepath.Join(root, "main.go")

	seen := collect(t, w, func() {
		require.NoError(t, os.WriteFile(ignored, []byte("x"), 0644))
		require.NoError(t, os.WriteFile(sentinel, []byte("package main\n"), 0644))
	}, sentinel)

	assert.NotContains(t, paths(seen), ignored)
}

func Test_IgnoreFileChanged(t *testing.T) {
	assert.False(t, IgnoreFileChanged([]DebouncedEvent{{Path: "/p/a.py"}}))
	assert.True(t, IgnoreFileChanged([]DebouncedEvent{{Path: "/p/a.py"}, {Path: "/p/sub/.claudeignore"}}))
}
