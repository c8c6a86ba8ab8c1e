package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/lexandro/projectindex/ignore"
)

// DefaultDebounce is the quiet period used when Options.Debounce is zero.
const DefaultDebounce = 500 * time.Millisecond

// IgnoreChecker is used by the watcher to check if a path should be ignored.
type IgnoreChecker interface {
	ShouldIgnoreDir(absolutePath string) bool
	ShouldIgnore(absolutePath string) bool
}

// Options tune a Watcher.
type Options struct {
	Debounce time.Duration
	// SkipPaths are absolute paths whose events are dropped, typically files
	// the indexer itself writes.
	SkipPaths []string
}

// Watcher provides recursive file system watching with debouncing.
type Watcher struct {
	fsWatcher     *fsnotify.Watcher
	debouncer     *Debouncer
	ignoreChecker IgnoreChecker
	skip          map[string]struct{}
	rootDir       string
	logger        *slog.Logger
}

// NewWatcher creates a recursive file watcher on the given root directory.
// It registers all non-ignored subdirectories for watching.
func NewWatcher(rootDir string, ignoreChecker IgnoreChecker, options Options, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if options.Debounce <= 0 {
		options.Debounce = DefaultDebounce
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsWatcher:     fsWatcher,
		debouncer:     NewDebouncer(options.Debounce),
		ignoreChecker: ignoreChecker,
		skip:          make(map[string]struct{}, len(options.SkipPaths)),
		rootDir:       rootDir,
		logger:        logger,
	}
	for _, p := range options.SkipPaths {
		if p != "" {
			w.skip[filepath.Clean(p)] = struct{}{}
		}
	}

	err = filepath.WalkDir(rootDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != rootDir && ignoreChecker.ShouldIgnoreDir(path) {
			return filepath.SkipDir
		}
		if watchErr := fsWatcher.Add(path); watchErr != nil {
			w.logger.Warn("failed to watch directory", "path", path, "error", watchErr)
		}
		return nil
	})
	if err != nil {
		fsWatcher.Close()
		return nil, err
	}

	return w, nil
}

// Events returns the channel that receives debounced file system events.
func (w *Watcher) Events() <-chan []DebouncedEvent {
	return w.debouncer.Output()
}

// Start begins listening for file system events. Call this in a goroutine.
// It runs until the watcher is closed.
func (w *Watcher) Start() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

// Run starts the watcher and calls handle for every debounced batch until ctx
// is done. Batches are handled one at a time; events arriving meanwhile are
// collected into the next batch. The watcher is closed on return.
func (w *Watcher) Run(ctx context.Context, handle func(context.Context, []DebouncedEvent)) error {
	go w.Start()
	defer w.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case batch := <-w.Events():
			handle(ctx, batch)
		}
	}
}

// handleEvent processes a single fsnotify event, converting it to a debounced event.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := filepath.Clean(event.Name)

	if _, skip := w.skip[path]; skip {
		return
	}

	if event.Has(fsnotify.Create) {
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			if !w.ignoreChecker.ShouldIgnoreDir(path) {
				if err := w.fsWatcher.Add(path); err != nil {
					w.logger.Warn("failed to watch new directory", "path", path, "error", err)
				}
				// Files created before the watch was added produce no events.
				w.debouncer.Add(path, OpCreate)
			}
			return
		}
	}

	// Ignore files are hidden, but editing them changes what is indexed.
	if !ignore.IsIgnoreFile(path) && w.ignoreChecker.ShouldIgnore(path) {
		return
	}

	op, ok := opFor(event)
	if !ok {
		return
	}
	w.debouncer.Add(path, op)
}

func opFor(event fsnotify.Event) (EventOp, bool) {
	switch {
	case event.Has(fsnotify.Create):
		return OpCreate, true
	case event.Has(fsnotify.Write):
		return OpWrite, true
	case event.Has(fsnotify.Remove):
		return OpRemove, true
	case event.Has(fsnotify.Rename):
		return OpRename, true
	default:
		return 0, false
	}
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	w.debouncer.Stop()
	return w.fsWatcher.Close()
}

// IgnoreFileChanged reports whether batch touches a .gitignore or
// .claudeignore file.
func IgnoreFileChanged(batch []DebouncedEvent) bool {
	for _, event := range batch {
		if ignore.IsIgnoreFile(event.Path) {
			return true
		}
	}
	return false
}
