// Package cache remembers extraction results between runs so unchanged files
// are not parsed again.
//
// Validity is decided by a fingerprint built from modification time and
// size. Content is never hashed, so an edit that keeps both the size and the
// modification time produces a stale hit.
package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"sync"

	"github.com/lexandro/projectindex/extract"
)

// ErrNoStore is returned by Persist on a cache that was built without a
// persister.
var ErrNoStore = errors.New("cache has no persistent store")

// Entry is one cached extraction result.
type Entry struct {
	Fingerprint string
	Facts       *extract.Facts
}

// Persister loads and saves the full set of entries.
type Persister interface {
	Load(ctx context.Context) (map[string]Entry, error)
	Save(ctx context.Context, entries map[string]Entry) error
}

// Cache maps absolute file paths to their last extraction result.
// Safe for concurrent use by the extraction workers.
type Cache struct {
	mu        sync.RWMutex
	entries   map[string]Entry
	persister Persister
	logger    *slog.Logger
}

// New returns an empty cache. A nil persister keeps the cache in memory only.
func New(persister Persister, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Cache{
		entries:   make(map[string]Entry),
		persister: persister,
		logger:    logger,
	}
}

// Open returns a cache preloaded from persister. A load failure is logged and
// yields an empty cache.
func Open(ctx context.Context, persister Persister, logger *slog.Logger) *Cache {
	c := New(persister, logger)
	if persister == nil {
		return c
	}
	entries, err := persister.Load(ctx)
	if err != nil {
		c.logger.Warn("cache load failed, starting cold", "error", err)
		return c
	}
	if entries != nil {
		c.entries = entries
	}
	c.logger.Debug("cache loaded", "entries", len(entries))
	return c
}

// Fingerprint returns "<mtime-ns>:<size>" for filePath, or "" when the file
// cannot be stat'ed. The empty fingerprint never matches a stored one.
func Fingerprint(filePath string) string {
	info, err := os.Stat(filePath)
	if err != nil {
		return ""
	}
	return FingerprintOf(info)
}

// FingerprintOf builds the fingerprint from already fetched file info.
func FingerprintOf(info fs.FileInfo) string {
	return fmt.Sprintf("%d:%d", info.ModTime().UnixNano(), info.Size())
}

// Lookup returns the cached facts for filePath if its stored fingerprint
// equals the current one.
func (c *Cache) Lookup(filePath string) (*extract.Facts, bool) {
	fingerprint := Fingerprint(filePath)
	if fingerprint == "" {
		return nil, false
	}

	c.mu.RLock()
	entry, ok := c.entries[filePath]
	c.mu.RUnlock()

	if !ok || entry.Fingerprint != fingerprint || entry.Facts == nil {
		return nil, false
	}
	return entry.Facts, true
}

// Store records facts for filePath under fingerprint, which must be taken
// before the content the facts came from was read. An empty fingerprint
// stores nothing.
func (c *Cache) Store(filePath, fingerprint string, facts *extract.Facts) {
	if fingerprint == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[filePath] = Entry{Fingerprint: fingerprint, Facts: facts}
}

// Prune drops entries whose file no longer exists and returns how many were
// removed.
func (c *Cache) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for filePath := range c.entries {
		if _, err := os.Stat(filePath); errors.Is(err, fs.ErrNotExist) {
			delete(c.entries, filePath)
			removed++
		}
	}
	return removed
}

// Persist writes every entry through the persister.
func (c *Cache) Persist(ctx context.Context) error {
	if c.persister == nil {
		return ErrNoStore
	}

	c.mu.RLock()
	snapshot := make(map[string]Entry, len(c.entries))
	for k, v := range c.entries {
		snapshot[k] = v
	}
	c.mu.RUnlock()

	if err := c.persister.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("saving cache: %w", err)
	}
	return nil
}

// PruneAndPersist is the end-of-run cleanup: drop entries for deleted files,
// then save. Save failures are logged and leave the previous persisted state.
func (c *Cache) PruneAndPersist(ctx context.Context) int {
	removed := c.Prune()
	if removed > 0 {
		c.logger.Debug("pruned cache entries", "removed", removed)
	}
	if err := c.Persist(ctx); err != nil && !errors.Is(err, ErrNoStore) {
		c.logger.Warn("cache not saved", "error", err)
	}
	return removed
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Entry)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Paths returns the cached paths in sorted order.
func (c *Cache) Paths() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	paths := make([]string, 0, len(c.entries))
	for p := range c.entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
