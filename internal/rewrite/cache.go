package rewrite

import (
	"sync"

	"espanews/internal/logger"
	"espanews/internal/model"
	"espanews/internal/storage"
)

// Cache maps prompt hashes to accepted rewrite results. Entries never expire:
// a prompt that resolved once is permanently reusable, which turns a rerun
// after a crash into near-zero-cost re-processing. The file holds one entry
// per distinct prompt; entries are appended, never mutated.
type Cache struct {
	path  string
	mu    sync.RWMutex
	items map[string]model.RewriteResult
}

// NewCache loads the cache file at path. A missing or unreadable file starts
// an empty cache rather than failing the run.
func NewCache(path string) *Cache {
	c := &Cache{
		path:  path,
		items: make(map[string]model.RewriteResult),
	}
	if err := storage.ReadJSON(path, &c.items); err != nil {
		logger.Warn("rewrite cache read failed, starting empty", "path", path, "error", err)
		c.items = make(map[string]model.RewriteResult)
	}
	return c
}

// Get returns the cached result for a prompt hash.
func (c *Cache) Get(hash string) (model.RewriteResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	res, ok := c.items[hash]
	return res, ok
}

// Put stores an accepted result and writes the whole cache through to disk.
// An existing entry is left alone.
func (c *Cache) Put(hash string, res model.RewriteResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[hash]; exists {
		return
	}
	c.items[hash] = res

	if err := storage.WriteJSON(c.path, c.items); err != nil {
		logger.Error("rewrite cache write failed", "path", c.path, "error", err)
	}
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
