package server

import (
	"os"
	"sync"
	"time"

	"github.com/getmockd/scriptd/pkg/script"
)

// scriptCache keeps parsed documents keyed by file path. An entry is only
// reused while the file's modification time and size are unchanged.
type scriptCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	modTime time.Time
	size    int64
	doc     *script.Document
}

func newScriptCache() *scriptCache {
	return &scriptCache{entries: make(map[string]cacheEntry)}
}

// load returns the parsed document for path. Parse errors are not cached.
func (c *scriptCache) load(path string, info os.FileInfo) (*script.Document, error) {
	if c != nil {
		c.mu.Lock()
		e, ok := c.entries[path]
		c.mu.Unlock()
		if ok && e.modTime.Equal(info.ModTime()) && e.size == info.Size() {
			return e.doc, nil
		}
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := script.Parse(string(src))
	if err != nil {
		return nil, err
	}

	if c != nil {
		c.mu.Lock()
		c.entries[path] = cacheEntry{modTime: info.ModTime(), size: info.Size(), doc: doc}
		c.mu.Unlock()
	}
	return doc, nil
}

func (c *scriptCache) len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
