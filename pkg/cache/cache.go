// Package cache persists the per-account set of images already downloaded.
//
// A Cache is owned by exactly one account job and is not safe for concurrent
// use. The backing file is a JSON object mapping each dedup key to true.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Key builds the dedup key for one image of one post.
func Key(postID, imageURL string) string {
	return postID + "|" + imageURL
}

// Cache is a lazily loaded set of dedup keys backed by a JSON file.
type Cache struct {
	path   string
	keys   map[string]struct{}
	loaded bool
}

// New returns a Cache backed by path. Nothing is read until the first Has or
// Add.
func New(path string) *Cache {
	return &Cache{path: path}
}

// Path returns the backing file.
func (c *Cache) Path() string {
	return c.path
}

// load reads the backing file once. A missing or unreadable file, or one that
// does not decode, starts the set empty.
func (c *Cache) load() {
	if c.loaded {
		return
	}
	c.loaded = true
	c.keys = make(map[string]struct{})

	data, err := os.ReadFile(c.path)
	if err != nil {
		return
	}
	var stored map[string]bool
	if err := json.Unmarshal(data, &stored); err != nil {
		return
	}
	for k := range stored {
		c.keys[k] = struct{}{}
	}
}

// Has reports whether key was recorded as downloaded.
func (c *Cache) Has(key string) bool {
	c.load()
	_, ok := c.keys[key]
	return ok
}

// Add records key as downloaded. Adding an existing key is a no-op.
func (c *Cache) Add(key string) {
	c.load()
	c.keys[key] = struct{}{}
}

// Len returns the number of keys, loading the file if needed.
func (c *Cache) Len() int {
	c.load()
	return len(c.keys)
}

// Save overwrites the backing file with the in-memory set. The write goes to
// a temporary sibling that is renamed into place.
func (c *Cache) Save() error {
	c.load()

	snapshot := make(map[string]bool, len(c.keys))
	for k := range c.keys {
		snapshot[k] = true
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cache: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp := c.path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create temporary cache file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write cache: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to sync cache file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close cache file: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	return nil
}
