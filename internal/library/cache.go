package library

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/robert-at-pretension-io/ipxact-lint/internal/ipxact"
	"github.com/robert-at-pretension-io/ipxact-lint/internal/vlnv"
)

const identityCacheVersion = 1

// identityEntry remembers the header of one document file.
type identityEntry struct {
	ContentHash string          `json:"content_hash"`
	VLNV        vlnv.VLNV       `json:"vlnv"`
	Revision    ipxact.Revision `json:"revision"`
}

type identityIndex struct {
	Version int                      `json:"version"`
	Entries map[string]identityEntry `json:"entries"`
}

// identityCache maps file paths to the identity read from their header, keyed
// by content hash so edited files are read again.
type identityCache struct {
	dir   string
	mu    sync.Mutex
	index identityIndex
	dirty bool
}

func newIdentityCache(dir string) *identityCache {
	return &identityCache{
		dir: dir,
		index: identityIndex{
			Version: identityCacheVersion,
			Entries: make(map[string]identityEntry),
		},
	}
}

func (c *identityCache) indexPath() string {
	return filepath.Join(c.dir, "index.json")
}

func (c *identityCache) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read identity cache: %w", err)
	}
	var idx identityIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return fmt.Errorf("parse identity cache: %w", err)
	}
	if idx.Version != identityCacheVersion {
		return nil
	}
	if idx.Entries == nil {
		idx.Entries = make(map[string]identityEntry)
	}
	c.index = idx
	return nil
}

// Save writes the index when anything changed since Load.
func (c *identityCache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return nil
	}
	if err := writeJSONAtomic(c.indexPath(), c.index); err != nil {
		return err
	}
	c.dirty = false
	return nil
}

func (c *identityCache) Get(path, contentHash string) (identityEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.index.Entries[path]
	if !ok || entry.ContentHash != contentHash {
		return identityEntry{}, false
	}
	return entry, true
}

func (c *identityCache) Put(path string, entry identityEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index.Entries[path] = entry
	c.dirty = true
}

func (c *identityCache) Delete(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.index.Entries[path]; ok {
		delete(c.index.Entries, path)
		c.dirty = true
	}
}

func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache json: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*.json")
	if err != nil {
		return fmt.Errorf("temp cache file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename cache file: %w", err)
	}
	return nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
