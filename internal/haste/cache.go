package haste

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// CacheStore reads and atomically writes the persisted Snapshot blob
// (section 4.1). A read error of any kind is swallowed: the caller always
// gets back a usable empty Snapshot rather than a fatal error, matching
// the "Cache miss / corrupt" error policy in section 7.
type CacheStore struct {
	path string
}

// NewCacheStore returns a store bound to the given snapshot path, normally
// produced by SnapshotPath.
func NewCacheStore(path string) *CacheStore {
	return &CacheStore{path: path}
}

// Path returns the snapshot file path this store reads and writes.
func (c *CacheStore) Path() string { return c.path }

// Read loads the Snapshot from disk. Any failure - missing file, truncated
// write, incompatible schema - yields Empty() rather than an error.
func (c *CacheStore) Read() *Snapshot {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return Empty()
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Empty()
	}
	if snap.Clocks == nil {
		snap.Clocks = ClockTable{}
	}
	if snap.Files == nil {
		snap.Files = FileTable{}
	}
	if snap.Modules == nil {
		snap.Modules = ModuleTable{}
	}
	if snap.Mocks == nil {
		snap.Mocks = MockTable{}
	}
	if snap.Duplicates == nil {
		snap.Duplicates = DuplicateTable{}
	}
	return &snap
}

// Write persists snap atomically: marshal to a temp file in the same
// directory, then rename over the final path. A crash or concurrent reader
// never observes a partially-written blob.
func (c *CacheStore) Write(snap *Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, c.path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
