package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// File is a StringStore backed by a directory. Entries are JSON files with
// expiry metadata, so several processes on one host can share the cache.
// Writes go through a temporary file and a rename.
type File struct {
	dir string
	now func() time.Time
}

// NewFile creates a file-based cache in the given directory.
// The directory will be created if it doesn't exist.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, backendError(err, "open", "file", dir)
	}
	return &File{dir: dir, now: time.Now}, nil
}

// fileEntry wraps cached data with metadata.
type fileEntry struct {
	Key   string   `json:"key"`
	Value string   `json:"value"`
	Life  lifetime `json:"life"`
}

// GetString retrieves a value from the cache.
func (c *File) GetString(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := c.path(key)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", backendError(err, "get", c.Name(), key)
	}

	var entry fileEntry
	if err := json.Unmarshal(data, &entry); err != nil || entry.Key != key {
		// Invalid cache entry - treat as miss
		_ = os.Remove(path)
		return "", nil
	}

	now := c.now()
	if entry.Life.expired(now) {
		_ = os.Remove(path)
		return "", nil
	}
	if entry.Life.Sliding > 0 {
		entry.Life.touch(now)
		if err := c.write(path, entry); err != nil {
			return "", backendError(err, "touch", c.Name(), key)
		}
	}
	return entry.Value, nil
}

// SetString stores a value in the cache.
func (c *File) SetString(ctx context.Context, key, value string, exp Expiration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	now := c.now()
	entry := fileEntry{Key: key, Value: value, Life: exp.start(now)}
	path := c.path(key)
	if entry.Life.expired(now) {
		return c.remove(path, key)
	}
	return backendError(c.write(path, entry), "set", c.Name(), key)
}

// Delete removes a value from the cache.
func (c *File) Delete(ctx context.Context, key string) error {
	return c.remove(c.path(key), key)
}

// Clear removes every entry.
func (c *File) Clear() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return backendError(err, "clear", c.Name(), c.dir)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(c.dir, e.Name())); err != nil {
			return backendError(err, "clear", c.Name(), c.dir)
		}
	}
	return nil
}

// Dir returns the cache directory.
func (c *File) Dir() string { return c.dir }

// Name implements Named.
func (c *File) Name() string { return "file" }

func (c *File) remove(path, key string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return backendError(err, "delete", c.Name(), key)
}

func (c *File) write(path string, entry fileEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

// path converts a cache key to a file path.
// Uses a simple hash-based directory structure to avoid too many files in one dir.
func (c *File) path(key string) string {
	hash := Hash([]byte(key))
	// Use first 2 chars as subdirectory for distribution
	subdir := hash[:2]
	filename := hash[2:] + ".json"
	return filepath.Join(c.dir, subdir, filename)
}

// Ensure File implements StringStore.
var _ StringStore = (*File)(nil)
