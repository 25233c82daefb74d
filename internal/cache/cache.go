// Package cache stores allocation results on disk as zstd-compressed JSON,
// keyed by a hash of everything that determines them.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
)

const entryExt = ".json.zst"

// The encoder and decoder are safe for concurrent EncodeAll/DecodeAll calls.
var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	decoder, _ = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
)

// Cache provides caching for engine results
type Cache struct {
	dir string
	mu  sync.Mutex
}

// New creates a new cache instance with the specified directory.
// An empty directory disables the cache.
func New(dir string) *Cache {
	return &Cache{dir: dir}
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// Key hashes an operation name and its inputs. Inputs are JSON encoded, so
// maps contribute in sorted key order and equal inputs always give equal keys.
func Key(op string, inputs ...any) (string, error) {
	h := sha256.New()
	if err := writeString(h, op); err != nil {
		return "", err
	}
	for i, in := range inputs {
		data, err := json.Marshal(in)
		if err != nil {
			return "", fmt.Errorf("marshaling cache input %d: %w", i, err)
		}
		if err := writeString(h, string(data)); err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Get decodes the entry for key into out. It reports false on a miss or a
// corrupt entry.
func (c *Cache) Get(key string, out any) bool {
	if c == nil || c.dir == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	compressed, err := os.ReadFile(c.cachePath(key))
	if err != nil {
		return false
	}
	data, err := decoder.DecodeAll(compressed, nil)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, out) == nil
}

// Put stores v under key.
func (c *Cache) Put(key string, v any) error {
	if c == nil || c.dir == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling cache entry: %w", err)
	}

	// write then rename so readers never see a partial entry
	path := c.cachePath(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, encoder.EncodeAll(data, nil), 0644); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}
	return nil
}

// Len returns the number of stored entries.
func (c *Cache) Len() (int, error) {
	if c == nil || c.dir == "" {
		return 0, nil
	}
	entries, err := os.ReadDir(c.dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading cache directory: %w", err)
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), entryExt) {
			n++
		}
	}
	return n, nil
}

// Clear removes all cached results
func (c *Cache) Clear() error {
	if c == nil || c.dir == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := os.Stat(c.dir); os.IsNotExist(err) {
		return nil
	}

	// Safety check: only delete directories that hold nothing but cache entries
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("reading cache directory: %w", err)
	}
	if len(entries) > 0 {
		hasValidCache := false
		for _, entry := range entries {
			if entry.IsDir() {
				return fmt.Errorf("cache directory contains subdirectories - refusing to delete for safety")
			}
			if strings.HasSuffix(entry.Name(), entryExt) {
				hasValidCache = true
			} else {
				return fmt.Errorf("cache directory contains non-cache files - refusing to delete for safety")
			}
		}
		if !hasValidCache {
			return fmt.Errorf("no valid cache files found in directory - refusing to delete for safety")
		}
	}

	return os.RemoveAll(c.dir)
}

// cachePath returns the file path for a cache key
func (c *Cache) cachePath(key string) string {
	return filepath.Join(c.dir, key+entryExt)
}

func writeString(w io.Writer, s string) error {
	// null byte delimiter keeps ("ab", "c") and ("a", "bc") apart
	_, err := w.Write([]byte(s + "\x00"))
	return err
}
