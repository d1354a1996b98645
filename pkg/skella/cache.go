package skella

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fivetwenty-io/skella/internal/constants"
)

// Cache is a key/value slot store. The session keeps the last-known current
// user in it; any backend that survives restarts makes that record durable.
type Cache interface {
	Get(ctx context.Context, key string) (*CacheEntry, error)
	Set(ctx context.Context, key string, entry *CacheEntry) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Has(ctx context.Context, key string) bool
}

// CacheEntry is one cached value. A zero ExpiresAt never expires.
type CacheEntry struct {
	Data      []byte    `json:"data"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	ETag      string    `json:"etag,omitempty"`
}

// Expired reports whether the entry is past its expiry.
func (e *CacheEntry) Expired() bool {
	return !e.ExpiresAt.IsZero() && time.Now().After(e.ExpiresAt)
}

// IsCacheMiss reports whether err means the key holds nothing usable, as
// opposed to a backend failure.
func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss) ||
		errors.Is(err, ErrCacheEntryExpired) ||
		errors.Is(err, ErrCacheDisabled) ||
		errors.Is(err, ErrKeyNotFoundInCaches)
}

// CacheOptions are common options applied to any backend.
type CacheOptions struct {
	// DefaultTTL is applied to entries set without an expiry. Zero keeps them forever.
	DefaultTTL time.Duration
	// KeyPrefix namespaces keys in shared backends.
	KeyPrefix string
}

// DefaultCacheOptions returns default cache options.
func DefaultCacheOptions() *CacheOptions {
	return &CacheOptions{}
}

// MemoryCache is an in-process cache bounded by entry count.
type MemoryCache struct {
	mu      sync.RWMutex
	maxSize int
	entries map[string]*CacheEntry
	order   []string
}

// NewMemoryCache creates a memory cache holding at most maxSize entries.
// The oldest entry is evicted when the limit is reached.
func NewMemoryCache(maxSize int) *MemoryCache {
	if maxSize <= 0 {
		maxSize = constants.DefaultCacheSize
	}

	return &MemoryCache{
		maxSize: maxSize,
		entries: make(map[string]*CacheEntry),
	}
}

// Get retrieves an entry.
func (c *MemoryCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCacheMiss, key)
	}

	if entry.Expired() {
		_ = c.Delete(ctx, key)

		return nil, fmt.Errorf("%w: %s", ErrCacheEntryExpired, key)
	}

	return entry, nil
}

// Set stores an entry.
func (c *MemoryCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		if len(c.order) >= c.maxSize {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}

		c.order = append(c.order, key)
	}

	c.entries[key] = entry

	return nil
}

// Delete removes an entry.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		return nil
	}

	delete(c.entries, key)

	for i, candidate := range c.order {
		if candidate == key {
			c.order = append(c.order[:i], c.order[i+1:]...)

			break
		}
	}

	return nil
}

// Clear removes all entries.
func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*CacheEntry)
	c.order = nil

	return nil
}

// Has reports whether a live entry exists.
func (c *MemoryCache) Has(ctx context.Context, key string) bool {
	_, err := c.Get(ctx, key)

	return err == nil
}

// Len returns the number of stored entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// FileCache stores each entry as a JSON file in a directory, so cached values
// survive process restarts. It plays the role of browser local storage for
// command-line use.
type FileCache struct {
	mu  sync.Mutex
	dir string
}

// FileCacheConfig configures a file cache.
type FileCacheConfig struct {
	// Dir is the directory holding cache files. It is created if missing.
	Dir string
}

// NewFileCache creates a file cache rooted at dir.
func NewFileCache(dir string) (*FileCache, error) {
	err := os.MkdirAll(dir, constants.ConfigDirPerm)
	if err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	return &FileCache{dir: dir}, nil
}

func (c *FileCache) path(key string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(key)

	return filepath.Join(c.dir, safe+".json")
}

// Get retrieves an entry.
func (c *FileCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrCacheMiss, key)
	}

	if err != nil {
		return nil, fmt.Errorf("reading cache entry: %w", err)
	}

	var entry CacheEntry

	err = json.Unmarshal(data, &entry)
	if err != nil {
		return nil, fmt.Errorf("parsing cache entry: %w", err)
	}

	if entry.Expired() {
		_ = os.Remove(c.path(key))

		return nil, fmt.Errorf("%w: %s", ErrCacheEntryExpired, key)
	}

	return &entry, nil
}

// Set stores an entry, replacing the file atomically.
func (c *FileCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tmp, err := os.CreateTemp(c.dir, ".entry-*")
	if err != nil {
		return fmt.Errorf("creating cache file: %w", err)
	}

	_, err = tmp.Write(data)
	closeErr := tmp.Close()

	if err == nil {
		err = closeErr
	}

	if err == nil {
		err = os.Chmod(tmp.Name(), constants.ConfigFilePerm)
	}

	if err == nil {
		err = os.Rename(tmp.Name(), c.path(key))
	}

	if err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("writing cache entry: %w", err)
	}

	return nil
}

// Delete removes an entry.
func (c *FileCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := os.Remove(c.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("deleting cache entry: %w", err)
	}

	return nil
}

// Clear removes all entries.
func (c *FileCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	matches, err := filepath.Glob(filepath.Join(c.dir, "*.json"))
	if err != nil {
		return fmt.Errorf("listing cache entries: %w", err)
	}

	for _, match := range matches {
		err = os.Remove(match)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("deleting cache entry: %w", err)
		}
	}

	return nil
}

// Has reports whether a live entry exists.
func (c *FileCache) Has(ctx context.Context, key string) bool {
	_, err := c.Get(ctx, key)

	return err == nil
}
