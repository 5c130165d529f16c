package whatfile

import (
	"context"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"github.com/gobeaver/whatfile/detector"
)

// Cache stores inspection results between runs over the same files.
//
// Implementations should be thread-safe.
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns the value and true if found, nil and false otherwise.
	Get(key string) (any, bool)

	// Set stores a value in the cache with the given TTL.
	// A TTL of 0 means no expiration.
	Set(key string, value any, ttl time.Duration)

	// Delete removes a value from the cache.
	Delete(key string)

	// Clear removes all values from the cache.
	Clear()
}

// CacheStatistics contains cache performance metrics.
type CacheStatistics struct {
	Hits    int64
	Misses  int64
	Size    int64
	HitRate float64
}

type cacheEntry struct {
	value      any
	expiration time.Time
	hasExpiry  bool
}

// MemoryCache is a simple in-memory cache implementation.
// It is thread-safe and supports TTL-based expiration.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	hits    int64
	misses  int64
}

// NewMemoryCache creates a new in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]*cacheEntry),
	}
}

// Get retrieves a value from the cache.
func (c *MemoryCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		c.misses++
		return nil, false
	}
	if entry.hasExpiry && time.Now().After(entry.expiration) {
		delete(c.entries, key)
		c.misses++
		return nil, false
	}
	c.hits++
	return entry.value, true
}

// Set stores a value in the cache.
func (c *MemoryCache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &cacheEntry{value: value}
	if ttl > 0 {
		entry.expiration = time.Now().Add(ttl)
		entry.hasExpiry = true
	}
	c.entries[key] = entry
}

// Delete removes a value from the cache.
func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes all values from the cache.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
}

// Stats returns cache statistics.
func (c *MemoryCache) Stats() CacheStatistics {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := c.hits + c.misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}
	return CacheStatistics{
		Hits:    c.hits,
		Misses:  c.misses,
		Size:    int64(len(c.entries)),
		HitRate: hitRate,
	}
}

// Cleanup removes expired entries from the cache.
func (c *MemoryCache) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, entry := range c.entries {
		if entry.hasExpiry && now.After(entry.expiration) {
			delete(c.entries, key)
		}
	}
}

// CleanupEvery runs Cleanup every interval until ctx is done. Entries of
// files that changed are never read again, so long running callers need this
// to keep the cache bounded.
func (c *MemoryCache) CleanupEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Cleanup()
			}
		}
	}()
}

var _ Cache = (*MemoryCache)(nil)

// cachedResult is what the Inspector keeps per file version
type cachedResult struct {
	Type     detector.Type
	Faults   []string
	Checksum string
}

// resultKey identifies a file version. A file rewritten in place with the
// same size and modification time is indistinguishable.
func resultKey(path string, info fs.FileInfo, algo ChecksumAlgorithm) string {
	return fmt.Sprintf("whatfile:%s:%d:%d:%s", path, info.Size(), info.ModTime().UnixNano(), algo)
}
