// SPDX-License-Identifier: MIT

// Package cache provides the read cache in front of the recordings
// repository, as serialized payloads with TTL. The in-memory backend is the
// default; a Redis backend is selected by configuration.
package cache

import (
	"strings"
	"sync"
	"time"
)

// Key builders shared by every backend so invalidation stays consistent.
const (
	keyPrefix  = "studio:"
	listKey    = keyPrefix + "recordings"
	recordStem = keyPrefix + "recording:"
	searchStem = keyPrefix + "search:"
)

func ListKey() string            { return listKey }
func RecordKey(id string) string { return recordStem + id }
func SearchKey(q string) string  { return searchStem + strings.ToLower(q) }

// Cache stores serialized payloads with per-entry TTL. Implementations are
// safe for concurrent use.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration)
	Delete(key string)

	// InvalidateRecord drops everything a change to one record can
	// stale: the record entry, the listing and all search results.
	InvalidateRecord(id string)

	Stats() Stats
	Close()
}

// Stats holds cache performance counters.
type Stats struct {
	Hits        int64
	Misses      int64
	Sets        int64
	Evictions   int64
	CurrentSize int
}

type entry struct {
	value      []byte
	expiration time.Time
}

func (e *entry) expired() bool {
	return !e.expiration.IsZero() && time.Now().After(e.expiration)
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]*entry
	stats   Stats
	janitor *janitor
}

// NewMemoryCache creates an in-memory cache. A positive cleanupInterval
// starts a janitor goroutine that evicts expired entries; Close stops it.
func NewMemoryCache(cleanupInterval time.Duration) Cache {
	c := &memoryCache{entries: make(map[string]*entry)}
	if cleanupInterval > 0 {
		c.janitor = &janitor{
			interval: cleanupInterval,
			stop:     make(chan struct{}),
		}
		go c.janitor.run(c)
	}
	return c
}

func (c *memoryCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, found := c.entries[key]
	if !found || e.expired() {
		c.stats.Misses++
		return nil, false
	}
	c.stats.Hits++
	return e.value, true
}

// Set stores a value. A non-positive ttl means no expiry, matching the
// Redis backend.
func (c *memoryCache) Set(key string, value []byte, ttl time.Duration) {
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &entry{value: value, expiration: exp}
	c.stats.Sets++
}

func (c *memoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *memoryCache) InvalidateRecord(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, RecordKey(id))
	delete(c.entries, listKey)
	for key := range c.entries {
		if strings.HasPrefix(key, searchStem) {
			delete(c.entries, key)
		}
	}
}

func (c *memoryCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats := c.stats
	stats.CurrentSize = len(c.entries)
	return stats
}

func (c *memoryCache) deleteExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for key, e := range c.entries {
		if e.expired() {
			delete(c.entries, key)
			count++
		}
	}
	c.stats.Evictions += int64(count)
	return count
}

// Close stops the janitor goroutine.
func (c *memoryCache) Close() {
	if c.janitor != nil {
		c.janitor.halt()
	}
}

type janitor struct {
	interval time.Duration
	stop     chan struct{}
	once     sync.Once
}

func (j *janitor) run(c *memoryCache) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.deleteExpired()
		case <-j.stop:
			return
		}
	}
}

func (j *janitor) halt() {
	j.once.Do(func() { close(j.stop) })
}
