// Package cache provides an in-process LRU cache with TTL and background
// cleanup, used by the store to avoid re-reading hot rows.
package cache

import (
	"context"
	"sync"
	"time"
)

// Config configures the cache.
type Config struct {
	Capacity        int           // Maximum number of entries (default: 1000)
	DefaultTTL      time.Duration // Default TTL for entries (default: 5 minutes)
	CleanupInterval time.Duration // Interval for expired entry cleanup (default: 1 minute)
}

// DefaultConfig returns default cache configuration.
func DefaultConfig() Config {
	return Config{
		Capacity:        1000,
		DefaultTTL:      5 * time.Minute,
		CleanupInterval: time.Minute,
	}
}

// Cache wraps LRUCache with a background cleanup loop.
type Cache struct {
	lru *LRUCache

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new cache and starts its cleanup loop.
func New(cfg Config) *Cache {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 1000
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = 5 * time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Cache{
		lru:    NewLRUCache(cfg.Capacity, cfg.DefaultTTL),
		ctx:    ctx,
		cancel: cancel,
	}

	c.wg.Add(1)
	go c.cleanupLoop(cfg.CleanupInterval)

	return c
}

// Close stops the cleanup loop.
func (c *Cache) Close() {
	c.cancel()
	c.wg.Wait()
}

// Get retrieves a value from the cache.
func (c *Cache) Get(key string) ([]byte, bool) {
	return c.lru.Get(key)
}

// Set stores a value with the given TTL (0 means default TTL).
func (c *Cache) Set(key string, value []byte, ttl time.Duration) {
	c.lru.Set(key, value, ttl)
}

// Remove removes a key from the cache.
func (c *Cache) Remove(key string) {
	c.lru.Remove(key)
}

// Size returns the number of cached entries.
func (c *Cache) Size() int {
	return c.lru.Size()
}

func (c *Cache) cleanupLoop(interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.lru.CleanupExpired()
		}
	}
}
