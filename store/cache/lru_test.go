package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLRUCacheSetGet(t *testing.T) {
	c := NewLRUCache(10, time.Minute)

	c.Set("a", []byte("1"), 0)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, []byte("1"), v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestLRUCacheExpiry(t *testing.T) {
	c := NewLRUCache(10, time.Minute)

	c.Set("a", []byte("1"), 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Size())
}

func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache(2, time.Minute)

	c.Set("a", []byte("1"), 0)
	c.Set("b", []byte("2"), 0)
	// Touch "a" so "b" is the eviction candidate.
	c.Get("a")
	c.Set("c", []byte("3"), 0)

	_, ok := c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestLRUCacheCleanupExpired(t *testing.T) {
	c := NewLRUCache(10, time.Minute)

	c.Set("a", []byte("1"), 10*time.Millisecond)
	c.Set("b", []byte("2"), time.Minute)
	time.Sleep(20 * time.Millisecond)

	removed := c.CleanupExpired()
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, c.Size())
}

func TestCacheService(t *testing.T) {
	c := New(Config{Capacity: 4, DefaultTTL: time.Minute, CleanupInterval: time.Hour})
	defer c.Close()

	c.Set("k", []byte("v"), 0)
	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), v)

	c.Remove("k")
	_, ok = c.Get("k")
	assert.False(t, ok)
}
