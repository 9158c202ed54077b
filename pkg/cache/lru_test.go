package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLRUCache_GetSet(t *testing.T) {
	c := NewLRUCache(10, time.Minute)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("key", []byte("value"))
	got, ok := c.Get("key")
	assert.True(t, ok)
	assert.Equal(t, []byte("value"), got)

	c.Set("key", []byte("updated"))
	got, _ = c.Get("key")
	assert.Equal(t, []byte("updated"), got)
	assert.Equal(t, 1, c.Size())
}

func TestLRUCache_TTLExpiry(t *testing.T) {
	c := NewLRUCache(10, 10*time.Millisecond)

	c.Set("key", []byte("value"))
	_, ok := c.Get("key")
	assert.True(t, ok)

	time.Sleep(20 * time.Millisecond)
	_, ok = c.Get("key")
	assert.False(t, ok)
	// Expired entries are removed on read.
	assert.Equal(t, 0, c.Size())
}

func TestLRUCache_EvictsOldestAtCapacity(t *testing.T) {
	c := NewLRUCache(2, time.Minute)

	c.Set("first", []byte("1"))
	time.Sleep(time.Millisecond)
	c.Set("second", []byte("2"))
	time.Sleep(time.Millisecond)
	c.Set("third", []byte("3"))

	_, ok := c.Get("first")
	assert.False(t, ok)
	_, ok = c.Get("second")
	assert.True(t, ok)
	_, ok = c.Get("third")
	assert.True(t, ok)
}

func TestLRUCache_Invalidate(t *testing.T) {
	c := NewLRUCache(10, time.Minute)

	c.Set("/api/v1/lifecycle/orders:expiration-warnings", []byte("a"))
	c.Set("/api/v1/lifecycle/orders:expiration-warnings?days=3", []byte("b"))

	c.Invalidate("/api/v1/lifecycle/orders:expiration-warnings")

	_, ok := c.Get("/api/v1/lifecycle/orders:expiration-warnings")
	assert.False(t, ok)
	_, ok = c.Get("/api/v1/lifecycle/orders:expiration-warnings?days=3")
	assert.True(t, ok)
}

func TestLRUCache_InvalidateAll(t *testing.T) {
	c := NewLRUCache(10, time.Minute)
	c.Set("a", []byte("1"))
	c.Set("b", []byte("2"))

	c.InvalidateAll()
	assert.Equal(t, 0, c.Size())
}

func TestNewLRUCache_ClampsBadArguments(t *testing.T) {
	c := NewLRUCache(0, 0)
	c.Set("key", []byte("value"))
	_, ok := c.Get("key")
	assert.True(t, ok)
}
