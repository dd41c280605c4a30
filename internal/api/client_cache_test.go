package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientCache(t *testing.T) {
	t.Run("Should return false for missing agent", func(t *testing.T) {
		cache := NewClientCache(4)

		client, ok := cache.Get("agent-1")

		assert.False(t, ok)
		assert.Nil(t, client)
	})

	t.Run("Should store and retrieve clients", func(t *testing.T) {
		cache := NewClientCache(4)
		client := NewClient("http://vps1.example.com:8088", "token")

		cache.Put("agent-1", client)
		got, ok := cache.Get("agent-1")

		require.True(t, ok)
		assert.Same(t, client, got)
		assert.Equal(t, 1, cache.Len())
	})

	t.Run("Should evict least recently used client at capacity", func(t *testing.T) {
		cache := NewClientCache(2)
		cache.Put("agent-1", NewClient("http://vps1.example.com:8088", "t1"))
		cache.Put("agent-2", NewClient("http://vps2.example.com:8088", "t2"))

		// Touch agent-1 so agent-2 becomes the eviction candidate
		_, ok := cache.Get("agent-1")
		require.True(t, ok)

		cache.Put("agent-3", NewClient("http://vps3.example.com:8088", "t3"))

		_, ok = cache.Get("agent-2")
		assert.False(t, ok, "Least recently used client should be evicted")
		_, ok = cache.Get("agent-1")
		assert.True(t, ok)
		_, ok = cache.Get("agent-3")
		assert.True(t, ok)
		assert.Equal(t, 2, cache.Len())
	})

	t.Run("Should update existing entry without growing", func(t *testing.T) {
		cache := NewClientCache(2)
		cache.Put("agent-1", NewClient("http://vps1.example.com:8088", "old"))

		replacement := NewClient("http://vps1.example.com:9090", "new")
		cache.Put("agent-1", replacement)

		got, ok := cache.Get("agent-1")
		require.True(t, ok)
		assert.Same(t, replacement, got)
		assert.Equal(t, 1, cache.Len())
	})

	t.Run("Should drop invalidated client", func(t *testing.T) {
		cache := NewClientCache(4)
		cache.Put("agent-1", NewClient("http://vps1.example.com:8088", "token"))

		cache.Invalidate("agent-1")

		_, ok := cache.Get("agent-1")
		assert.False(t, ok)
		assert.Equal(t, 0, cache.Len())
	})

	t.Run("Should clear all entries", func(t *testing.T) {
		cache := NewClientCache(4)
		cache.Put("agent-1", NewClient("http://vps1.example.com:8088", "t1"))
		cache.Put("agent-2", NewClient("http://vps2.example.com:8088", "t2"))

		cache.Clear()

		assert.Equal(t, 0, cache.Len())
		_, ok := cache.Get("agent-1")
		assert.False(t, ok)
	})
}
