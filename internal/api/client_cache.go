package api

import (
	"container/list"
	"sync"
)

// ClientCache implements a thread-safe LRU cache of agent clients,
// keyed by agent ID. Building a client is cheap but decrypting its
// token is not, so callers reuse clients across requests.
type ClientCache struct {
	capacity int
	cache    map[string]*list.Element
	lru      *list.List
	mu       sync.RWMutex
}

// cacheEntry represents a key-value pair in the cache
type cacheEntry struct {
	key    string
	client *Client
}

// NewClientCache creates a new client cache with the specified capacity
func NewClientCache(capacity int) *ClientCache {
	return &ClientCache{
		capacity: capacity,
		cache:    make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// Get retrieves a client from the cache
// Returns the client and true if found, nil and false otherwise
func (c *ClientCache) Get(agentID string) (*Client, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.cache[agentID]; exists {
		// Move to front (most recently used)
		c.lru.MoveToFront(elem)
		return elem.Value.(*cacheEntry).client, true
	}
	return nil, false
}

// Put adds or updates a client in the cache
func (c *ClientCache) Put(agentID string, client *Client) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// If key exists, update and move to front
	if elem, exists := c.cache[agentID]; exists {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).client = client
		return
	}

	// Evict oldest if at capacity
	if c.lru.Len() >= c.capacity {
		oldest := c.lru.Back()
		if oldest != nil {
			c.lru.Remove(oldest)
			delete(c.cache, oldest.Value.(*cacheEntry).key)
		}
	}

	// Add new entry
	entry := &cacheEntry{key: agentID, client: client}
	elem := c.lru.PushFront(entry)
	c.cache[agentID] = elem
}

// Invalidate drops the cached client for an agent. Called when the
// agent's connection details or token change.
func (c *ClientCache) Invalidate(agentID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.cache[agentID]; exists {
		c.lru.Remove(elem)
		delete(c.cache, agentID)
	}
}

// Len returns the current number of items in the cache
func (c *ClientCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lru.Len()
}

// Clear removes all items from the cache
func (c *ClientCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]*list.Element)
	c.lru = list.New()
}
