// Package cache provides a bounded LRU cache for synthesized speech and
// translations, so repeated requests for the same text don't burn provider
// quota.
package cache

import (
	"container/list"
	"crypto/md5"
	"encoding/hex"
	"sync"
)

type entry struct {
	key   string
	value []byte
}

// Cache is a fixed-capacity LRU cache. Safe for concurrent use.
type Cache struct {
	mu     sync.Mutex
	cap    int
	order  *list.List // front = most recently used
	items  map[string]*list.Element
	hits   int64
	misses int64
}

func New(capacity int) *Cache {
	if capacity < 1 {
		capacity = 1
	}
	return &Cache{
		cap:   capacity,
		order: list.New(),
		items: make(map[string]*list.Element),
	}
}

// Key derives a cache key from the request parts (text, voice, language, ...).
func Key(parts ...string) string {
	h := md5.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{'|'})
		}
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached value and marks it most recently used.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.order.MoveToFront(el)
	return el.Value.(*entry).value, true
}

// Add stores a value, evicting the least recently used entry at capacity.
func (c *Cache) Add(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.order.MoveToFront(el)
		el.Value.(*entry).value = value
		return
	}
	if c.order.Len() >= c.cap {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*entry).key)
		}
	}
	c.items[key] = c.order.PushFront(&entry{key: key, value: value})
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *Cache) Cap() int {
	return c.cap
}

// Stats is a point-in-time snapshot for the cache-stats endpoint.
type Stats struct {
	Size   int   `json:"size"`
	Max    int   `json:"max"`
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Size: c.order.Len(), Max: c.cap, Hits: c.hits, Misses: c.misses}
}
