package window

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// Cache stores compressed summaries keyed by content fingerprint. It is scoped
// to one report run; nothing persists it across runs.
type Cache interface {
	Get(key string) (string, bool)
	Put(key, value string)
}

// MemoryCache is the default in-process Cache.
type MemoryCache struct {
	mu sync.Mutex
	m  map[string]string
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{m: make(map[string]string)}
}

func (c *MemoryCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[key]
	return v, ok
}

func (c *MemoryCache) Put(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = value
}

// Fingerprint derives the cache key from section title and content.
func Fingerprint(title, content string) string {
	h := sha256.New()
	h.Write([]byte(title))
	h.Write([]byte{0})
	h.Write([]byte(content))
	return hex.EncodeToString(h.Sum(nil))
}
