package publish

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// URLCache remembers the hosted URL of image bytes already uploaded, so a
// user-restarted attempt does not upload the same image again.
type URLCache interface {
	Get(ctx context.Context, digest string) (string, bool)
	Put(ctx context.Context, digest, url string)
}

// Digest is the cache key for data.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// MemoryURLCache is a process-local URLCache.
type MemoryURLCache struct {
	mu   sync.RWMutex
	urls map[string]string
}

// NewMemoryURLCache returns an empty cache.
func NewMemoryURLCache() *MemoryURLCache {
	return &MemoryURLCache{urls: make(map[string]string)}
}

func (c *MemoryURLCache) Get(_ context.Context, digest string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	u, ok := c.urls[digest]
	return u, ok
}

func (c *MemoryURLCache) Put(_ context.Context, digest, url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.urls[digest] = url
}
