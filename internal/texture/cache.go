package texture

import (
	"image"
	"sync"
)

// Resolver resolves a texture name to a decoded image, or nil when the
// texture cannot be found or decoded.
type Resolver interface {
	Resolve(texName string) *image.NRGBA
}

// Cache is a concurrency-safe Resolver over an Index. Failed loads are
// cached too, so a missing file is only tried once.
type Cache struct {
	mu    sync.RWMutex
	items map[string]*image.NRGBA
	index *Index
}

// NewCache creates a new texture cache backed by the given index.
func NewCache(index *Index) *Cache {
	return &Cache{
		items: make(map[string]*image.NRGBA),
		index: index,
	}
}

// Resolve loads and caches a texture by name.
func (c *Cache) Resolve(texName string) *image.NRGBA {
	path, ok := c.index.ResolvePath(texName)
	if !ok {
		return nil
	}

	c.mu.RLock()
	img, exists := c.items[path]
	c.mu.RUnlock()
	if exists {
		return img
	}

	img, _ = LoadTexture(path)

	c.mu.Lock()
	defer c.mu.Unlock()
	if cached, exists := c.items[path]; exists {
		return cached
	}
	c.items[path] = img
	return img
}
