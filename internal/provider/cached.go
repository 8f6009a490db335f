package provider

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of file contents Cached keeps.
const DefaultCacheSize = 4096

// Cached keeps recently read contents in memory in front of another provider.
type Cached struct {
	FileProvider
	contents *lru.Cache[string, []byte]
}

// NewCached wraps inner. A size below one uses DefaultCacheSize.
func NewCached(inner FileProvider, size int) (*Cached, error) {
	if size < 1 {
		size = DefaultCacheSize
	}
	contents, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, err
	}
	return &Cached{FileProvider: inner, contents: contents}, nil
}

// CreateContent returns the cached content or reads it through.
func (c *Cached) CreateContent(root, path, encoding string) ([]byte, error) {
	key := root + "\x00" + path + "\x00" + encoding
	if data, ok := c.contents.Get(key); ok {
		return data, nil
	}
	data, err := c.FileProvider.CreateContent(root, path, encoding)
	if err != nil {
		return nil, err
	}
	c.contents.Add(key, data)
	return data, nil
}

// Len returns the number of cached contents.
func (c *Cached) Len() int {
	return c.contents.Len()
}

// Purge empties the cache.
func (c *Cached) Purge() {
	c.contents.Purge()
}
