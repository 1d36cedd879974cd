// Package memory provides an in-process cache.Cache backed by a bounded LRU.
// Expired entries are evicted lazily on access.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ggoodman/consent-message-go/cache"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache implements cache.Cache in memory.
type Cache struct {
	mu     sync.Mutex
	lru    *lru.Cache[string, *cache.Item]
	closed bool
}

// New creates an in-memory cache holding at most maxItems entries.
func New(maxItems int) (*Cache, error) {
	l, err := lru.New[string, *cache.Item](maxItems)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}
	return &Cache{lru: l}, nil
}

func (c *Cache) Get(ctx context.Context, key string, opts ...cache.Option) (*cache.Item, error) {
	o := cache.Resolve(opts...)
	k := cache.BuildKey(o.Namespace, key)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, cache.ErrClosed
	}

	item, ok := c.lru.Get(k)
	if !ok {
		return nil, nil
	}
	if item.IsExpired() {
		c.lru.Remove(k)
		return nil, nil
	}
	return item, nil
}

func (c *Cache) Set(ctx context.Context, key string, data []byte, opts ...cache.Option) error {
	o := cache.Resolve(opts...)

	now := time.Now()
	item := &cache.Item{Data: append([]byte(nil), data...), CreatedAt: now}
	if o.TTL != nil {
		exp := now.Add(*o.TTL)
		item.ExpiresAt = &exp
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return cache.ErrClosed
	}
	c.lru.Add(cache.BuildKey(o.Namespace, key), item)
	return nil
}

func (c *Cache) Delete(ctx context.Context, opts ...cache.Option) error {
	o := cache.Resolve(opts...)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return cache.ErrClosed
	}

	if o.Key != nil {
		c.lru.Remove(cache.BuildKey(o.Namespace, *o.Key))
		return nil
	}
	// LRU has no prefix iteration; namespaces are small.
	prefix := cache.NamespacePrefix(o.Namespace)
	for _, k := range c.lru.Keys() {
		if strings.HasPrefix(k, prefix) {
			c.lru.Remove(k)
		}
	}
	return nil
}

// Len reports the number of entries, including expired ones not yet evicted.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
	c.closed = true
	return nil
}

var _ cache.Cache = (*Cache)(nil)
