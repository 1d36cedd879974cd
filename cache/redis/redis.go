// Package redis provides a cache.Cache backed by Redis, for deployments that
// run several consent service replicas behind a load balancer.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ggoodman/consent-message-go/cache"
	"github.com/redis/go-redis/v9"
)

// Config configures the Redis cache.
type Config struct {
	// Client is the Redis client instance.
	Client *redis.Client

	// KeyPrefix is prepended to every key. Default: "consent:cache:".
	KeyPrefix string
}

// Cache implements cache.Cache on Redis.
type Cache struct {
	client    *redis.Client
	keyPrefix string
}

type storedItem struct {
	Data      []byte     `json:"data"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// New creates a Redis-backed cache.
func New(cfg Config) (*Cache, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "consent:cache:"
	}
	return &Cache{client: cfg.Client, keyPrefix: cfg.KeyPrefix}, nil
}

// Dial connects to addr, verifies the connection and returns a cache that
// owns the client.
func Dial(ctx context.Context, addr string) (*Cache, error) {
	cl := redis.NewClient(&redis.Options{Addr: addr})
	if err := cl.Ping(ctx).Err(); err != nil {
		_ = cl.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return New(Config{Client: cl})
}

func (c *Cache) Get(ctx context.Context, key string, opts ...cache.Option) (*cache.Item, error) {
	o := cache.Resolve(opts...)
	rk := c.keyPrefix + cache.BuildKey(o.Namespace, key)

	raw, err := c.client.Get(ctx, rk).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key %s: %w", rk, err)
	}

	var si storedItem
	if err := json.Unmarshal(raw, &si); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached item: %w", err)
	}
	item := &cache.Item{Data: si.Data, CreatedAt: si.CreatedAt, ExpiresAt: si.ExpiresAt}
	if item.IsExpired() {
		c.client.Del(ctx, rk)
		return nil, nil
	}
	return item, nil
}

func (c *Cache) Set(ctx context.Context, key string, data []byte, opts ...cache.Option) error {
	o := cache.Resolve(opts...)
	rk := c.keyPrefix + cache.BuildKey(o.Namespace, key)

	now := time.Now()
	si := storedItem{Data: data, CreatedAt: now}
	var ttl time.Duration
	if o.TTL != nil {
		exp := now.Add(*o.TTL)
		si.ExpiresAt = &exp
		ttl = *o.TTL
	}

	b, err := json.Marshal(si)
	if err != nil {
		return fmt.Errorf("failed to marshal cached item: %w", err)
	}
	if err := c.client.Set(ctx, rk, b, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", rk, err)
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, opts ...cache.Option) error {
	o := cache.Resolve(opts...)

	if o.Key != nil {
		rk := c.keyPrefix + cache.BuildKey(o.Namespace, *o.Key)
		if err := c.client.Del(ctx, rk).Err(); err != nil {
			return fmt.Errorf("failed to delete key %s: %w", rk, err)
		}
		return nil
	}

	pattern := c.keyPrefix + cache.NamespacePrefix(o.Namespace) + "*"
	keys, err := c.scanKeys(ctx, pattern)
	if err != nil {
		return fmt.Errorf("failed to scan keys for pattern %s: %w", pattern, err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete keys: %w", err)
	}
	return nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}

func (c *Cache) scanKeys(ctx context.Context, pattern string) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}

var _ cache.Cache = (*Cache)(nil)
