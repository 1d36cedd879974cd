// Package cache defines the byte cache used to memoize consent envelopes.
//
// Consent messages are a pure function of the request, so any entry may be
// dropped or served at any time without changing results. Backends live in
// the memory and redis subpackages.
package cache

import (
	"context"
	"errors"
	"time"
)

// Cache stores opaque byte payloads under string keys.
type Cache interface {
	// Get returns the item stored under key, or nil if it is absent or has
	// expired. An error is returned only for backend failures.
	Get(ctx context.Context, key string, opts ...Option) (*Item, error)

	// Set stores data under key.
	Set(ctx context.Context, key string, data []byte, opts ...Option) error

	// Delete removes a single key (WithKey) or every key in the namespace.
	Delete(ctx context.Context, opts ...Option) error

	// Close releases backend resources.
	Close() error
}

// Item is a cached payload with its bookkeeping timestamps.
type Item struct {
	Data      []byte
	CreatedAt time.Time
	ExpiresAt *time.Time // nil = no expiration
}

// IsExpired reports whether the item's TTL has elapsed.
func (i *Item) IsExpired() bool {
	return i.ExpiresAt != nil && time.Now().After(*i.ExpiresAt)
}

// Option configures a cache operation.
type Option func(*Options)

// Options is the resolved set of per-call options.
type Options struct {
	Namespace string         // "" = global
	Key       *string        // Delete only
	TTL       *time.Duration // Set only
}

// Resolve applies opts to a fresh Options value.
func Resolve(opts ...Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithNamespace scopes the operation to a namespace, typically the name of
// the operation whose consent messages are cached.
func WithNamespace(ns string) Option {
	return func(o *Options) { o.Namespace = ns }
}

// WithKey selects a single key for Delete.
func WithKey(key string) Option {
	return func(o *Options) { o.Key = &key }
}

// WithTTL sets a time-to-live for Set.
func WithTTL(ttl time.Duration) Option {
	return func(o *Options) { o.TTL = &ttl }
}

// NamespacePrefix returns the key prefix shared by every key in ns.
func NamespacePrefix(ns string) string {
	if ns == "" {
		return "global:"
	}
	return "ns:" + ns + ":"
}

// BuildKey returns the backend key for key within ns.
func BuildKey(ns, key string) string {
	return NamespacePrefix(ns) + key
}

// ErrClosed is returned by backends used after Close.
var ErrClosed = errors.New("cache: closed")
