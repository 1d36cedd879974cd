// Package cachetest holds a conformance suite shared by cache.Cache backends.
package cachetest

import (
	"context"
	"testing"
	"time"

	"github.com/ggoodman/consent-message-go/cache"
)

// Factory returns a fresh, empty cache for a single subtest.
type Factory func(t *testing.T) cache.Cache

// Run exercises the cache.Cache contract against caches produced by newCache.
func Run(t *testing.T, newCache Factory) {
	t.Helper()

	t.Run("SetAndGet", func(t *testing.T) {
		c := newCache(t)
		ctx := context.Background()

		if err := c.Set(ctx, "k", []byte("v1")); err != nil {
			t.Fatalf("Set() failed: %v", err)
		}
		item, err := c.Get(ctx, "k")
		if err != nil {
			t.Fatalf("Get() failed: %v", err)
		}
		if item == nil || string(item.Data) != "v1" {
			t.Fatalf("Get() returned %+v, want v1", item)
		}
		if item.ExpiresAt != nil {
			t.Fatalf("Get() returned expiry %v for item without TTL", item.ExpiresAt)
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		c := newCache(t)
		item, err := c.Get(context.Background(), "absent")
		if err != nil {
			t.Fatalf("Get() failed: %v", err)
		}
		if item != nil {
			t.Fatalf("Get() returned %+v for missing key", item)
		}
	})

	t.Run("TTL", func(t *testing.T) {
		c := newCache(t)
		ctx := context.Background()

		if err := c.Set(ctx, "short", []byte("x"), cache.WithTTL(50*time.Millisecond)); err != nil {
			t.Fatalf("Set() failed: %v", err)
		}
		if item, err := c.Get(ctx, "short"); err != nil || item == nil {
			t.Fatalf("Get() before expiry = %+v, %v", item, err)
		}
		time.Sleep(100 * time.Millisecond)
		item, err := c.Get(ctx, "short")
		if err != nil {
			t.Fatalf("Get() failed: %v", err)
		}
		if item != nil {
			t.Fatalf("Get() returned expired item %+v", item)
		}
	})

	t.Run("Namespaces", func(t *testing.T) {
		c := newCache(t)
		ctx := context.Background()

		if err := c.Set(ctx, "k", []byte("a"), cache.WithNamespace("greet")); err != nil {
			t.Fatalf("Set() failed: %v", err)
		}
		if err := c.Set(ctx, "k", []byte("b"), cache.WithNamespace("transfer")); err != nil {
			t.Fatalf("Set() failed: %v", err)
		}
		a, _ := c.Get(ctx, "k", cache.WithNamespace("greet"))
		b, _ := c.Get(ctx, "k", cache.WithNamespace("transfer"))
		g, _ := c.Get(ctx, "k")
		if a == nil || string(a.Data) != "a" || b == nil || string(b.Data) != "b" {
			t.Fatalf("namespaced values mixed up: %+v %+v", a, b)
		}
		if g != nil {
			t.Fatalf("global namespace leaked value %+v", g)
		}
	})

	t.Run("DeleteKey", func(t *testing.T) {
		c := newCache(t)
		ctx := context.Background()

		_ = c.Set(ctx, "k1", []byte("1"), cache.WithNamespace("greet"))
		_ = c.Set(ctx, "k2", []byte("2"), cache.WithNamespace("greet"))
		if err := c.Delete(ctx, cache.WithNamespace("greet"), cache.WithKey("k1")); err != nil {
			t.Fatalf("Delete() failed: %v", err)
		}
		if item, _ := c.Get(ctx, "k1", cache.WithNamespace("greet")); item != nil {
			t.Fatalf("k1 survived delete")
		}
		if item, _ := c.Get(ctx, "k2", cache.WithNamespace("greet")); item == nil {
			t.Fatalf("k2 removed by single-key delete")
		}
	})

	t.Run("DeleteNamespace", func(t *testing.T) {
		c := newCache(t)
		ctx := context.Background()

		_ = c.Set(ctx, "k1", []byte("1"), cache.WithNamespace("greet"))
		_ = c.Set(ctx, "k2", []byte("2"), cache.WithNamespace("greet"))
		_ = c.Set(ctx, "k1", []byte("3"), cache.WithNamespace("other"))
		if err := c.Delete(ctx, cache.WithNamespace("greet")); err != nil {
			t.Fatalf("Delete() failed: %v", err)
		}
		for _, k := range []string{"k1", "k2"} {
			if item, _ := c.Get(ctx, k, cache.WithNamespace("greet")); item != nil {
				t.Fatalf("%s survived namespace delete", k)
			}
		}
		if item, _ := c.Get(ctx, "k1", cache.WithNamespace("other")); item == nil {
			t.Fatalf("namespace delete removed keys from another namespace")
		}
	})
}
