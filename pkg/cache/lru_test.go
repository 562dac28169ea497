package cache

import (
	"testing"
	"time"
)

func TestLRUSetGet(t *testing.T) {
	c := NewLRU(2, nil)
	c.Set("a", []byte("1"), 0)

	got, ok := c.Get("a")
	if !ok || string(got) != "1" {
		t.Fatalf("expected hit with value 1, got %q ok=%v", got, ok)
	}
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU(2, nil)
	c.Set("a", []byte("1"), 0)
	c.Set("b", []byte("2"), 0)
	c.Get("a") // promote a
	c.Set("c", []byte("3"), 0) // should evict b, not a

	if _, ok := c.Get("b"); ok {
		t.Fatalf("expected b to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("expected a to survive eviction")
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatalf("expected c to be present")
	}
}

func TestLRUTTLExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	c := NewLRU(4, clock)

	c.Set("key", []byte("value"), time.Minute)

	if _, ok := c.Get("key"); !ok {
		t.Fatalf("expected hit before TTL elapses")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("key"); ok {
		t.Fatalf("expected miss after TTL elapses")
	}
}

func TestTenantKeyAndGlobalKey(t *testing.T) {
	if got := TenantKey("org-1", "foo"); got != "tenant:org-1:foo" {
		t.Fatalf("unexpected tenant key: %q", got)
	}
	if got := GlobalKey("foo"); got != "global:foo" {
		t.Fatalf("unexpected global key: %q", got)
	}
	if got := TenantKey("", "foo"); got != "global:foo" {
		t.Fatalf("empty org should fall back to global key, got %q", got)
	}
}
