package cache

import (
	"strconv"
	"testing"
	"time"
)

func TestLRUCache_GetSet(t *testing.T) {
	c := NewLRUCache[string](2, time.Minute)

	if _, ok := c.Get("a"); ok {
		t.Fatal("expected miss on empty cache")
	}
	c.Set("a", "1")
	c.Set("b", "2")
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("Get(a) = %q, %v", v, ok)
	}

	// "b" is now least recently used and must be evicted.
	c.Set("c", "3")
	if _, ok := c.Get("b"); ok {
		t.Fatal("expected b to be evicted")
	}
	if c.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", c.Size())
	}
}

func TestLRUCache_Overwrite(t *testing.T) {
	c := NewLRUCache[int](4, time.Minute)
	c.Set("k", 1)
	c.Set("k", 2)
	if v, _ := c.Get("k"); v != 2 {
		t.Fatalf("Get(k) = %d, want 2", v)
	}
	if c.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", c.Size())
	}
}

func TestLRUCache_Expiry(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	c := NewLRUCache[int](10, time.Minute)
	c.now = func() time.Time { return now }
	c.Set("a", 1)
	now = now.Add(30 * time.Second)
	c.Set("b", 2)

	// A read refreshes recency but not lifetime.
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a to be live")
	}
	now = now.Add(30 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected a to expire exactly at its ttl")
	}
	if v, ok := c.Get("b"); !ok || v != 2 {
		t.Fatal("expected b to be live")
	}

	now = now.Add(time.Minute)
	c.Set("c", 3)
	if removed := c.CleanExpired(); removed != 1 {
		t.Fatalf("CleanExpired() = %d, want 1", removed)
	}
	if c.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", c.Size())
	}
}

func TestLRUCache_CountsEvictions(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	for i := 0; i < 5; i++ {
		c.Set(strconv.Itoa(i), i)
	}
	if got := c.Evictions(); got != 3 {
		t.Fatalf("Evictions() = %d, want 3", got)
	}
	c.Set("4", 40)
	c.Clear()
	if got := c.Evictions(); got != 3 {
		t.Fatalf("Evictions() after overwrite and Clear = %d, want 3", got)
	}

	tiny := NewLRUCache[int](0, time.Minute)
	tiny.Set("a", 1)
	if v, ok := tiny.Get("a"); !ok || v != 1 {
		t.Fatal("zero-capacity cache should hold one entry")
	}
}

func TestLRUCache_DeleteAndClear(t *testing.T) {
	c := NewLRUCache[int](100, time.Minute)
	for i := 0; i < 10; i++ {
		c.Set(strconv.Itoa(i), i)
	}
	c.Delete("3")
	if _, ok := c.Get("3"); ok {
		t.Fatal("expected deleted key to miss")
	}
	c.Clear()
	if c.Size() != 0 {
		t.Fatalf("Size() after Clear = %d", c.Size())
	}
	c.Set("x", 1)
	if v, ok := c.Get("x"); !ok || v != 1 {
		t.Fatal("cache unusable after Clear")
	}
}

func TestManager_StopWaitsForCleanup(t *testing.T) {
	m := NewManager()
	c := NewLRUCache[int](10, time.Millisecond)
	c.Set("a", 1)
	m.Register(c)
	m.StartCleanup(5 * time.Millisecond)

	deadline := time.Now().Add(time.Second)
	for c.Size() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	m.Stop()
	if c.Size() != 0 {
		t.Fatal("expected manager to clean expired entries")
	}
}

func TestManager_StopWithoutStart(t *testing.T) {
	m := NewManager()
	done := make(chan struct{})
	go func() {
		m.Stop()
		m.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked without a running cleanup")
	}
}

var _ Cache[int] = (*LRUCache[int])(nil)
