package cache

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func newTestCache(size int, ttl time.Duration) (*LRUCache[string], *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](size, ttl)
	c.now = clock.now
	return c, clock
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a")
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("a should survive, got %q %v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("expected size 2, got %d", c.Size())
	}
}

func TestLRUExpiry(t *testing.T) {
	c, clock := newTestCache(10, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")

	clock.t = clock.t.Add(30 * time.Second)
	c.Set("b", "2")
	clock.t = clock.t.Add(45 * time.Second)

	if _, ok := c.Get("a"); ok {
		t.Fatal("a should have expired")
	}
	if n := c.CleanExpired(); n != 0 {
		t.Fatalf("nothing else expired yet, removed %d", n)
	}
	clock.t = clock.t.Add(time.Minute)
	if n := c.CleanExpired(); n != 1 || c.Size() != 0 {
		t.Fatalf("expected b to be cleaned, removed %d size %d", n, c.Size())
	}
}

func TestSetIfVersionRejectsStaleLoads(t *testing.T) {
	c, _ := newTestCache(10, time.Minute)

	v := c.Version("owner")
	c.Delete("owner") // invalidation while a load is in flight
	if c.SetIfVersion("owner", v, "stale") {
		t.Fatal("stale value must not be stored")
	}
	if _, ok := c.Get("owner"); ok {
		t.Fatal("cache should be empty")
	}

	v = c.Version("owner")
	if !c.SetIfVersion("owner", v, "fresh") {
		t.Fatal("current version should be stored")
	}
	if got, _ := c.Get("owner"); got != "fresh" {
		t.Fatalf("expected fresh, got %q", got)
	}
}

func TestCleanExpiredForgetsUnusedVersions(t *testing.T) {
	c, _ := newTestCache(10, time.Minute)

	inFlight := c.Version("carol")
	for _, owner := range []string{"alice", "bob", "carol"} {
		c.Delete(owner)
	}
	c.Set("bob", "cached")
	if len(c.versions) != 3 {
		t.Fatalf("expected 3 versions, got %d", len(c.versions))
	}

	c.CleanExpired()
	if len(c.versions) != 1 {
		t.Fatalf("only bob still holds a value, got versions %v", c.versions)
	}
	if c.SetIfVersion("carol", inFlight, "stale") {
		t.Fatal("load started before the invalidation must still be rejected after pruning")
	}

	v := c.Version("carol")
	if !c.SetIfVersion("carol", v, "fresh") {
		t.Fatal("load started after pruning should be stored")
	}
	if got, _ := c.Get("bob"); got != "cached" {
		t.Fatalf("bob lost its value: %q", got)
	}
}

func TestManagerSweepAndStop(t *testing.T) {
	c, clock := newTestCache(10, time.Second)
	c.Set("a", "1")
	clock.t = clock.t.Add(2 * time.Second)

	m := NewManager()
	m.Register(c)
	if n := m.Sweep(); n != 1 {
		t.Fatalf("expected 1 removed, got %d", n)
	}

	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()

	NewManager().Stop() // never started
}
