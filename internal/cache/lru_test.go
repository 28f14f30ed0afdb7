package cache

import (
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU[string, int](2, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a")
	}
	c.Set("c", 3) // evicts b
	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("unexpected a: %v %v", v, ok)
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", c.Len())
	}
}

func TestLRU_Expiry(t *testing.T) {
	clk := &clock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRU[string, string](10, time.Hour, WithClock(clk.now))

	c.Set("ttl", "x")
	c.SetUntil("short", "y", clk.t.Add(time.Minute))
	c.SetUntil("long", "z", clk.t.Add(48*time.Hour)) // capped at the TTL

	clk.t = clk.t.Add(time.Minute)
	if _, ok := c.Get("short"); ok {
		t.Fatal("short should expire at its deadline")
	}
	if _, ok := c.Get("ttl"); !ok {
		t.Fatal("ttl entry should still be valid")
	}

	clk.t = clk.t.Add(time.Hour)
	if _, ok := c.Get("long"); ok {
		t.Fatal("deadline beyond the ttl must be capped")
	}
	if _, ok := c.Get("ttl"); ok {
		t.Fatal("ttl entry should have expired")
	}
}

func TestLRU_DeleteAndPurge(t *testing.T) {
	c := NewLRU[int, bool](5, time.Minute)
	c.Set(1, true)
	c.Set(2, true)
	c.Delete(1)
	if _, ok := c.Get(1); ok {
		t.Fatal("1 should be deleted")
	}
	c.Purge()
	if c.Len() != 0 {
		t.Fatalf("expected empty cache, got %d", c.Len())
	}
	c.Set(3, true)
	if _, ok := c.Get(3); !ok {
		t.Fatal("cache should be usable after purge")
	}
}
