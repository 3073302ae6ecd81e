package cache

import (
	"context"
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestLRUCache_CapacityEviction(t *testing.T) {
	var evicted []string
	c := NewLRUCache[int](2, time.Hour, WithEvictHook(func(k string, _ int) { evicted = append(evicted, k) }))

	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should be present")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("b was least recently used and should be evicted")
	}
	if c.Size() != 2 {
		t.Fatalf("Size = %d, want 2", c.Size())
	}
	if len(evicted) != 1 || evicted[0] != "b" {
		t.Fatalf("evicted = %v", evicted)
	}
}

func TestLRUCache_SlidingExpiry(t *testing.T) {
	clk := &clock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](10, time.Minute, WithClock[string](clk.now))

	c.Set("s", "v")
	clk.t = clk.t.Add(50 * time.Second)
	if _, ok := c.Get("s"); !ok {
		t.Fatal("entry should still be alive")
	}
	clk.t = clk.t.Add(50 * time.Second)
	if _, ok := c.Get("s"); !ok {
		t.Fatal("Get should have refreshed the expiry")
	}
	clk.t = clk.t.Add(61 * time.Second)
	if _, ok := c.Get("s"); ok {
		t.Fatal("entry should be expired")
	}
}

func TestLRUCache_CleanExpired(t *testing.T) {
	clk := &clock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](10, time.Minute, WithClock[int](clk.now))
	c.Set("a", 1)
	c.Set("b", 2)
	clk.t = clk.t.Add(30 * time.Second)
	c.Set("c", 3)
	clk.t = clk.t.Add(45 * time.Second)

	j := NewJanitor(nil, c)
	if n := j.Sweep(); n != 2 {
		t.Fatalf("Sweep removed %d, want 2", n)
	}
	if c.Size() != 1 {
		t.Fatalf("Size = %d, want 1", c.Size())
	}

	c.Delete("c")
	if c.Size() != 0 {
		t.Fatal("Delete should remove the entry")
	}
}

func TestJanitor_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewJanitor(nil).Run(ctx, time.Millisecond) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}
