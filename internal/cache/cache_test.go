package cache

import (
	"fmt"
	"sync"
	"testing"
)

func TestGetMiss(t *testing.T) {
	c := New(10)
	if _, ok := c.Get("nope"); ok {
		t.Error("Get on empty cache should miss")
	}
}

func TestAddGet(t *testing.T) {
	c := New(10)
	c.Add("k", []byte("audio"))

	v, ok := c.Get("k")
	if !ok {
		t.Fatal("expected hit")
	}
	if string(v) != "audio" {
		t.Errorf("value = %q, want audio", v)
	}
}

func TestEvictsOldest(t *testing.T) {
	c := New(3)
	c.Add("a", []byte("1"))
	c.Add("b", []byte("2"))
	c.Add("c", []byte("3"))
	c.Add("d", []byte("4")) // evicts a

	if _, ok := c.Get("a"); ok {
		t.Error("a should have been evicted")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("b should still be cached")
	}
	if c.Len() != 3 {
		t.Errorf("Len() = %d, want 3", c.Len())
	}
}

func TestGetRefreshesRecency(t *testing.T) {
	c := New(2)
	c.Add("a", []byte("1"))
	c.Add("b", []byte("2"))

	// Touch a so b becomes the eviction candidate.
	c.Get("a")
	c.Add("c", []byte("3"))

	if _, ok := c.Get("a"); !ok {
		t.Error("a was touched, should survive")
	}
	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
}

func TestAddExistingUpdates(t *testing.T) {
	c := New(2)
	c.Add("a", []byte("old"))
	c.Add("a", []byte("new"))

	v, _ := c.Get("a")
	if string(v) != "new" {
		t.Errorf("value = %q, want new", v)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestKeyDeterministic(t *testing.T) {
	k1 := Key("Der Hund bellt.", "voice-1", "de")
	k2 := Key("Der Hund bellt.", "voice-1", "de")
	if k1 != k2 {
		t.Error("same inputs should produce the same key")
	}
	if k1 == Key("Der Hund bellt.", "voice-2", "de") {
		t.Error("different voice should produce a different key")
	}
}

func TestStats(t *testing.T) {
	c := New(5)
	c.Add("a", []byte("1"))
	c.Get("a")
	c.Get("missing")

	s := c.Stats()
	if s.Size != 1 || s.Max != 5 {
		t.Errorf("Stats size/max = %d/%d, want 1/5", s.Size, s.Max)
	}
	if s.Hits != 1 || s.Misses != 1 {
		t.Errorf("Stats hits/misses = %d/%d, want 1/1", s.Hits, s.Misses)
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New(50)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := Key(fmt.Sprintf("text-%d-%d", n, j%10))
				c.Add(key, []byte("x"))
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()

	if c.Len() > 50 {
		t.Errorf("Len() = %d exceeds capacity", c.Len())
	}
}
