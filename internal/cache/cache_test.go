package cache

import (
	"sort"
	"testing"
)

func TestCacheGetSet(t *testing.T) {
	c := New[string, int](0, nil)

	if _, ok := c.Get("missing"); ok {
		t.Fatal("Get on empty cache returned ok")
	}
	c.Set("a", 1)
	v, ok := c.Get("a")
	if !ok || v != 1 {
		t.Fatalf("Get(a) = %d, %v; want 1, true", v, ok)
	}

	s := c.Stats()
	if s.Hits != 1 || s.Misses != 1 {
		t.Errorf("Stats hits/misses = %d/%d, want 1/1", s.Hits, s.Misses)
	}
	if s.HitRate != 0.5 {
		t.Errorf("HitRate = %v, want 0.5", s.HitRate)
	}
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	var released []string
	c := New[string, int](4, func(k string, _ int) { released = append(released, k) })

	for _, k := range []string{"a", "b", "c", "d"} {
		c.Set(k, 0)
	}
	// Touch a and b so c and d are the oldest.
	c.Get("a")
	c.Get("b")

	c.Set("e", 0) // 5 > 4, evict down to 3

	if c.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", c.Len())
	}
	sort.Strings(released)
	if len(released) != 2 || released[0] != "c" || released[1] != "d" {
		t.Errorf("released = %v, want [c d]", released)
	}
	if got := c.Stats().Evictions; got != 2 {
		t.Errorf("Evictions = %d, want 2", got)
	}
	for _, k := range []string{"a", "b", "e"} {
		if _, ok := c.Peek(k); !ok {
			t.Errorf("%q should still be cached", k)
		}
	}
}

func TestCacheDeleteReleases(t *testing.T) {
	var released []int
	c := New[int, int](0, func(_ int, v int) { released = append(released, v) })
	c.Set(1, 10)
	c.Set(2, 20)
	c.Set(3, 30)

	if !c.Delete(2) {
		t.Fatal("Delete(2) = false")
	}
	if c.Delete(2) {
		t.Fatal("second Delete(2) = true")
	}

	n := c.DeleteFunc(func(k, _ int) bool { return k == 3 })
	if n != 1 {
		t.Errorf("DeleteFunc removed %d, want 1", n)
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() after Clear = %d", c.Len())
	}
	sort.Ints(released)
	want := []int{10, 20, 30}
	if len(released) != len(want) {
		t.Fatalf("released = %v, want %v", released, want)
	}
	for i := range want {
		if released[i] != want[i] {
			t.Errorf("released = %v, want %v", released, want)
		}
	}
	if c.Stats().Evictions != 0 {
		t.Error("explicit deletes must not count as evictions")
	}
}

func TestCacheSetReplacesAndReleasesOld(t *testing.T) {
	var released []int
	c := New[string, int](0, func(_ string, v int) { released = append(released, v) })
	c.Set("k", 1)
	c.Set("k", 2)

	if v, _ := c.Peek("k"); v != 2 {
		t.Errorf("Peek = %d, want 2", v)
	}
	if len(released) != 1 || released[0] != 1 {
		t.Errorf("released = %v, want [1]", released)
	}
}

func TestCacheReleaseMayReenter(t *testing.T) {
	var c *Cache[int, int]
	c = New[int, int](2, func(int, int) {
		_ = c.Len()
	})
	c.Set(1, 1)
	c.Set(2, 2)
	c.Set(3, 3)
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}
