package assignment

import (
	"sync"
	"testing"
	"time"
)

func TestSelectionKeepsOrder(t *testing.T) {
	s := NewSelection()
	for _, id := range []string{"a", "b", "c"} {
		if !s.Toggle(id) {
			t.Fatalf("Toggle(%q) reported unselected", id)
		}
	}
	if s.Toggle("b") {
		t.Fatal("second Toggle(b) reported selected")
	}
	got := s.IDs()
	if len(got) != 2 || got[0] != "a" || got[1] != "c" || s.Contains("b") {
		t.Fatalf("IDs = %v", got)
	}

	got[0] = "mutated"
	if s.IDs()[0] != "a" {
		t.Fatal("IDs returned internal slice")
	}
}

func TestIDGeneratorStrictlyIncreasing(t *testing.T) {
	fixed := time.UnixMilli(1_700_000_000_000)
	g := &IDGenerator{now: func() time.Time { return fixed }}

	first := g.Next()
	if first != fixed.UnixMilli() {
		t.Fatalf("first = %d", first)
	}
	if second := g.Next(); second != first+1 {
		t.Fatalf("second = %d, want %d", second, first+1)
	}
}

func TestIDGeneratorConcurrent(t *testing.T) {
	g := NewIDGenerator()
	const n = 200
	ids := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- g.Next()
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool, n)
	for id := range ids {
		if seen[id] {
			t.Fatalf("duplicate id %d", id)
		}
		seen[id] = true
	}
}
