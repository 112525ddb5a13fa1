package storage

import (
	"fmt"
	"sync"
	"testing"
)

func TestVisitedSetTryInsert(t *testing.T) {
	v := NewVisitedSet()

	if !v.TryInsert("http://example.com/") {
		t.Error("first TryInsert should succeed")
	}
	if v.TryInsert("http://example.com/") {
		t.Error("second TryInsert of the same key should fail")
	}
	if !v.TryInsert("http://example.com/other") {
		t.Error("TryInsert of a different key should succeed")
	}
	if got := v.Len(); got != 2 {
		t.Errorf("Len = %d, want 2", got)
	}
}

func TestVisitedSetContains(t *testing.T) {
	v := NewVisitedSet()

	if v.Contains("http://example.com/") {
		t.Error("Contains on empty set should be false")
	}
	v.TryInsert("http://example.com/")
	if !v.Contains("http://example.com/") {
		t.Error("Contains after insert should be true")
	}
}

func TestVisitedSetConcurrentSingleWinner(t *testing.T) {
	v := NewVisitedSet()

	const goroutines = 50
	var wg sync.WaitGroup
	wins := make(chan struct{}, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if v.TryInsert("http://example.com/contested") {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	won := 0
	for range wins {
		won++
	}
	if won != 1 {
		t.Errorf("exactly one goroutine should win the insert, got %d", won)
	}
}

func TestVisitedSetConcurrentDistinctKeys(t *testing.T) {
	v := NewVisitedSet()

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if !v.TryInsert(fmt.Sprintf("http://example.com/page-%d", i)) {
				t.Errorf("insert of distinct key %d failed", i)
			}
		}(i)
	}
	wg.Wait()

	if got := v.Len(); got != n {
		t.Errorf("Len = %d, want %d", got, n)
	}
}
