package storage

import "sync"

// VisitedSet is the crawl's shared set of canonicalized URLs that have been
// admitted for processing or completed. It is the only shared mutable
// structure in the crawl; membership check-and-insert is atomic so that a
// URL discovered twice concurrently is fetched at most once. State lives for
// a single crawl invocation only; nothing persists across runs.
type VisitedSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewVisitedSet creates an empty set.
func NewVisitedSet() *VisitedSet {
	return &VisitedSet{seen: make(map[string]struct{})}
}

// TryInsert atomically inserts key and reports whether it was newly added.
// A false return means another worker already admitted this URL.
func (v *VisitedSet) TryInsert(key string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, exists := v.seen[key]; exists {
		return false
	}
	v.seen[key] = struct{}{}
	return true
}

// Contains reports current membership. Advisory only: callers that need
// exactly-once admission must use TryInsert.
func (v *VisitedSet) Contains(key string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, exists := v.seen[key]
	return exists
}

// Len returns the number of admitted URLs.
func (v *VisitedSet) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.seen)
}
