package queue

import (
	"container/heap"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Hkmori15/hget/pkg/models"
)

// frontierItem wraps a target for the heap.
type frontierItem struct {
	target   *models.Target
	priority int // lower value pops first; depth keeps shallow targets ahead
	index    int
}

// targetHeap implements heap.Interface.
type targetHeap []*frontierItem

func (h targetHeap) Len() int           { return len(h) }
func (h targetHeap) Less(i, j int) bool { return h[i].priority < h[j].priority }
func (h targetHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *targetHeap) Push(x any) {
	item := x.(*frontierItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *targetHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil // avoid memory leak
	item.index = -1
	*h = old[:n-1]
	return item
}

// Frontier is the shared set of targets discovered but not yet processed.
// Shallower targets are served first, but no ordering is guaranteed between
// targets at the same depth. Safe for concurrent use by all workers.
type Frontier struct {
	heap   targetHeap
	mu     sync.Mutex
	cond   *sync.Cond
	closed bool
	log    *logrus.Entry
}

// NewFrontier creates an empty frontier.
func NewFrontier(log *logrus.Entry) *Frontier {
	f := &Frontier{log: log}
	f.cond = sync.NewCond(&f.mu)
	heap.Init(&f.heap)
	return f
}

// Add enqueues a target and reports whether it was accepted. A closed
// frontier rejects the target; callers tracking outstanding work must undo
// their accounting on rejection.
func (f *Frontier) Add(t *models.Target) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		f.log.Warnf("Attempted to add target to closed frontier: %s", t.URL)
		return false
	}

	heap.Push(&f.heap, &frontierItem{target: t, priority: t.Depth})
	f.cond.Signal()
	return true
}

// Pop retrieves the shallowest pending target, blocking while the frontier
// is empty. Returns nil and false once the frontier is closed and drained.
func (f *Frontier) Pop() (*models.Target, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for len(f.heap) == 0 {
		if f.closed {
			return nil, false
		}
		f.cond.Wait()
	}

	item := heap.Pop(&f.heap).(*frontierItem)
	return item.target, true
}

// Close signals that no more targets will be added. Waiting workers wake up
// and drain the remaining entries before exiting.
func (f *Frontier) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		f.cond.Broadcast()
	}
}

// Len returns the current number of pending targets.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.heap)
}
