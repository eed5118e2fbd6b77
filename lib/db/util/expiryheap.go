// This file provides the deadline queue used by garbage collectors.
//
// The implementation combines a binary min-heap ordered by expiration
// deadline with a hash map for O(1) key-based access. A collector peeks
// the earliest deadline to size its sleep and pops entries as they come
// due; writes that replace or remove a ttl cancel or reschedule the
// entry directly by key in O(log n).
//
// The structure is not safe for concurrent use; the owning goroutine
// must synchronize access.
package util

import (
	"container/heap"
	"fmt"
)

// expiryItem is a scheduled key expiration.
type expiryItem struct {
	key      string
	deadline int64 // unix nanoseconds
	index    int   // position in the heap, maintained by the heap package
}

func (i *expiryItem) String() string {
	return fmt.Sprintf("{Key: %s, Deadline: %d}", i.key, i.deadline)
}

// ExpiryHeap is a priority queue of key expiration deadlines with both
// heap operations and key-based access.
type ExpiryHeap struct {
	items []*expiryItem
	byKey map[string]*expiryItem
}

// NewExpiryHeap creates an empty expiry queue.
func NewExpiryHeap() *ExpiryHeap {
	return &ExpiryHeap{
		items: make([]*expiryItem, 0),
		byKey: make(map[string]*expiryItem),
	}
}

// Len returns the number of scheduled expirations (part of heap.Interface).
func (h *ExpiryHeap) Len() int { return len(h.items) }

// Less orders by deadline, earliest first (part of heap.Interface).
func (h *ExpiryHeap) Less(i, j int) bool {
	return h.items[i].deadline < h.items[j].deadline
}

// Swap exchanges items at positions i and j (part of heap.Interface).
func (h *ExpiryHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].index = i
	h.items[j].index = j
}

// Push adds an item to the heap (part of heap.Interface).
func (h *ExpiryHeap) Push(x interface{}) {
	it := x.(*expiryItem)
	it.index = len(h.items)
	h.items = append(h.items, it)
	h.byKey[it.key] = it
}

// Pop removes and returns the earliest item (part of heap.Interface).
func (h *ExpiryHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	it := old[n-1]
	old[n-1] = nil  // avoid memory leak
	it.index = -1   // for safety
	h.items = old[:n-1]
	delete(h.byKey, it.key)
	return it
}

// Schedule adds key with the given deadline, or moves an already
// scheduled key to the new deadline.
func (h *ExpiryHeap) Schedule(key string, deadline int64) {
	if it, exists := h.byKey[key]; exists {
		it.deadline = deadline
		heap.Fix(h, it.index)
		return
	}
	heap.Push(h, &expiryItem{key: key, deadline: deadline})
}

// Cancel removes a scheduled expiration by key, returning its deadline.
func (h *ExpiryHeap) Cancel(key string) (int64, bool) {
	it, exists := h.byKey[key]
	if !exists {
		return 0, false
	}
	heap.Remove(h, it.index)
	return it.deadline, true
}

// Peek returns the earliest scheduled expiration without removing it.
func (h *ExpiryHeap) Peek() (key string, deadline int64, ok bool) {
	if len(h.items) == 0 {
		return "", 0, false
	}
	return h.items[0].key, h.items[0].deadline, true
}

// PopDue removes and returns the earliest scheduled key if its deadline
// is at or before now.
func (h *ExpiryHeap) PopDue(now int64) (key string, ok bool) {
	if len(h.items) == 0 || h.items[0].deadline > now {
		return "", false
	}
	it := heap.Pop(h).(*expiryItem)
	return it.key, true
}

// Contains checks if an expiration is scheduled for key.
func (h *ExpiryHeap) Contains(key string) bool {
	_, exists := h.byKey[key]
	return exists
}
