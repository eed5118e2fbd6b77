package util

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"
)

// TestExpiryHeapScheduleAndPeek tests scheduling and deadline ordering
func TestExpiryHeapScheduleAndPeek(t *testing.T) {
	h := NewExpiryHeap()

	if h.Len() != 0 {
		t.Errorf("new heap should be empty, but has length %d", h.Len())
	}

	h.Schedule("a", 100)
	h.Schedule("b", 200)
	h.Schedule("c", 50)

	if h.Len() != 3 {
		t.Errorf("heap should have 3 items, but has %d", h.Len())
	}
	for _, key := range []string{"a", "b", "c"} {
		if !h.Contains(key) {
			t.Errorf("heap should contain key %q", key)
		}
	}

	key, deadline, ok := h.Peek()
	if !ok {
		t.Fatal("Peek() should return an item")
	}
	if key != "c" || deadline != 50 {
		t.Errorf("expected earliest item to be (c,50), got (%s,%d)", key, deadline)
	}
}

// TestExpiryHeapReschedule tests moving an already scheduled key
func TestExpiryHeapReschedule(t *testing.T) {
	h := NewExpiryHeap()

	h.Schedule("a", 100)
	h.Schedule("b", 200)

	// push key a back, b becomes the earliest
	h.Schedule("a", 300)
	if key, _, _ := h.Peek(); key != "b" {
		t.Errorf("earliest key should now be b, got %s", key)
	}

	// pull key b forward
	h.Schedule("b", 50)
	if key, deadline, _ := h.Peek(); key != "b" || deadline != 50 {
		t.Errorf("earliest item should be (b,50), got (%s,%d)", key, deadline)
	}

	if h.Len() != 2 {
		t.Errorf("rescheduling must not grow the heap, got %d items", h.Len())
	}
}

// TestExpiryHeapCancel tests removing scheduled expirations by key
func TestExpiryHeapCancel(t *testing.T) {
	h := NewExpiryHeap()

	h.Schedule("a", 100)
	h.Schedule("b", 200)
	h.Schedule("c", 300)

	deadline, ok := h.Cancel("b")
	if !ok {
		t.Fatal("Cancel should return true for a scheduled key")
	}
	if deadline != 200 {
		t.Errorf("Cancel should return deadline 200, got %d", deadline)
	}
	if h.Contains("b") || h.Len() != 2 {
		t.Errorf("key b still present after Cancel (len=%d)", h.Len())
	}

	if _, ok := h.Cancel("missing"); ok {
		t.Error("Cancel should return false for an unscheduled key")
	}
}

// TestExpiryHeapPopDue tests due-time gating
func TestExpiryHeapPopDue(t *testing.T) {
	h := NewExpiryHeap()

	h.Schedule("a", 100)
	h.Schedule("b", 200)

	if key, ok := h.PopDue(50); ok {
		t.Errorf("PopDue(50) released %q before its deadline", key)
	}

	key, ok := h.PopDue(150)
	if !ok || key != "a" {
		t.Errorf("PopDue(150) = (%s,%v), want (a,true)", key, ok)
	}
	if key, ok := h.PopDue(150); ok {
		t.Errorf("PopDue(150) released %q with deadline 200", key)
	}
	if key, ok := h.PopDue(250); !ok || key != "b" {
		t.Errorf("PopDue(250) = (%s,%v), want (b,true)", key, ok)
	}
	if h.Len() != 0 {
		t.Errorf("heap should be drained, has %d items", h.Len())
	}
}

// TestExpiryHeapOrdering pops a randomly scheduled set and expects
// deadlines in ascending order
func TestExpiryHeapOrdering(t *testing.T) {
	h := NewExpiryHeap()

	const n = 500
	deadlines := make([]int64, n)
	for i := range deadlines {
		deadlines[i] = rand.Int63n(1_000_000)
		h.Schedule(fmt.Sprintf("key-%d", i), deadlines[i])
	}

	var popped []int64
	for h.Len() > 0 {
		_, deadline, _ := h.Peek()
		key, ok := h.PopDue(deadline)
		if !ok {
			t.Fatalf("PopDue at the peeked deadline released nothing (key=%q)", key)
		}
		popped = append(popped, deadline)
	}

	if !sort.SliceIsSorted(popped, func(i, j int) bool { return popped[i] < popped[j] }) {
		t.Error("deadlines not released in ascending order")
	}
}
