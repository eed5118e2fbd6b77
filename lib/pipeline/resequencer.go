package pipeline

// resequencer restores submission order over out-of-order completions.
// Items are stored under their submission sequence number (starting at
// zero, strictly unique) and released in increasing order only: pop
// returns nothing until the item with the lowest unreleased sequence
// number has been put, no matter how many later items are already
// buffered.
type resequencer[T any] struct {
	next    uint64
	pending map[uint64]T
}

func newResequencer[T any](sizeHint int) *resequencer[T] {
	return &resequencer[T]{pending: make(map[uint64]T, sizeHint)}
}

// put buffers item under seq.
func (r *resequencer[T]) put(seq uint64, item T) {
	r.pending[seq] = item
}

// pop releases the next in-order item. ok is false if that item has not
// been put yet.
func (r *resequencer[T]) pop() (item T, ok bool) {
	item, ok = r.pending[r.next]
	if !ok {
		return item, false
	}
	delete(r.pending, r.next)
	r.next++
	return item, true
}

// size returns the number of buffered out-of-order items.
func (r *resequencer[T]) size() int {
	return len(r.pending)
}
