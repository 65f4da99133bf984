package syncx

import "context"

// WorkQueue is an unbounded FIFO queue safe for many producers and one or
// more consumers.
//
// The slice is guarded by a Gate, so an uncontended Push or TryPop costs one
// atomic add. A buffered signal channel of size 1 lets consumers wait with
// context cancellation; multiple pushes coalesce into one signal, so a
// consumer that pops while items remain passes the signal on.
type WorkQueue[T any] struct {
	gate   *Gate
	items  []T
	closed bool
	signal chan struct{}
}

// NewWorkQueue creates an empty queue.
func NewWorkQueue[T any]() *WorkQueue[T] {
	return &WorkQueue[T]{
		gate:   NewGate(),
		items:  make([]T, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Push appends item. Returns false if the queue is closed.
func (q *WorkQueue[T]) Push(item T) bool {
	q.gate.Lock()
	defer q.gate.Unlock()

	if q.closed {
		return false
	}
	q.items = append(q.items, item)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryPop removes the front item without blocking. The boolean is false when
// the queue is empty.
func (q *WorkQueue[T]) TryPop() (T, bool) {
	q.gate.Lock()
	defer q.gate.Unlock()
	return q.popLocked()
}

func (q *WorkQueue[T]) popLocked() (T, bool) {
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	item := q.items[0]
	// Clear the slot so the backing array does not pin popped items.
	q.items[0] = zero
	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}
	return item, true
}

// Pop removes the front item, blocking until one is available, the queue is
// closed and empty, or ctx is done.
func (q *WorkQueue[T]) Pop(ctx context.Context) (T, error) {
	for {
		q.gate.Lock()
		item, ok := q.popLocked()
		if ok && len(q.items) > 0 && !q.closed {
			select {
			case q.signal <- struct{}{}:
			default:
			}
		}
		closed := !ok && q.closed
		q.gate.Unlock()
		if ok {
			return item, nil
		}
		if closed {
			var zero T
			return zero, ErrClosed
		}

		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-q.signal:
		}
	}
}

// DrainOne pops one item and passes it to fn outside the gate. It reports
// whether an item was handled.
func (q *WorkQueue[T]) DrainOne(fn func(T)) bool {
	item, ok := q.TryPop()
	if !ok {
		return false
	}
	fn(item)
	return true
}

// DrainAll takes every item queued at the time of the call and passes each
// to fn, in order, outside the gate. Items pushed by fn are left for the next
// drain. Returns the number handled.
func (q *WorkQueue[T]) DrainAll(fn func(T)) int {
	q.gate.Lock()
	batch := q.items
	q.items = make([]T, 0, cap(batch))
	q.gate.Unlock()

	for _, item := range batch {
		fn(item)
	}
	return len(batch)
}

// Wait returns a channel that signals when items may be available. The
// channel is closed when the queue is closed.
func (q *WorkQueue[T]) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current length.
func (q *WorkQueue[T]) Len() int {
	q.gate.Lock()
	defer q.gate.Unlock()
	return len(q.items)
}

// Close rejects further pushes and wakes waiters. Items already queued can
// still be popped.
func (q *WorkQueue[T]) Close() {
	q.gate.Lock()
	defer q.gate.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

// Closed reports whether Close was called.
func (q *WorkQueue[T]) Closed() bool {
	q.gate.Lock()
	defer q.gate.Unlock()
	return q.closed
}
