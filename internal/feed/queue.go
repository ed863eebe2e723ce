package feed

import "sync"

// Queue is a thread-safe ring buffer that grows instead of dropping or
// blocking producers. Marketplace operations must never stall on a slow
// journal writer or feed subscriber, so the queue doubles its capacity once
// it passes 70% full.
type Queue[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []T
	head   int
	tail   int
	count  int
	closed bool

	enqueued int64
	dequeued int64
	resizes  int
}

// NewQueue creates a queue with the given initial capacity.
func NewQueue[T any](initialCapacity int) *Queue[T] {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	q := &Queue[T]{items: make([]T, initialCapacity)}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Send enqueues an item, growing the queue if needed. Returns false if the
// queue is closed.
func (q *Queue[T]) Send(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	threshold := (len(q.items) * 70) / 100
	if threshold < 1 {
		threshold = 1
	}
	if q.count+1 >= threshold {
		q.grow()
	}

	q.items[q.tail] = item
	q.tail = (q.tail + 1) % len(q.items)
	q.count++
	q.enqueued++
	q.cond.Signal()
	return true
}

// Receive dequeues an item, blocking until one is available or the queue is
// closed and drained.
func (q *Queue[T]) Receive() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.count == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.count == 0 {
		var zero T
		return zero, false
	}
	return q.popLocked(), true
}

// TryReceive dequeues an item without blocking.
func (q *Queue[T]) TryReceive() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		var zero T
		return zero, false
	}
	return q.popLocked(), true
}

// Close marks the queue closed. Producers get false from Send; consumers
// drain the remaining items and then get false from Receive.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// QueueStats are cumulative queue counters.
type QueueStats struct {
	Count    int
	Capacity int
	Enqueued int64
	Dequeued int64
	Resizes  int
}

// Stats returns cumulative counters.
func (q *Queue[T]) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return QueueStats{
		Count:    q.count,
		Capacity: len(q.items),
		Enqueued: q.enqueued,
		Dequeued: q.dequeued,
		Resizes:  q.resizes,
	}
}

func (q *Queue[T]) popLocked() T {
	item := q.items[q.head]
	var zero T
	q.items[q.head] = zero
	q.head = (q.head + 1) % len(q.items)
	q.count--
	q.dequeued++
	return item
}

// grow doubles capacity, unwrapping the ring into the new slice.
func (q *Queue[T]) grow() {
	bigger := make([]T, len(q.items)*2)
	if q.count > 0 {
		if q.head < q.tail {
			copy(bigger, q.items[q.head:q.tail])
		} else {
			n := copy(bigger, q.items[q.head:])
			copy(bigger[n:], q.items[:q.tail])
		}
	}
	q.items = bigger
	q.head = 0
	q.tail = q.count
	q.resizes++
}
