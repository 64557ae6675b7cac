package queue

import "sync/atomic"

// DropOldest is a bounded FIFO that evicts its oldest element to admit a new
// one when full. Push and TryPop never block.
type DropOldest[T any] struct {
	items   chan T
	dropped atomic.Uint64
}

// NewDropOldest creates a queue holding at most capacity items (minimum 1)
func NewDropOldest[T any](capacity int) *DropOldest[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &DropOldest[T]{items: make(chan T, capacity)}
}

// Push inserts item, evicting the oldest element first if the queue is full.
// It returns true when an element was evicted.
func (q *DropOldest[T]) Push(item T) bool {
	evicted := false
	for {
		select {
		case q.items <- item:
			return evicted
		default:
			// Full: drop the oldest to make room for the latest
			select {
			case <-q.items:
				evicted = true
				q.dropped.Add(1)
			default:
				// A consumer emptied a slot in between, retry the send
			}
		}
	}
}

// TryPop returns the oldest element, or ok=false when the queue is empty
func (q *DropOldest[T]) TryPop() (item T, ok bool) {
	select {
	case item = <-q.items:
		return item, true
	default:
		return item, false
	}
}

// Latest drains the queue and returns the newest element it held
func (q *DropOldest[T]) Latest() (item T, ok bool) {
	for {
		next, more := q.TryPop()
		if !more {
			return item, ok
		}
		item, ok = next, true
	}
}

// Len is a snapshot; it may be stale by the time the caller acts on it
func (q *DropOldest[T]) Len() int { return len(q.items) }

// Cap returns the fixed capacity
func (q *DropOldest[T]) Cap() int { return cap(q.items) }

// IsFull is an observability helper, not a synchronization primitive
func (q *DropOldest[T]) IsFull() bool { return len(q.items) == cap(q.items) }

// IsEmpty is an observability helper, not a synchronization primitive
func (q *DropOldest[T]) IsEmpty() bool { return len(q.items) == 0 }

// Dropped returns how many elements have been evicted so far
func (q *DropOldest[T]) Dropped() uint64 { return q.dropped.Load() }
