package queue

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrTimeout is returned when a pop waited its full timeout on an empty queue.
	// Callers treat it as a completion signal, not a failure.
	ErrTimeout = errors.New("queue: pop timed out")
	// ErrClosed is returned when the queue is closed and fully drained
	ErrClosed = errors.New("queue: closed")
)

// Unbounded is a thread-safe FIFO with no capacity limit. Any number of
// goroutines may push and pop concurrently.
type Unbounded[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
	// ready carries at most one wakeup token; a consumer that takes an item
	// and sees more remaining passes the token on.
	ready chan struct{}
}

// NewUnbounded creates an empty queue
func NewUnbounded[T any]() *Unbounded[T] {
	return &Unbounded[T]{ready: make(chan struct{}, 1)}
}

// Push appends item. Pushing to a closed queue returns ErrClosed.
func (q *Unbounded[T]) Push(item T) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.items = append(q.items, item)
	q.mu.Unlock()

	q.signal()
	return nil
}

// Close marks the end of input. Items already queued can still be popped.
func (q *Unbounded[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.signal()
}

// TryPop returns the head of the queue without waiting
func (q *Unbounded[T]) TryPop() (item T, ok bool) {
	item, ok, _ = q.take()
	return item, ok
}

// PopTimeout waits up to timeout for an item. It returns ErrTimeout if the
// queue stayed empty, ErrClosed if it is closed and drained, or the context
// error if ctx ends first.
func (q *Unbounded[T]) PopTimeout(ctx context.Context, timeout time.Duration) (T, error) {
	var zero T

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		item, ok, closed := q.take()
		if ok {
			return item, nil
		}
		if closed {
			return zero, ErrClosed
		}

		select {
		case <-q.ready:
			continue
		case <-timer.C:
			// Last look before giving up, an item may have raced the timer
			if item, ok, _ := q.take(); ok {
				return item, nil
			}
			return zero, ErrTimeout
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// Len returns the number of queued items
func (q *Unbounded[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Unbounded[T]) take() (item T, ok bool, closed bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		if q.closed {
			// Keep waking other waiters so they all observe the close
			q.signal()
		}
		return item, false, q.closed
	}

	item = q.items[0]
	var zero T
	q.items[0] = zero
	q.items = q.items[1:]
	if len(q.items) > 0 || q.closed {
		q.signal()
	}
	return item, true, q.closed
}

func (q *Unbounded[T]) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
