package util

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Queue.Pop once the queue has been closed and
// drained, and by Queue.Push after Close.
var ErrClosed = errors.New("queue closed")

const compactThreshold = 1024

// Queue is an unbounded FIFO hand-off between one producer and one consumer.
//
// Push never blocks, so a real-time producer is never throttled by a slow
// consumer. The flip side is that the queue grows without limit while the
// consumer is stalled; callers watch Len if they care.
//
// Example usage:
//
//	q := NewQueue[[]float32]()
//	go func() {
//	    defer q.Close()
//	    for buf := range source {
//	        _ = q.Push(buf)
//	    }
//	}()
//	for {
//	    buf, err := q.Pop(ctx)
//	    if errors.Is(err, ErrClosed) {
//	        return
//	    }
//	    handle(buf)
//	}
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	head   int
	closed bool

	// ready holds at most one wake-up token; closed on Close.
	ready chan struct{}
}

// NewQueue creates an empty, open queue.
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{ready: make(chan struct{}, 1)}
}

// Push appends v. It returns ErrClosed if the queue has been closed.
func (q *Queue[T]) Push(v T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}
	q.items = append(q.items, v)

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return nil
}

// Pop removes and returns the oldest item, blocking until one is available.
// After Close, remaining items are still returned in order; once the queue is
// empty every call returns ErrClosed immediately. Pop also returns early with
// ctx.Err() if ctx is done.
func (q *Queue[T]) Pop(ctx context.Context) (T, error) {
	for {
		q.mu.Lock()
		if q.head < len(q.items) {
			v := q.items[q.head]
			var zero T
			q.items[q.head] = zero
			q.head++
			switch {
			case q.head == len(q.items):
				q.items = q.items[:0]
				q.head = 0
			case q.head >= compactThreshold && q.head*2 >= len(q.items):
				// Reclaim the popped prefix so a consumer that never fully
				// catches up does not pin it forever.
				n := copy(q.items, q.items[q.head:])
				clear(q.items[n:])
				q.items = q.items[:n]
				q.head = 0
			}
			q.mu.Unlock()
			return v, nil
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			var zero T
			return zero, ErrClosed
		}

		select {
		case <-q.ready:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// Close marks the producer side as finished. It is safe to call more than once.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.ready)
	}
}

// Len returns the number of items waiting to be popped.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items) - q.head
}
