package engine

import (
	"context"
	"sync"
)

// pending is a request waiting for the writer goroutine, together with the
// channel its submitter is blocked on.
type pending struct {
	ctx   context.Context
	req   Request
	reply chan outcome
}

type outcome struct {
	result Result
	err    error
}

// requestQueue is an unbounded, thread-safe FIFO of submitted requests.
//
// Submitters enqueue from any goroutine; only Run dequeues. A buffered
// signal channel of size 1 lets Run wait on the queue and on its context in
// the same select.
type requestQueue struct {
	mu     sync.Mutex
	items  []pending
	closed bool
	signal chan struct{}
}

func newRequestQueue() *requestQueue {
	return &requestQueue{
		items:  make([]pending, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue appends p. Returns false if the queue is closed.
func (q *requestQueue) Enqueue(p pending) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.items = append(q.items, p)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front request without blocking.
func (q *requestQueue) TryDequeue() (pending, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return pending{}, false
	}
	p := q.items[0]
	// Clear the slot so the backing array does not pin the request.
	q.items[0] = pending{}
	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}
	return p, true
}

// Wait returns a channel that fires when requests may be available. It is
// closed once the queue is closed.
func (q *requestQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued requests.
func (q *requestQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Closed reports whether Close has been called.
func (q *requestQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close stops further enqueues and wakes the waiter. Requests already
// queued stay available to TryDequeue.
func (q *requestQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
