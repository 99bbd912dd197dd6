package engine

import (
	"sync"

	"github.com/roach88/reconciler/internal/element"
	"github.com/roach88/reconciler/internal/fiber"
	"github.com/roach88/reconciler/internal/host"
	"github.com/roach88/reconciler/internal/ir"
)

// Origin says what enqueued a request.
type Origin int

const (
	// OriginRoot is a top-level Render call.
	OriginRoot Origin = iota + 1
	// OriginComponent is a component instance's RequestUpdate.
	OriginComponent
)

// String returns "root" or "component".
func (o Origin) String() string {
	switch o {
	case OriginRoot:
		return "root"
	case OriginComponent:
		return "component"
	default:
		return "unknown"
	}
}

// Request is one queued update. Each dequeued request seeds at most one pass.
type Request struct {
	Origin    Origin
	Container host.Node        // root requests
	Element   *element.Element // root requests
	Instance  *fiber.Instance  // component requests
	Delta     ir.Object        // component requests
}

// requestQueue is a thread-safe FIFO queue of update requests.
//
// The queue is unbounded: handlers may request updates while a pass is in
// flight and those requests wait for their own pass.
//
// A buffered signal channel lets the Run loop wait with context awareness.
type requestQueue struct {
	mu       sync.Mutex
	requests []Request
	closed   bool
	signal   chan struct{} // buffered, size 1
}

func newRequestQueue() *requestQueue {
	return &requestQueue{
		requests: make([]Request, 0, 16),
		signal:   make(chan struct{}, 1),
	}
}

// Enqueue adds a request to the back of the queue.
// Returns false if the queue is closed.
func (q *requestQueue) Enqueue(r Request) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.requests = append(q.requests, r)

	// Non-blocking: the buffer of 1 coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front request without blocking.
func (q *requestQueue) TryDequeue() (Request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.requests) == 0 {
		return Request{}, false
	}

	r := q.requests[0]

	// Nil out the slot so the element tree and instance can be collected.
	q.requests[0] = Request{}

	if len(q.requests) == 1 {
		q.requests = q.requests[:0]
	} else {
		q.requests = q.requests[1:]
	}

	return r, true
}

// Wait returns a channel that signals when requests may be available.
// The channel is closed when the queue closes.
func (q *requestQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *requestQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.requests)
}

// Close stops accepting requests and wakes any waiter.
func (q *requestQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}

// Closed reports whether Close has been called.
func (q *requestQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
