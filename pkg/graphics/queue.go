package graphics

import (
	"sync"
)

// CallbackQueue collects work that has to run on the render thread. The
// interpreter pushes from its own goroutine; the draw loop drains.
type CallbackQueue struct {
	callbacks []func()
	mu        sync.Mutex
}

// NewCallbackQueue creates an empty queue.
func NewCallbackQueue() *CallbackQueue {
	return &CallbackQueue{}
}

// Push appends fn.
func (q *CallbackQueue) Push(fn func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.callbacks = append(q.callbacks, fn)
}

// Drain runs every queued callback in push order and returns how many ran.
// Callbacks pushed while draining run on the next call.
func (q *CallbackQueue) Drain() int {
	q.mu.Lock()
	pending := q.callbacks
	q.callbacks = nil
	q.mu.Unlock()

	for _, fn := range pending {
		fn()
	}
	return len(pending)
}

// Len returns the number of queued callbacks.
func (q *CallbackQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.callbacks)
}
