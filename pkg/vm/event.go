package vm

import (
	"sort"
	"sync"
	"time"
)

// EventType represents the type of an input event delivered by the
// presentation loop.
type EventType string

const (
	// EventClick is a left button press. It advances text, selects choices
	// and interrupts interruptible waits.
	EventClick EventType = "CLICK"

	// EventRightClick is a right button press.
	EventRightClick EventType = "RCLICK"

	// EventKey is a key press. Key carries the key name.
	EventKey EventType = "KEY"

	// EventMove reports the cursor position.
	EventMove EventType = "MOVE"
)

// Event is one input event.
type Event struct {
	Type      EventType
	X, Y      int
	Key       string
	Timestamp time.Time
}

// DefaultQueueSize is the default maximum size of the event queue.
const DefaultQueueSize = 256

// EventQueue is a thread-safe queue for events in chronological order.
// The presentation goroutine pushes, the interpreter drains once per tick.
// When the queue is full the oldest events are discarded.
type EventQueue struct {
	events  []Event
	maxSize int
	mu      sync.Mutex
}

// NewEventQueue creates a new event queue with the default maximum size.
func NewEventQueue() *EventQueue {
	return NewEventQueueWithSize(DefaultQueueSize)
}

// NewEventQueueWithSize creates a new event queue with a custom maximum size.
func NewEventQueueWithSize(maxSize int) *EventQueue {
	if maxSize <= 0 {
		maxSize = DefaultQueueSize
	}
	return &EventQueue{
		events:  make([]Event, 0, maxSize),
		maxSize: maxSize,
	}
}

// Push adds an event, assigning a timestamp when it has none.
func (eq *EventQueue) Push(event Event) {
	eq.mu.Lock()
	defer eq.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if len(eq.events) >= eq.maxSize {
		eq.events = eq.events[1:]
	}

	eq.events = append(eq.events, event)

	sort.SliceStable(eq.events, func(i, j int) bool {
		return eq.events[i].Timestamp.Before(eq.events[j].Timestamp)
	})
}

// Drain removes and returns every queued event, oldest first.
func (eq *EventQueue) Drain() []Event {
	eq.mu.Lock()
	defer eq.mu.Unlock()

	if len(eq.events) == 0 {
		return nil
	}
	out := make([]Event, len(eq.events))
	copy(out, eq.events)
	eq.events = eq.events[:0]
	return out
}

// Len returns the number of events in the queue.
func (eq *EventQueue) Len() int {
	eq.mu.Lock()
	defer eq.mu.Unlock()
	return len(eq.events)
}

// Clear removes all events from the queue.
func (eq *EventQueue) Clear() {
	eq.mu.Lock()
	defer eq.mu.Unlock()
	eq.events = eq.events[:0]
}
