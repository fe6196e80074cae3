package vm

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func genEventType() gopter.Gen {
	return gen.OneConstOf(EventClick, EventRightClick, EventKey, EventMove)
}

// イベントキューの時系列順序保証
func TestProperty_EventQueueChronologicalOrder(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("events are drained in chronological order", prop.ForAll(
		func(eventCount int, eventType EventType) bool {
			queue := NewEventQueue()
			baseTime := time.Now()

			for i := 0; i < eventCount; i++ {
				offset := time.Duration((i*7)%eventCount) * time.Millisecond
				queue.Push(Event{Type: eventType, X: i, Timestamp: baseTime.Add(offset)})
			}

			events := queue.Drain()
			if len(events) != eventCount {
				return false
			}
			for i := 1; i < len(events); i++ {
				if events[i].Timestamp.Before(events[i-1].Timestamp) {
					return false
				}
			}
			return queue.Len() == 0
		},
		gen.IntRange(1, 50),
		genEventType(),
	))

	properties.Property("events with same timestamp keep insertion order", prop.ForAll(
		func(eventCount int) bool {
			queue := NewEventQueue()
			sameTime := time.Now()
			for i := 0; i < eventCount; i++ {
				queue.Push(Event{Type: EventClick, X: i, Timestamp: sameTime})
			}
			for i, e := range queue.Drain() {
				if e.X != i {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 20),
	))

	properties.Property("full queue discards the oldest events", prop.ForAll(
		func(size, extra int) bool {
			queue := NewEventQueueWithSize(size)
			base := time.Now()
			for i := 0; i < size+extra; i++ {
				queue.Push(Event{Type: EventClick, X: i, Timestamp: base.Add(time.Duration(i))})
			}
			events := queue.Drain()
			return len(events) == size && events[0].X == extra
		},
		gen.IntRange(1, 30),
		gen.IntRange(0, 30),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestEventQueue_AssignsTimestamp(t *testing.T) {
	queue := NewEventQueue()
	before := time.Now()
	queue.Push(Event{Type: EventClick})
	events := queue.Drain()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Timestamp.Before(before) {
		t.Error("timestamp was not assigned")
	}
	if queue.Drain() != nil {
		t.Error("second Drain should be empty")
	}
}
