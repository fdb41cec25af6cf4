package engine

import (
	"sync"

	"github.com/hmcts/cpp-context-progression-sub010/internal/event"
)

// Event is an envelope stamped with its arrival seq.
type Event struct {
	Envelope event.Envelope
	Seq      int64
}

// eventQueue is an unbounded FIFO of events feeding one lane. Enqueue may
// be called from any goroutine; the lane dequeues.
//
// signal (buffered, size 1) lets the lane wait on the queue and ctx.Done()
// in one select. Dequeued slots are reclaimed once the consumed prefix
// outgrows the pending tail.
type eventQueue struct {
	mu     sync.Mutex
	events []Event
	head   int
	closed bool
	signal chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]Event, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue appends e. It reports false once the queue is closed.
func (q *eventQueue) Enqueue(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.events = append(q.events, e)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front event without blocking.
func (q *eventQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.head == len(q.events) {
		return Event{}, false
	}

	e := q.events[q.head]
	q.events[q.head] = Event{}
	q.head++

	switch {
	case q.head == len(q.events):
		q.events = q.events[:0]
		q.head = 0
	case q.head > len(q.events)/2:
		n := copy(q.events, q.events[q.head:])
		clear(q.events[n:])
		q.events = q.events[:n]
		q.head = 0
	}
	return e, true
}

// Wait returns a channel that fires when events may be available. It is
// closed by Close.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of pending events.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events) - q.head
}

// Drained reports whether the queue is closed and empty.
func (q *eventQueue) Drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && q.head == len(q.events)
}

// Close stops further enqueues and wakes the waiting lane. Events already
// queued are still delivered.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.signal)
	}
}
