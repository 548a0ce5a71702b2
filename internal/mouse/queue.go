package mouse

import "sync"

// Queue is a bounded FIFO of events, safe for one driver and one consumer.
// Push never blocks; a full queue drops the new event.
type Queue struct {
	mu      sync.Mutex
	events  []Event
	head    int
	size    int
	dropped uint64
}

func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{events: make([]Event, capacity)}
}

// Push appends e and reports whether there was room.
func (q *Queue) Push(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.size == len(q.events) {
		q.dropped++
		return false
	}
	q.events[(q.head+q.size)%len(q.events)] = e
	q.size++
	return true
}

func (q *Queue) Pop() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.size == 0 {
		return Event{}, false
	}
	e := q.events[q.head]
	q.head = (q.head + 1) % len(q.events)
	q.size--
	return e, true
}

func (q *Queue) Peek() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.size == 0 {
		return Event{}, false
	}
	return q.events[q.head], true
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

func (q *Queue) Cap() int {
	return len(q.events)
}

// Dropped counts events rejected because the queue was full.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
