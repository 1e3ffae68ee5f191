package engine

// raisedEvent is an event queued by an action during a transition.
type raisedEvent struct {
	Event   string
	Payload any
	From    string // state whose transition raised it
}

// eventQueue is a FIFO of raised events.
//
// It is only touched while the engine mutex is held, so it needs no locking
// of its own. Raised events are never processed inside the transition that
// raised them; the engine drains the queue once the transition has notified
// its listeners.
type eventQueue struct {
	events []raisedEvent
}

func newEventQueue() *eventQueue {
	return &eventQueue{events: make([]raisedEvent, 0, 8)}
}

// Enqueue adds an event to the back of the queue.
func (q *eventQueue) Enqueue(e raisedEvent) {
	q.events = append(q.events, e)
}

// TryDequeue removes and returns the front event.
// Returns (raisedEvent{}, false) if the queue is empty.
func (q *eventQueue) TryDequeue() (raisedEvent, bool) {
	if len(q.events) == 0 {
		return raisedEvent{}, false
	}
	e := q.events[0]
	q.events[0] = raisedEvent{}
	q.events = q.events[1:]
	return e, true
}

// Len returns the number of queued events.
func (q *eventQueue) Len() int {
	return len(q.events)
}

// Clear drops every queued event and returns how many were dropped.
func (q *eventQueue) Clear() int {
	n := len(q.events)
	q.events = q.events[:0]
	return n
}
