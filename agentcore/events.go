package agentcore

import (
	"encoding/json"
	"sync"
	"time"
)

// EventKind identifies the type of session event.
type EventKind string

const (
	EventTextDelta        EventKind = "text_delta"
	EventToolStarted      EventKind = "tool_started"
	EventApprovalRequired EventKind = "approval_required"
	EventToolResult       EventKind = "tool_result"
	EventError            EventKind = "error"
	EventDone             EventKind = "done"

	// EventChannelOverflow marks that older events were dropped because
	// the session's consumer fell behind.
	EventChannelOverflow EventKind = "channel_overflow"
)

// Event is one unit of progress streamed to a session's consumer. Fields
// beyond Kind/Timestamp/SessionID are populated per kind.
type Event struct {
	Kind      EventKind `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id"`

	// text_delta
	Text string `json:"text,omitempty"`

	// tool_started / approval_required / tool_result
	CallID    string          `json:"call_id,omitempty"`
	ToolName  string          `json:"tool_name,omitempty"`
	Arguments json.RawMessage `json:"arguments,omitempty"`

	// approval_required
	Deadline time.Time `json:"deadline,omitempty"`

	// tool_result
	Result  string `json:"result,omitempty"`
	IsError bool   `json:"is_error,omitempty"`

	// error
	ErrorKind ErrorKind `json:"error_kind,omitempty"`
	Message   string    `json:"message,omitempty"`
}

// critical events are never dropped by the overflow policy.
func (e Event) critical() bool {
	switch e.Kind {
	case EventApprovalRequired, EventDone, EventChannelOverflow:
		return true
	}
	return false
}

// EventEmitter delivers ordered events for one session to the host
// application. The internal queue is bounded; when a slow consumer lets
// it fill, the oldest droppable event is discarded and a single overflow
// marker is queued for the burst. approval_required and done are never
// dropped, and Emit never blocks the producing loop.
type EventEmitter struct {
	sessionID string
	max       int

	mu         sync.Mutex
	queue      []Event
	overflowed bool
	closed     bool

	wake    chan struct{}
	closing chan struct{}
	out     chan Event
}

// NewEventEmitter creates an emitter with the given queue bound.
func NewEventEmitter(sessionID string, bufferSize int) *EventEmitter {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	e := &EventEmitter{
		sessionID: sessionID,
		max:       bufferSize,
		wake:      make(chan struct{}, 1),
		closing:   make(chan struct{}),
		out:       make(chan Event),
	}
	go e.pump()
	return e
}

// Emit queues an event. If the emitter is closed the event is silently
// dropped; the session is gone and nobody is listening.
func (e *EventEmitter) Emit(ev Event) {
	ev.Timestamp = time.Now()
	ev.SessionID = e.sessionID

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}

	if len(e.queue) >= e.max {
		if i := e.firstDroppable(); i >= 0 {
			e.queue = append(e.queue[:i], e.queue[i+1:]...)
			e.markOverflowLocked()
		} else if !ev.critical() {
			// Queue is all critical events; shed the newcomer instead.
			e.markOverflowLocked()
			e.mu.Unlock()
			return
		}
		// A critical newcomer may exceed the bound; it must not be lost.
	}

	e.queue = append(e.queue, ev)
	e.mu.Unlock()
	e.notify()
}

// firstDroppable returns the index of the oldest droppable queued event,
// or -1 if every queued event is critical.
func (e *EventEmitter) firstDroppable() int {
	for i, ev := range e.queue {
		if !ev.critical() {
			return i
		}
	}
	return -1
}

// markOverflowLocked queues one overflow marker per burst.
func (e *EventEmitter) markOverflowLocked() {
	if e.overflowed {
		return
	}
	e.overflowed = true
	e.queue = append(e.queue, Event{
		Kind:      EventChannelOverflow,
		Timestamp: time.Now(),
		SessionID: e.sessionID,
		ErrorKind: ErrKindChannelOverflow,
		Message:   "event consumer fell behind; older events were dropped",
	})
}

func (e *EventEmitter) notify() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// pump forwards queued events to the output channel in order.
func (e *EventEmitter) pump() {
	for {
		e.mu.Lock()
		if len(e.queue) == 0 {
			if e.closed {
				e.mu.Unlock()
				close(e.out)
				return
			}
			e.mu.Unlock()
			select {
			case <-e.wake:
			case <-e.closing:
			}
			continue
		}
		ev := e.queue[0]
		e.queue = e.queue[1:]
		if len(e.queue) == 0 {
			e.overflowed = false
		}
		e.mu.Unlock()

		select {
		case e.out <- ev:
		case <-e.closing:
			// Consumer is gone; discard the remainder.
			close(e.out)
			return
		}
	}
}

// Events returns the read-only, ordered event channel.
func (e *EventEmitter) Events() <-chan Event {
	return e.out
}

// Close tears the emitter down. Queued events are discarded and the
// output channel is closed. Safe to call multiple times.
func (e *EventEmitter) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.queue = nil
	e.mu.Unlock()
	close(e.closing)
}
