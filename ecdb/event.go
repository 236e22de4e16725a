package ecdb

import (
	"sync"

	"github.com/reactivescene/recs/handle"
	"github.com/reactivescene/recs/query"
)

// ComponentValueChangeKind distinguishes the three event-protocol messages
// a component's EventSource emits per write transaction.
type ComponentValueChangeKind uint8

const (
	EventStart ComponentValueChangeKind = iota
	EventMessage
	EventEnd
)

// ComponentValueChange is one message in the Start/Message*/End sequence.
// Message carries the full generational entity handle and the ValueChange
// of whatever component type the subscriber registered for; the caller is
// expected to know the concrete V and downcast the boxed change itself.
//
// Keying messages by the full handle rather than the bare slot index keeps
// a delete-then-recreate of the same slot observable as two distinct keys:
// the Remove arrives under the old generation and the insert under the new
// one, so accumulating watchers never merge them into a single change.
type ComponentValueChange struct {
	Kind   ComponentValueChangeKind
	Entity handle.RawEntityHandle
	// Change is boxed as `any`, holding a query.ValueChange[V] for the
	// subscribed component's V. See TypedListener for a safe unwrap.
	Change any
}

// Listener observes a component's event stream. Returning true signals
// self-removal ("closed") as part of the End-stage return contract.
type Listener func(ComponentValueChange) (closed bool)

// EventSource is one component column's broadcaster. It guarantees total
// ordering per component and brackets every write transaction with
// Start/End, with no interleaving from a concurrent transaction — enforced
// here by holding a single mutex across the whole transaction rather than
// per message.
type EventSource struct {
	mu        sync.Mutex // brackets one transaction end-to-end
	listeners []Listener
}

func NewEventSource() *EventSource {
	return &EventSource{}
}

// On registers a listener and returns nothing to unregister by identity;
// listeners instead remove themselves by returning closed=true from the End
// callback (the return value of Start and Message callbacks is ignored), a
// direct callback list standing in for a closed-channel design.
func (s *EventSource) On(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// transaction runs fn, which performs zero or more writes via emit, bracketed
// by Start/End broadcast to every live listener. Closed listeners are
// dropped after the End message so compaction happens once per transaction.
func (s *EventSource) transaction(fn func(emit func(ent handle.RawEntityHandle, change any))) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.broadcast(ComponentValueChange{Kind: EventStart})

	fn(func(ent handle.RawEntityHandle, change any) {
		s.broadcast(ComponentValueChange{Kind: EventMessage, Entity: ent, Change: change})
	})

	closedAny := false
	kept := s.listeners[:0]
	for _, l := range s.listeners {
		if l(ComponentValueChange{Kind: EventEnd}) {
			closedAny = true
			continue
		}
		kept = append(kept, l)
	}
	if closedAny {
		s.listeners = kept
	}
}

func (s *EventSource) broadcast(msg ComponentValueChange) {
	for _, l := range s.listeners {
		l(msg)
	}
}

// TypedListener adapts a Listener that only cares about Start/Message/End
// for one concrete value type V, unwrapping Change's boxed
// query.ValueChange[V] for the caller.
func TypedListener[V any](
	onStart func(),
	onMessage func(ent handle.RawEntityHandle, change query.ValueChange[V]),
	onEnd func() (closed bool),
) Listener {
	return func(ev ComponentValueChange) bool {
		switch ev.Kind {
		case EventStart:
			if onStart != nil {
				onStart()
			}
			return false
		case EventMessage:
			onMessage(ev.Entity, ev.Change.(query.ValueChange[V]))
			return false
		default: // EventEnd
			if onEnd != nil {
				return onEnd()
			}
			return false
		}
	}
}

// SubscribeComponent registers a raw transaction-level listener on c's event
// stream, exposing the Start/Message/End protocol directly rather than
// through Watcher's per-frame accumulation. The serialize package's
// replay-log recorder uses this to frame one log record per transaction
// instead of per frame poll.
func SubscribeComponent[V any](
	c *ComponentHandle[V],
	onStart func(),
	onMessage func(ent handle.RawEntityHandle, change query.ValueChange[V]),
	onEnd func() (closed bool),
) {
	c.column().events.On(TypedListener(onStart, onMessage, onEnd))
}
