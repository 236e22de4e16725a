package ecdb

import (
	"sync"

	"github.com/reactivescene/recs/handle"
	"github.com/reactivescene/recs/query"
)

// Watch turns one component's live event stream into an accumulating
// query.DualQuery[handle.RawEntityHandle, V]: View() reflects the column's
// current state, Changes() reflects everything that happened since the last
// Drain. Keys are full generational handles, so deleting an entity and
// recreating its slot in the same window yields two distinct pending
// changes (a Remove under the old generation, an insert under the new)
// rather than one merged entry.
//
// Callers hold onto the *Watcher[V] they create instead of looking it up
// by type, since Go generics already give each call site a distinct
// static type.
type Watcher[V any] struct {
	mu      sync.Mutex
	view    map[handle.RawEntityHandle]V
	pending map[handle.RawEntityHandle]query.ValueChange[V]
}

// WatchComponent subscribes a new Watcher to c's event stream. The watcher
// starts empty; it only reflects writes made after subscription, a live
// stream rather than a point-in-time snapshot query.
func WatchComponent[V any](c *ComponentHandle[V]) *Watcher[V] {
	w := &Watcher[V]{
		view:    make(map[handle.RawEntityHandle]V),
		pending: make(map[handle.RawEntityHandle]query.ValueChange[V]),
	}

	col := c.column()
	col.events.On(TypedListener[V](
		nil,
		func(ent handle.RawEntityHandle, change query.ValueChange[V]) {
			w.mu.Lock()
			defer w.mu.Unlock()
			query.Integrate(w.view, ent, change)
			query.MergeInto(w.pending, ent, change)
		},
		nil,
	))

	return w
}

// Drain returns a DualQuery snapshotting the accumulated changes since the
// last Drain call, then clears the pending set — the reactive scheduler
// calls this once per frame poll per consumer of this watcher's forked node
// (see reactive.Scheduler and query.Forker).
func (w *Watcher[V]) Drain() query.DualQuery[handle.RawEntityHandle, V] {
	w.mu.Lock()
	defer w.mu.Unlock()

	view := make(map[handle.RawEntityHandle]V, len(w.view))
	for k, v := range w.view {
		view[k] = v
	}
	changes := w.pending
	w.pending = make(map[handle.RawEntityHandle]query.ValueChange[V])

	return query.NewDualQuery(view, changes)
}
