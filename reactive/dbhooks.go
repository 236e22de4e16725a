package reactive

import (
	"context"

	"github.com/reactivescene/recs/ecdb"
	"github.com/reactivescene/recs/handle"
	"github.com/reactivescene/recs/query"
)

// The hooks in this file bridge a consumer's hook body to the column store:
// each one owns a per-call-site subscription (watcher, rev-ref index,
// spawned future) held in the consumer's FunctionMemory, drained once per
// frame during the spawn stage and replayed to the resolve stage from the
// same cell.

type dualQueryCell[V any] struct {
	watcher *ecdb.Watcher[V]
	current query.DualQuery[handle.RawEntityHandle, V]
}

// UseDualQuery subscribes (once, on first visit) a watcher to component c
// and returns the frame's DualQuery: drained fresh during the spawn stage,
// replayed unchanged during resolve so both stages of one frame observe the
// same poll.
func UseDualQuery[V any](cx *HookCx, c *ecdb.ComponentHandle[V]) UseResult[query.DualQuery[handle.RawEntityHandle, V]] {
	cell := Slot(cx.Memory(), func() *dualQueryCell[V] {
		return &dualQueryCell[V]{watcher: ecdb.WatchComponent(c)}
	}, nil)
	st := *cell

	if cx.Stage() == SpawnStage {
		st.current = st.watcher.Drain()
		return SpawnStageReady(st.current)
	}
	return ResolveStageReady(st.current)
}

// UseQueryChange is UseDualQuery narrowed to the change stream, for
// consumers that only react to deltas and never read the materialized view.
func UseQueryChange[V any](cx *HookCx, c *ecdb.ComponentHandle[V]) UseResult[query.Query[handle.RawEntityHandle, query.ValueChange[V]]] {
	return MapUseResult(UseDualQuery(cx, c), func(dq query.DualQuery[handle.RawEntityHandle, V]) query.Query[handle.RawEntityHandle, query.ValueChange[V]] {
		return dq.Changes()
	})
}

type querySetCell struct {
	prev    map[handle.RawEntityHandle]struct{}
	current query.DualQuery[handle.RawEntityHandle, struct{}]
}

// UseQuerySet tracks the set of live entities of one group as a DualQuery
// keyed by handle with unit values: an entity allocated since the last
// frame appears as an insert, a freed one as a Remove. The set is diffed
// against the previous frame's scan rather than event-driven, since entity
// allocation itself has no component column to subscribe to.
func UseQuerySet(cx *HookCx, ecg *ecdb.EntityComponentGroup) UseResult[query.DualQuery[handle.RawEntityHandle, struct{}]] {
	cell := Slot(cx.Memory(), func() *querySetCell {
		return &querySetCell{prev: make(map[handle.RawEntityHandle]struct{})}
	}, nil)
	st := *cell

	if cx.Stage() == SpawnStage {
		arena := ecg.Arena()
		live := make(map[handle.RawEntityHandle]struct{})
		view := make(map[handle.RawEntityHandle]struct{})
		changes := make(map[handle.RawEntityHandle]query.ValueChange[struct{}])
		capacity := arena.Capacity()
		for i := int64(0); i < capacity; i++ {
			h, ok := arena.HandleFor(uint32(i))
			if !ok {
				continue
			}
			live[h] = struct{}{}
			view[h] = struct{}{}
			if _, had := st.prev[h]; !had {
				changes[h] = query.NewDelta(struct{}{}, nil)
			}
		}
		for h := range st.prev {
			if _, still := live[h]; !still {
				changes[h] = query.NewRemove(struct{}{})
			}
		}
		st.prev = live
		st.current = query.NewDualQuery(view, changes)
		return SpawnStageReady(st.current)
	}
	return ResolveStageReady(st.current)
}

// UseDBRevRef installs (once) an incrementally maintained inverse index
// over a foreign-key component and exposes it as a MultiQuery from target
// handle to the sources pointing at it.
func UseDBRevRef(cx *HookCx, fk *ecdb.ComponentHandle[handle.RawEntityHandle]) UseResult[query.MultiQuery[handle.RawEntityHandle, handle.RawEntityHandle]] {
	idx := Slot(cx.Memory(), func() *ecdb.RevRefIndex {
		return ecdb.WatchRevRef(fk)
	}, nil)

	var q query.MultiQuery[handle.RawEntityHandle, handle.RawEntityHandle] = *idx
	if cx.Stage() == SpawnStage {
		return SpawnStageReady(q)
	}
	return ResolveStageReady(q)
}

type assureOutcome[T any] struct {
	value T
	err   error
}

type assureCell[T any] struct {
	ch     chan assureOutcome[T]
	cancel context.CancelFunc
	value  T
	err    error
	done   bool
}

// UseAssureResult guarantees that a spawn-stage future's value is concrete
// by the time the resolve stage runs this call site: a future handed in
// during spawn starts executing immediately on its own goroutine, and the
// resolve-stage call blocks until that single execution settles. Ready
// results pass through untouched. The resolve-stage error return carries
// the future's failure, if any; dropping the consumer cancels an
// in-flight future via the cell's destructor.
func UseAssureResult[T any](cx *HookCx, r UseResult[T]) (UseResult[T], error) {
	cell := Slot(cx.Memory(), func() *assureCell[T] {
		return &assureCell[T]{}
	}, func(c *assureCell[T]) {
		if c.cancel != nil {
			c.cancel()
		}
	})
	st := *cell

	if cx.Stage() == SpawnStage {
		st.done = false
		st.err = nil
		if fut, ok := r.IfSpawnStageFuture(); ok {
			ctx, cancel := context.WithCancel(context.Background())
			st.cancel = cancel
			st.ch = make(chan assureOutcome[T], 1)
			ch := st.ch
			go func() {
				v, err := fut(ctx)
				ch <- assureOutcome[T]{value: v, err: err}
			}()
			return r, nil
		}
		if v, ok := r.IfReady(); ok {
			st.value = v
			st.done = true
		}
		return r, nil
	}

	if !st.done {
		if st.ch != nil {
			out := <-st.ch
			st.value, st.err = out.value, out.err
			st.ch = nil
			if st.cancel != nil {
				st.cancel()
				st.cancel = nil
			}
		}
		st.done = true
	}
	if st.err != nil {
		return NotInStage[T](), st.err
	}
	return ResolveStageReady(st.value), nil
}
