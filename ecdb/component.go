package ecdb

import "github.com/reactivescene/recs/query"

// componentColumn is the type-erased storage behind a typed ComponentHandle.
// Values are boxed as `any`; ComponentHandle[V]'s methods are the only
// accessors and always type-assert back to V, so the erasure never leaks to
// callers. Erasure happens at the storage boundary and the type is
// recovered at the typed accessor, without requiring unsafe/byte-level
// layout, since Go's `any` already gives a safe boxed representation.
//
// makeRemove and makeChange re-box a raw stored value as a typed
// query.ValueChange so entity-level operations (delete, clone,
// create-with-default) can emit through the event stream without knowing V
// themselves.
type componentColumn struct {
	data   map[uint32]any
	events *EventSource

	makeRemove func(prev any) any
	makeChange func(newV, prev any, hasPrev bool) any

	defaultVal any
	hasDefault bool
}

func newComponentColumn[V any]() *componentColumn {
	return &componentColumn{
		data:   make(map[uint32]any),
		events: NewEventSource(),
		makeRemove: func(prev any) any {
			return query.NewRemove(prev.(V))
		},
		makeChange: func(newV, prev any, hasPrev bool) any {
			if hasPrev {
				p := prev.(V)
				return query.NewDelta(newV.(V), &p)
			}
			return query.NewDelta(newV.(V), nil)
		},
	}
}

// ComponentHandle is the typed handle returned by DeclareComponent (each
// call declares a fresh, independent column); it is the unit of read/write access used by EntityWriter
// and by watch.go's reactive watchers.
type ComponentHandle[V any] struct {
	id  ComponentID
	ecg *EntityComponentGroup
}

func (c *ComponentHandle[V]) ID() ComponentID { return c.id }

func (c *ComponentHandle[V]) column() *componentColumn {
	return c.ecg.componentByID(c.id)
}

// Snapshot returns a copy of this component's entire current column, keyed
// by slot index, for the serialize package's per-component byte dump.
func (c *ComponentHandle[V]) Snapshot() map[uint32]V {
	col := c.column()
	c.ecg.mu.RLock()
	defer c.ecg.mu.RUnlock()
	out := make(map[uint32]V, len(col.data))
	for idx, v := range col.data {
		out[idx] = v.(V)
	}
	return out
}

// ShrinkToFit rebuilds the column's backing storage at its current
// population. Storages otherwise only ever grow; this is the one explicit
// memory-reclamation request the store honors.
func (c *ComponentHandle[V]) ShrinkToFit() {
	col := c.column()
	c.ecg.mu.Lock()
	defer c.ecg.mu.Unlock()
	compacted := make(map[uint32]any, len(col.data))
	for idx, v := range col.data {
		compacted[idx] = v
	}
	col.data = compacted
}

// Restore replaces this component's entire column with data, for snapshot
// replay. It does not go through the event protocol: loading a snapshot is
// not itself a write transaction.
func (c *ComponentHandle[V]) Restore(data map[uint32]V) {
	col := c.column()
	c.ecg.mu.Lock()
	defer c.ecg.mu.Unlock()
	col.data = make(map[uint32]any, len(data))
	for idx, v := range data {
		col.data[idx] = v
	}
}
