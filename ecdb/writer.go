package ecdb

import (
	"github.com/reactivescene/recs/handle"
	"github.com/reactivescene/recs/query"
)

// EntityWriter holds exclusive write access to every column of one ECG for
// the duration of its use. Obtain one via EntityComponentGroup.Writer
// (single-call writes, one transaction per Write) or via WithWriter (many
// writes folded into one Start/Message.../End transaction per touched
// component).
type EntityWriter[E any] struct {
	ecg *EntityComponentGroup
	txn *batch // non-nil only inside WithWriter
}

// batch accumulates pending emits per component column for the duration of
// one WithWriter call, so every touched column broadcasts exactly one
// Start/End envelope around all of that call's writes to it.
type batch struct {
	pending map[*componentColumn][]func(emit func(ent handle.RawEntityHandle, change any))
	order   []*componentColumn
}

// Writer acquires a single-transaction-per-write EntityWriter for e. Only
// one writer should be open on an ECG at a time; the type system does not
// enforce this (Go has no borrow checker) so callers serialize writer use
// themselves, e.g. one writer per frame tick under the database's exclusive
// lock.
func (e *EntityComponentGroup) Writer() *EntityWriter[struct{}] {
	return &EntityWriter[struct{}]{ecg: e}
}

// TypedWriter is sugar for callers that want the entity-kind phantom brand
// carried through NewEntity's return type.
func TypedWriter[E any](e *EntityComponentGroup) *EntityWriter[E] {
	return &EntityWriter[E]{ecg: e}
}

// emitOrQueue routes one column emission either directly through the
// column's event source (its own Start/End bracket) or into the enclosing
// WithWriter batch.
func (w *EntityWriter[E]) emitOrQueue(col *componentColumn, fn func(emit func(ent handle.RawEntityHandle, change any))) {
	if w.txn != nil {
		if _, ok := w.txn.pending[col]; !ok {
			w.txn.order = append(w.txn.order, col)
		}
		w.txn.pending[col] = append(w.txn.pending[col], fn)
		return
	}
	col.events.transaction(fn)
}

// NewEntity allocates a fresh slot in the underlying arena. Columns
// declared with a default (DeclareComponentWithDefault) are populated
// immediately, each broadcasting a Delta(default, nil) under the new
// handle.
func (w *EntityWriter[E]) NewEntity() handle.EntityHandle[E] {
	raw := w.ecg.arena.Allocate()

	w.ecg.mu.RLock()
	cols := make([]*componentColumn, 0, len(w.ecg.components))
	for _, col := range w.ecg.components {
		if col.hasDefault {
			cols = append(cols, col)
		}
	}
	w.ecg.mu.RUnlock()

	for _, col := range cols {
		col.data[raw.Index] = col.defaultVal
		change := col.makeChange(col.defaultVal, nil, false)
		w.emitOrQueue(col, func(emit func(ent handle.RawEntityHandle, change any)) {
			emit(raw, change)
		})
	}

	return handle.Retype[E](raw)
}

// DeleteEntity frees idx's slot, broadcasting a Remove(prev) for every
// component value the entity held — keyed by the old-generation handle, so
// a later reuse of the same slot shows up as a distinct key. An owning
// foreign key declared against this group then cascades the delete into
// every entity still pointing here; all other referential integrity across
// foreign-key columns remains the caller's job.
func (w *EntityWriter[E]) DeleteEntity(idx handle.EntityHandle[E]) {
	raw := idx.Raw
	if !w.ecg.arena.IsLive(raw) {
		return
	}

	w.ecg.mu.RLock()
	cols := make([]*componentColumn, 0, len(w.ecg.components))
	for _, col := range w.ecg.components {
		cols = append(cols, col)
	}
	w.ecg.mu.RUnlock()

	for _, col := range cols {
		prev, had := col.data[raw.Index]
		if !had {
			continue
		}
		delete(col.data, raw.Index)
		change := col.makeRemove(prev)
		w.emitOrQueue(col, func(emit func(ent handle.RawEntityHandle, change any)) {
			emit(raw, change)
		})
	}

	w.ecg.arena.Free(raw)

	for _, fk := range w.ecg.db.owningFKsTargeting(w.ecg.kind) {
		col := fk.source.componentByID(fk.colID)
		var owned []handle.RawEntityHandle
		for srcIdx, v := range col.data {
			if v.(handle.RawEntityHandle) == raw {
				if src, ok := fk.source.arena.HandleFor(srcIdx); ok {
					owned = append(owned, src)
				}
			}
		}
		sw := fk.source.Writer()
		for _, src := range owned {
			sw.DeleteEntity(handle.Retype[struct{}](src))
		}
	}
}

// CloneEntity shallow-copies every component value of src into a freshly
// allocated slot, broadcasting the copies the same way explicit writes
// would.
func (w *EntityWriter[E]) CloneEntity(src handle.EntityHandle[E]) handle.EntityHandle[E] {
	dst := w.NewEntity()

	w.ecg.mu.RLock()
	cols := make([]*componentColumn, 0, len(w.ecg.components))
	for _, col := range w.ecg.components {
		cols = append(cols, col)
	}
	w.ecg.mu.RUnlock()

	for _, col := range cols {
		v, ok := col.data[src.Raw.Index]
		if !ok {
			continue
		}
		prev, had := col.data[dst.Raw.Index]
		col.data[dst.Raw.Index] = v
		change := col.makeChange(v, prev, had)
		raw := dst.Raw
		w.emitOrQueue(col, func(emit func(ent handle.RawEntityHandle, change any)) {
			emit(raw, change)
		})
	}
	return dst
}

// Write stores value for component c at idx. Writing through a stale handle
// is a silent no-op.
func Write[E, V any](w *EntityWriter[E], c *ComponentHandle[V], idx handle.EntityHandle[E], value V) {
	if !w.ecg.arena.IsLive(idx.Raw) {
		return
	}
	col := c.column()
	prevAny, had := col.data[idx.Raw.Index]
	var change query.ValueChange[V]
	if had {
		change = query.NewDelta(value, ptrOf(prevAny.(V)))
	} else {
		change = query.NewDelta[V](value, nil)
	}
	col.data[idx.Raw.Index] = value

	raw := idx.Raw
	w.emitOrQueue(col, func(emit func(ent handle.RawEntityHandle, change any)) {
		emit(raw, change)
	})
}

// Read returns component c's value at idx, or the zero value and false if
// idx is stale or the slot was never written.
func Read[E, V any](w *EntityWriter[E], c *ComponentHandle[V], idx handle.EntityHandle[E]) (V, bool) {
	var zero V
	if !w.ecg.arena.IsLive(idx.Raw) {
		return zero, false
	}
	col := c.column()
	v, ok := col.data[idx.Raw.Index]
	if !ok {
		return zero, false
	}
	return v.(V), true
}

// WithWriter brackets every Write made inside fn as a single transaction per
// touched component's event source, so subscribers see one Start...End
// envelope for the whole batch instead of one per call: a write transaction
// brackets all mutations performed through a single writer use.
func WithWriter[E any](ecg *EntityComponentGroup, fn func(w *EntityWriter[E])) {
	w := &EntityWriter[E]{ecg: ecg, txn: &batch{pending: map[*componentColumn][]func(emit func(ent handle.RawEntityHandle, change any)){}}}

	fn(w)

	for _, col := range w.txn.order {
		emits := w.txn.pending[col]
		col.events.transaction(func(emit func(ent handle.RawEntityHandle, change any)) {
			for _, e := range emits {
				e(emit)
			}
		})
	}
}

func ptrOf[V any](v V) *V { return &v }
