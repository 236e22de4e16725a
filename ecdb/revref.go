package ecdb

import (
	"sync"

	"github.com/reactivescene/recs/handle"
	"github.com/reactivescene/recs/query"
)

// RevRefIndex is the inverted index for one foreign-key column: for every
// target handle it lists every source handle currently pointing at it. It
// is maintained incrementally from the owning column's change stream
// rather than recomputed from scratch on every query, and it satisfies
// query.MultiQuery[target, source] so fanout-style combinators can consume
// it directly.
type RevRefIndex struct {
	mu  sync.RWMutex
	inv map[handle.RawEntityHandle][]handle.RawEntityHandle
}

// WatchRevRef builds and incrementally maintains a RevRefIndex for the
// foreign-key component fk. The returned index updates itself for the
// lifetime of the process (or until the caller stops observing); there is
// no explicit unsubscribe since the index outlives any one query the way a
// database-wide rev-ref table does.
//
// Deleting a source entity broadcasts a Remove under the source's
// old-generation handle, which clears its bucket entry here the same way
// an explicit foreign-key rewrite would.
func WatchRevRef(fk *ComponentHandle[handle.RawEntityHandle]) *RevRefIndex {
	idx := &RevRefIndex{inv: make(map[handle.RawEntityHandle][]handle.RawEntityHandle)}

	col := fk.column()
	col.events.On(TypedListener[handle.RawEntityHandle](
		nil,
		func(source handle.RawEntityHandle, change query.ValueChange[handle.RawEntityHandle]) {
			idx.mu.Lock()
			defer idx.mu.Unlock()

			if old, ok := change.OldValue(); ok {
				idx.remove(old, source)
			}
			if newV, ok := change.NewValue(); ok {
				idx.inv[newV] = append(idx.inv[newV], source)
			}
		},
		nil,
	))

	return idx
}

func (r *RevRefIndex) remove(target, source handle.RawEntityHandle) {
	bucket := r.inv[target]
	for i, s := range bucket {
		if s == source {
			r.inv[target] = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	if len(r.inv[target]) == 0 {
		delete(r.inv, target)
	}
}

// Sources returns every source handle currently pointing at target,
// ordered arbitrarily.
func (r *RevRefIndex) Sources(target handle.RawEntityHandle) []handle.RawEntityHandle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]handle.RawEntityHandle, len(r.inv[target]))
	copy(out, r.inv[target])
	return out
}

// AccessMulti implements query.MultiQuery.
func (r *RevRefIndex) AccessMulti(target handle.RawEntityHandle) ([]handle.RawEntityHandle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bucket, ok := r.inv[target]
	if !ok {
		return nil, false
	}
	out := make([]handle.RawEntityHandle, len(bucket))
	copy(out, bucket)
	return out, true
}

// IterKeys implements query.MultiQuery, visiting every currently referenced
// target handle.
func (r *RevRefIndex) IterKeys(yield func(handle.RawEntityHandle) bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for target := range r.inv {
		if !yield(target) {
			return
		}
	}
}
