// Package handle implements generational slot allocation for entity identity.
//
// An Arena hands out RawEntityHandles, each a (slot index, generation) pair.
// Freeing a slot bumps its generation and pushes it onto a freelist instead
// of shrinking storage, so a handle captured before a free always fails a
// liveness check afterward rather than silently aliasing a new entity.
package handle

import (
	"fmt"
	"sync"
)

// segmentSize bounds the size of a single growth step of the arena's slot
// table, mirroring the fixed-size-segment layout of an arena allocator:
// slots are never moved once assigned, only recycled in place.
const segmentSize = 4096

// RawEntityHandle identifies a slot in an Arena without any notion of which
// entity kind it belongs to. It is Comparable and suitable as a map key.
type RawEntityHandle struct {
	Index      uint32
	Generation uint32
}

func (h RawEntityHandle) String() string {
	return fmt.Sprintf("%d#%d", h.Index, h.Generation)
}

// IsValid reports whether h could possibly refer to a live slot; it does not
// consult any Arena. A zero-value handle is never valid.
func (h RawEntityHandle) IsValid() bool {
	return h.Generation != 0
}

type slot struct {
	generation uint32
	alive      bool
}

// Arena is a generational allocator of RawEntityHandles. The zero value is
// not ready for use; call New.
type Arena struct {
	mu        sync.RWMutex
	segments  [][]slot
	freeHead  int64 // index into the flattened slot space, -1 when empty
	nextFree  []int64
	liveCount int64
}

// New creates an empty Arena.
func New() *Arena {
	return &Arena{freeHead: -1}
}

func (a *Arena) grow() {
	seg := make([]slot, segmentSize)
	a.segments = append(a.segments, seg)
	extra := make([]int64, segmentSize)
	for i := range extra {
		extra[i] = -1
	}
	a.nextFree = append(a.nextFree, extra...)
}

func (a *Arena) slotAt(idx int64) *slot {
	seg := idx / segmentSize
	off := idx % segmentSize
	return &a.segments[seg][off]
}

// Allocate reserves a new slot and returns its handle. The returned
// generation is always >= 1; generation 0 is reserved for the invalid
// (zero-value) handle.
func (a *Arena) Allocate() RawEntityHandle {
	a.mu.Lock()
	defer a.mu.Unlock()

	var idx int64
	if a.freeHead >= 0 {
		idx = a.freeHead
		a.freeHead = a.nextFree[idx]
	} else {
		idx = int64(len(a.nextFree))
		if idx%segmentSize == 0 {
			a.grow()
		} else {
			a.nextFree = append(a.nextFree, -1)
		}
	}

	s := a.slotAt(idx)
	if s.generation == 0 {
		s.generation = 1
	}
	s.alive = true
	a.liveCount++

	return RawEntityHandle{Index: uint32(idx), Generation: s.generation}
}

// Free releases h's slot, bumping its generation so any previously issued
// copy of h becomes stale. Freeing an already-stale or unknown handle is a
// no-op; this mirrors the store's stance that deletion is idempotent at the
// handle layer (referential integrity is the caller's job, see ecdb).
func (a *Arena) Free(h RawEntityHandle) {
	a.mu.Lock()
	defer a.mu.Unlock()

	idx := int64(h.Index)
	if idx >= int64(len(a.nextFree)) {
		return
	}
	s := a.slotAt(idx)
	if !s.alive || s.generation != h.Generation {
		return
	}
	s.alive = false
	s.generation++
	a.liveCount--
	a.nextFree[idx] = a.freeHead
	a.freeHead = idx
}

// IsLive reports whether h still refers to the slot it was allocated for.
func (a *Arena) IsLive(h RawEntityHandle) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	idx := int64(h.Index)
	if idx >= int64(len(a.nextFree)) {
		return false
	}
	s := a.slotAt(idx)
	return s.alive && s.generation == h.Generation
}

// LiveCount returns the number of currently allocated (non-freed) slots.
func (a *Arena) LiveCount() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.liveCount
}

// Capacity returns the number of slots ever allocated in the backing
// segments, live or freed.
func (a *Arena) Capacity() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return int64(len(a.nextFree))
}

// HandleFor reconstructs the full handle for a live slot index, for callers
// that only have an index (e.g. a component column keyed by uint32) and
// need to recover a comparable, generation-checked RawEntityHandle. Returns
// false if the slot is not currently live.
func (a *Arena) HandleFor(index uint32) (RawEntityHandle, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	idx := int64(index)
	if idx >= int64(len(a.nextFree)) {
		return RawEntityHandle{}, false
	}
	s := a.slotAt(idx)
	if !s.alive {
		return RawEntityHandle{}, false
	}
	return RawEntityHandle{Index: index, Generation: s.generation}, true
}
