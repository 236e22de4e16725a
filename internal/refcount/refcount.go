// Package refcount maintains advisory reference counts over entity handles,
// derived from foreign-key change streams. It never blocks or cascades a
// delete itself: ecdb.EntityWriter.DeleteEntity and the DeclareForeignKey
// Owning() option are the only things that actually tie deletion to
// ownership. This package only answers "who points at this entity, and how
// many times" for diagnostics and debugging.
//
// A single RefCounter updates synchronously off one foreign-key watcher; a
// Tracker fans that out across many foreign keys without needing the
// scheduler's spawn stage at all, since the accumulation itself is cheap
// pure bookkeeping.
package refcount

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/reactivescene/recs/ecdb"
	"github.com/reactivescene/recs/handle"
	"github.com/reactivescene/recs/query"
)

// RefCounter tracks how many live foreign keys currently point at each
// target handle.
type RefCounter struct {
	mu     sync.Mutex
	counts map[handle.RawEntityHandle]uint32
	logger zerolog.Logger
}

func NewRefCounter(logger zerolog.Logger) *RefCounter {
	return &RefCounter{counts: make(map[handle.RawEntityHandle]uint32), logger: logger}
}

// Apply folds one foreign-key ValueChange into the counts: decrement the
// old target (if any), increment the new target (if any), inserting a
// fresh count of 1 on first reference.
//
// A decrement that would take a count below zero is a bookkeeping bug
// somewhere upstream (a target was unreferenced twice); since this
// subsystem is advisory-only it logs the anomaly rather than panicking the
// caller.
func (r *RefCounter) Apply(change query.ValueChange[handle.RawEntityHandle]) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := change.OldValue(); ok {
		if r.counts[old] == 0 {
			r.logger.Warn().
				Uint32("target_index", old.Index).
				Uint32("target_generation", old.Generation).
				Msg("refcount: decrementing a target with zero references")
		} else {
			r.counts[old]--
			if r.counts[old] == 0 {
				delete(r.counts, old)
			}
		}
	}
	if newV, ok := change.NewValue(); ok {
		r.counts[newV]++
	}
}

// ApplyAll folds an entire frame's worth of foreign-key changes, keyed by
// source entity handle (as produced by ecdb.Watcher[handle.RawEntityHandle]).
func (r *RefCounter) ApplyAll(changes map[handle.RawEntityHandle]query.ValueChange[handle.RawEntityHandle]) {
	for _, change := range changes {
		r.Apply(change)
	}
}

// Count returns the current reference count for target.
func (r *RefCounter) Count(target handle.RawEntityHandle) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[target]
}

// Orphans reports every live handle (per isLive) that currently has zero
// references according to this counter — candidates for "probably should
// have been deleted" diagnostics, never acted on automatically.
func (r *RefCounter) Orphans(live []handle.RawEntityHandle, isLive func(handle.RawEntityHandle) bool) []handle.RawEntityHandle {
	r.mu.Lock()
	defer r.mu.Unlock()

	var orphans []handle.RawEntityHandle
	for _, h := range live {
		if !isLive(h) {
			continue
		}
		if r.counts[h] == 0 {
			orphans = append(orphans, h)
		}
	}
	return orphans
}

// Tracker fans a RefCounter per target entity kind out across however many
// foreign-key components reference that kind, one ecdb.Watcher per
// foreign key.
type Tracker struct {
	mu       sync.Mutex
	counters map[handle.EntityKind]*RefCounter
	logger   zerolog.Logger
}

func NewTracker(logger zerolog.Logger) *Tracker {
	return &Tracker{counters: make(map[handle.EntityKind]*RefCounter), logger: logger}
}

// ForTarget returns (creating if necessary) the RefCounter accumulating
// references toward entities of the given kind.
func (t *Tracker) ForTarget(kind handle.EntityKind) *RefCounter {
	t.mu.Lock()
	defer t.mu.Unlock()
	rc, ok := t.counters[kind]
	if !ok {
		rc = NewRefCounter(t.logger)
		t.counters[kind] = rc
	}
	return rc
}

// WatchForeignKey subscribes a RefCounter for targetKind to fk's live event
// stream, returning a function the caller invokes once per frame (after the
// scheduler's resolve stage, typically) to drain the watcher and fold its
// changes into the counter.
func WatchForeignKey(t *Tracker, targetKind handle.EntityKind, fk *ecdb.ComponentHandle[handle.RawEntityHandle]) func() {
	watcher := ecdb.WatchComponent[handle.RawEntityHandle](fk)
	rc := t.ForTarget(targetKind)
	return func() {
		rc.ApplyAll(watcher.Drain().Changes().Materialize())
	}
}
