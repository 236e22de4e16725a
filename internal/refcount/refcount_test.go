package refcount

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/reactivescene/recs/handle"
	"github.com/reactivescene/recs/query"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestRefCounterIncrementsOnInsert(t *testing.T) {
	rc := NewRefCounter(testLogger())
	target := handle.RawEntityHandle{Index: 1, Generation: 0}

	rc.Apply(query.NewDelta(target, nil))

	if got := rc.Count(target); got != 1 {
		t.Fatalf("expected count 1, got %d", got)
	}
}

func TestRefCounterDecrementsOnRetarget(t *testing.T) {
	rc := NewRefCounter(testLogger())
	a := handle.RawEntityHandle{Index: 1, Generation: 0}
	b := handle.RawEntityHandle{Index: 2, Generation: 0}

	rc.Apply(query.NewDelta(a, nil))
	rc.Apply(query.NewDelta(b, &a)) // source switched from pointing at a to pointing at b

	if got := rc.Count(a); got != 0 {
		t.Errorf("expected a's count to drop to 0, got %d", got)
	}
	if got := rc.Count(b); got != 1 {
		t.Errorf("expected b's count to be 1, got %d", got)
	}
}

func TestRefCounterHandlesSharedTarget(t *testing.T) {
	rc := NewRefCounter(testLogger())
	target := handle.RawEntityHandle{Index: 5, Generation: 0}

	rc.Apply(query.NewDelta(target, nil))
	rc.Apply(query.NewDelta(target, nil)) // a second, independent source also points at target

	if got := rc.Count(target); got != 2 {
		t.Fatalf("expected count 2 for a doubly-referenced target, got %d", got)
	}

	rc.Apply(query.NewRemove(target))
	if got := rc.Count(target); got != 1 {
		t.Errorf("expected count 1 after one reference removed, got %d", got)
	}
}

func TestRefCounterDecrementBelowZeroLogsInsteadOfPanicking(t *testing.T) {
	rc := NewRefCounter(testLogger())
	target := handle.RawEntityHandle{Index: 9, Generation: 0}

	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("refcount anomalies must never panic the caller, got: %v", r)
		}
	}()
	rc.Apply(query.NewRemove(target))

	if got := rc.Count(target); got != 0 {
		t.Errorf("expected count to remain 0, got %d", got)
	}
}

func TestRefCounterOrphansReportsZeroReferenceLiveHandles(t *testing.T) {
	rc := NewRefCounter(testLogger())
	referenced := handle.RawEntityHandle{Index: 1, Generation: 0}
	orphan := handle.RawEntityHandle{Index: 2, Generation: 0}

	rc.Apply(query.NewDelta(referenced, nil))

	live := []handle.RawEntityHandle{referenced, orphan}
	orphans := rc.Orphans(live, func(handle.RawEntityHandle) bool { return true })

	if len(orphans) != 1 || orphans[0] != orphan {
		t.Fatalf("expected exactly [%v] to be reported as orphaned, got %v", orphan, orphans)
	}
}

func TestTrackerForTargetReturnsSameCounterPerKind(t *testing.T) {
	tr := NewTracker(testLogger())
	kind := handle.EntityKind(1)

	a := tr.ForTarget(kind)
	b := tr.ForTarget(kind)

	if a != b {
		t.Errorf("expected ForTarget to return the same RefCounter for a repeated kind")
	}
}
