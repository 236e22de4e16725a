package ecdb

import "testing"

func TestWatcherAccumulatesAndDrains(t *testing.T) {
	db := NewDatabase()
	ecg := db.DeclareEntity("node")
	position := DeclareComponent[float64](ecg)
	watcher := WatchComponent(position)

	w := TypedWriter[nodeEntity](ecg)
	e := w.NewEntity()
	Write(w, position, e, 1.0)

	dq := watcher.Drain()
	if v, ok := dq.View().Access(e.Raw); !ok || v != 1.0 {
		t.Fatalf("expected view to show 1.0, got %v ok=%v", v, ok)
	}
	if _, ok := dq.Changes().Access(e.Raw); !ok {
		t.Fatalf("expected a pending change for the written slot")
	}

	// second drain with no intervening writes should show no changes, but
	// the view must still reflect current state.
	dq2 := watcher.Drain()
	if dq2.Changes().Contains(e.Raw) {
		t.Errorf("expected no pending changes on an idempotent poll")
	}
	if v, ok := dq2.View().Access(e.Raw); !ok || v != 1.0 {
		t.Errorf("expected view to remain consistent across drains, got %v ok=%v", v, ok)
	}
}
