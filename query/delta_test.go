package query

import "testing"

func TestValueChangeMergeDeltaDelta(t *testing.T) {
	c := NewDelta(1, nil)
	if !c.Merge(NewDelta(2, ptr(1))) {
		t.Fatalf("delta+delta should never cancel")
	}
	if c.New != 2 || c.HasOld {
		t.Errorf("expected Delta(2, None) after insert+update, got %+v", c)
	}
}

func TestValueChangeMergeDeltaThenRemoveCancelsOnInsert(t *testing.T) {
	c := NewDelta(1, nil)
	if c.Merge(NewRemove(1)) {
		t.Fatalf("insert followed by remove in the same window should cancel")
	}
}

func TestValueChangeMergeUpdateThenRemoveBecomesRemove(t *testing.T) {
	c := NewDelta(2, ptr(1))
	if !c.Merge(NewRemove(2)) {
		t.Fatalf("update+remove should survive as a remove of the original prior value")
	}
	if c.Kind != Remove || c.Old != 1 {
		t.Errorf("expected Remove(1), got %+v", c)
	}
}

func TestValueChangeMergeRemoveThenInsertBecomesUpdate(t *testing.T) {
	c := NewRemove(1)
	if !c.Merge(NewDelta(3, nil)) {
		t.Fatalf("remove+insert should merge")
	}
	if c.Kind != Delta || c.New != 3 || !c.HasOld || c.Old != 1 {
		t.Errorf("expected Delta(3, Some(1)), got %+v", c)
	}
}

func TestValueChangeMergeDoubleRemovePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on double remove")
		}
	}()
	c := NewRemove(1)
	c.Merge(NewRemove(1))
}

func TestMergeIntoDeletesOnCancel(t *testing.T) {
	mutations := map[string]ValueChange[int]{}
	MergeInto(mutations, "a", NewDelta(1, nil))
	MergeInto(mutations, "a", NewRemove(1))
	if _, ok := mutations["a"]; ok {
		t.Errorf("insert+remove for the same key should leave no entry")
	}
}

func TestIntegrateRoundTrip(t *testing.T) {
	state := map[string]int{}
	Integrate(state, "a", NewDelta(10, nil))
	if state["a"] != 10 {
		t.Fatalf("expected insert to apply")
	}
	Integrate(state, "a", NewDelta(20, ptr(10)))
	if state["a"] != 20 {
		t.Fatalf("expected update to apply")
	}
	Integrate(state, "a", NewRemove(20))
	if _, ok := state["a"]; ok {
		t.Fatalf("expected remove to delete the key")
	}
}

func ptr[T any](v T) *T { return &v }
