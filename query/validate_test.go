package query

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestValidatorAcceptsSoundSequence(t *testing.T) {
	v := NewValidator[string, int]("t")
	v.Validate(map[string]ValueChange[int]{"a": NewDelta(1, nil)})
	v.Validate(map[string]ValueChange[int]{"a": NewDelta(2, ptr(1))})
	v.Validate(map[string]ValueChange[int]{"a": NewRemove(2)})

	if len(v.Snapshot()) != 0 {
		t.Errorf("expected empty shadow state after removal")
	}
}

func TestValidatorRejectsBadPriorValue(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on mismatched prior value")
		}
	}()
	v := NewValidator[string, int]("t")
	v.Validate(map[string]ValueChange[int]{"a": NewDelta(1, nil)})
	v.Validate(map[string]ValueChange[int]{"a": NewDelta(3, ptr(999))})
}

func TestValidatorRejectsRemoveOfMissingKey(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on removing a key never inserted")
		}
	}()
	v := NewValidator[string, int]("t")
	v.Validate(map[string]ValueChange[int]{"a": NewRemove(1)})
}

func TestRoundTripMaterializeMatchesValidator(t *testing.T) {
	v := NewValidator[string, int]("round-trip")
	state := map[string]int{}

	frames := []map[string]ValueChange[int]{
		{"a": NewDelta(1, nil), "b": NewDelta(2, nil)},
		{"a": NewDelta(5, ptr(1))},
		{"b": NewRemove(2)},
	}
	for _, f := range frames {
		v.Validate(f)
		for k, c := range f {
			Integrate(state, k, c)
		}
	}

	shadow := v.Snapshot()
	if diff := cmp.Diff(state, shadow); diff != "" {
		t.Errorf("materialized view and validator shadow diverge (-materialized +shadow):\n%s", diff)
	}
}

// TestDeltaSoundnessAcrossManyFrames replays a longer sequence and diffs the
// validator's shadow map against a separately materialized view with go-cmp:
// applying the delta stream to an initially-empty view should yield the
// current view at any poll point.
func TestDeltaSoundnessAcrossManyFrames(t *testing.T) {
	v := NewValidator[int, string]("soundness")
	state := map[int]string{}

	frames := []map[int]ValueChange[string]{
		{1: NewDelta("one", nil), 2: NewDelta("two", nil), 3: NewDelta("three", nil)},
		{2: NewDelta("deux", ptr("two"))},
		{1: NewRemove("one")},
		{1: NewDelta("uno", nil), 3: NewDelta("trois", ptr("three"))},
	}
	for _, f := range frames {
		v.Validate(f)
		for k, c := range f {
			Integrate(state, k, c)
		}
		if diff := cmp.Diff(state, v.Snapshot()); diff != "" {
			t.Fatalf("diverged mid-sequence (-materialized +shadow):\n%s", diff)
		}
	}
}
