package query

import "testing"

func TestMapAndFilterMap(t *testing.T) {
	src := FromMap(map[string]int{"a": 1, "b": 2, "c": 3})
	doubled := Map(src, func(v int) int { return v * 2 })
	if v, _ := doubled.Access("b"); v != 4 {
		t.Errorf("expected mapped value 4, got %d", v)
	}

	evensOnly := FilterMap(src, func(v int) (int, bool) { return v, v%2 == 0 })
	if evensOnly.Contains("a") {
		t.Errorf("odd values should be filtered out")
	}
	if !evensOnly.Contains("b") {
		t.Errorf("even values should pass through")
	}
}

func TestFilterMapChangesEmitsRemoveWhenFilteredOut(t *testing.T) {
	changes := FromMap(map[string]ValueChange[int]{
		"a": NewDelta(3, ptr(2)), // was passing (even), now fails (odd)
	})
	out := FilterMapChanges(changes, func(v int) (int, bool) { return v, v%2 == 0 })
	c, ok := out.Access("a")
	if !ok {
		t.Fatalf("expected an emitted change for a filtered-out key")
	}
	if !c.IsRemoved() {
		t.Errorf("expected a Remove when the new value stops passing the filter, got %+v", c)
	}
}

func TestZipOnlyYieldsKeysPresentOnBothSides(t *testing.T) {
	a := FromMap(map[string]int{"x": 1, "y": 2})
	b := FromMap(map[string]string{"x": "one"})
	zipped := Zip(a, b, func(n int, s string) string { return s })
	if zipped.Contains("y") {
		t.Errorf("zip should drop keys missing on either side")
	}
	if v, ok := zipped.Access("x"); !ok || v != "one" {
		t.Errorf("expected zipped value 'one' for shared key, got %v", v)
	}
}

func TestUnionPrefersLeftOnConflict(t *testing.T) {
	a := FromMap(map[string]int{"x": 1})
	b := FromMap(map[string]int{"x": 2, "y": 3})
	u := Union(a, b, func(left, right int) int { return left })
	if v, _ := u.Access("x"); v != 1 {
		t.Errorf("expected left value to win, got %d", v)
	}
	if v, _ := u.Access("y"); v != 3 {
		t.Errorf("expected right-only key to carry through, got %d", v)
	}
}

func TestForkerSharesUpstreamAcrossConsumers(t *testing.T) {
	polls := 0
	f := NewForker[string, int](func() (map[string]int, map[string]ValueChange[int]) {
		polls++
		return map[string]int{"a": polls}, map[string]ValueChange[int]{"a": NewDelta(polls, nil)}
	})

	tok1, q1 := f.Subscribe()
	tok2, q2 := f.Subscribe()

	v1, _ := q1.View().Access("a")
	v2, _ := q2.View().Access("a")
	if v1 != v2 {
		t.Errorf("both consumers should observe the same upstream poll, got %d vs %d", v1, v2)
	}
	if polls != 1 {
		t.Errorf("expected exactly one upstream poll for two subscribers sharing a cache, got %d", polls)
	}

	tok1.Close()
	if f.ConsumerCount() != 1 {
		t.Errorf("expected one remaining consumer after first close")
	}
	tok2.Close()
	if f.ConsumerCount() != 0 {
		t.Errorf("expected zero consumers after both close")
	}
}

func TestMaterializerLinearPreservesInsertionOrder(t *testing.T) {
	m := NewMaterializer[string, int](true)
	m.Apply(map[string]ValueChange[int]{"b": NewDelta(2, nil)})
	m.Apply(map[string]ValueChange[int]{"a": NewDelta(1, nil)})

	var order []string
	m.View().IterKeyValue(func(k string, _ int) bool { order = append(order, k); return true })
	if len(order) != 2 || order[0] != "b" || order[1] != "a" {
		t.Errorf("expected insertion order [b a], got %v", order)
	}
}

func TestRevRefFanout(t *testing.T) {
	// two children point at the same parent target
	fk := NewDualQuery(
		map[string]string{"child1": "parentA", "child2": "parentA"},
		map[string]ValueChange[string]{},
	)
	tri := IntoRevRef(fk)

	ks, ok := tri.InverseView().AccessMulti("parentA")
	if !ok || len(ks) != 2 {
		t.Fatalf("expected two children indexed under parentA, got %v", ks)
	}
}

func TestKeyDualMapRekeysViewAndChanges(t *testing.T) {
	src := NewDualQuery(
		map[int]int{1: 10, 2: 20},
		map[int]ValueChange[int]{2: NewDelta(20, ptr(15))},
	)
	out := KeyDualMap(src,
		func(k int) string { return string(rune('a' + k)) },
		func(k string) int { return int(k[0] - 'a') },
		func(v int) int { return v * 2 },
	)

	if v, ok := out.View().Access("b"); !ok || v != 20 {
		t.Errorf("expected re-keyed view access to yield 20, got %d ok=%v", v, ok)
	}
	c, ok := out.Changes().Access("c")
	if !ok {
		t.Fatalf("expected the change to follow the key mapping")
	}
	if n, _ := c.NewValue(); n != 40 {
		t.Errorf("expected the change's new value mapped to 40, got %d", n)
	}
	if p, _ := c.OldValue(); p != 30 {
		t.Errorf("expected the change's prior mapped to 30, got %d", p)
	}
}

func TestZipChangesThreadsPriorValuesAcrossFrames(t *testing.T) {
	sum := func(a, b int) int { return a + b }
	v := NewValidator[string, int]("zip")

	// frame 1: both sides insert under "x"; the zipped change is an insert
	// with no prior.
	aView := FromMap(map[string]int{"x": 1})
	bView := FromMap(map[string]int{"x": 10})
	frame1 := ZipChanges(
		FromMap(map[string]ValueChange[int]{"x": NewDelta(1, nil)}), aView,
		FromMap(map[string]ValueChange[int]{"x": NewDelta(10, nil)}), bView,
		sum,
	).Materialize()
	c := frame1["x"]
	if !c.IsNewInsert() {
		t.Fatalf("expected an insert with no prior on the first frame, got %+v", c)
	}
	if n, _ := c.NewValue(); n != 11 {
		t.Fatalf("expected zipped insert value 11, got %d", n)
	}
	v.Validate(frame1)

	// frame 2: only side a moves; the prior must be the previously zipped
	// value, with b's contribution read from its unchanged view.
	aView = FromMap(map[string]int{"x": 2})
	frame2 := ZipChanges(
		FromMap(map[string]ValueChange[int]{"x": NewDelta(2, ptr(1))}), aView,
		FromMap(map[string]ValueChange[int]{}), bView,
		sum,
	).Materialize()
	c = frame2["x"]
	if n, _ := c.NewValue(); n != 12 {
		t.Errorf("expected updated zipped value 12, got %d", n)
	}
	if p, ok := c.OldValue(); !ok || p != 11 {
		t.Errorf("expected the update to carry the prior zipped value 11, got %d ok=%v", p, ok)
	}
	v.Validate(frame2)

	// frame 3: side a removes "x"; the zipped key disappears carrying the
	// last zipped value, not a fabricated zero.
	aView = FromMap(map[string]int{})
	frame3 := ZipChanges(
		FromMap(map[string]ValueChange[int]{"x": NewRemove(2)}), aView,
		FromMap(map[string]ValueChange[int]{}), bView,
		sum,
	).Materialize()
	c = frame3["x"]
	if !c.IsRemoved() {
		t.Fatalf("expected a Remove once one zip side loses the key, got %+v", c)
	}
	if p, _ := c.OldValue(); p != 12 {
		t.Errorf("expected the Remove to carry the prior zipped value 12, got %d", p)
	}
	v.Validate(frame3)
}

func TestZipChangesEmitsNothingForNeverZippedKey(t *testing.T) {
	// "y" changes on side a but never had (and still has no) counterpart in
	// b: it was never observable in the zipped space, so no change leaks.
	out := ZipChanges(
		FromMap(map[string]ValueChange[int]{"y": NewDelta(5, nil)}), FromMap(map[string]int{"y": 5}),
		FromMap(map[string]ValueChange[int]{}), FromMap(map[string]int{}),
		func(a, b int) int { return a + b },
	)
	if !out.IsEmpty() {
		t.Errorf("expected no emission for a key absent from the other zip side, got %v", out.Materialize())
	}
}

func TestUnionChangesKeepsKeyAliveOnPartialRemove(t *testing.T) {
	preferLeft := func(a, b int) int { return a }
	v := NewValidator[string, int]("union")

	// frame 1: both sides insert; the union resolves to a's value.
	frame1 := UnionChanges(
		FromMap(map[string]ValueChange[int]{"x": NewDelta(1, nil)}), FromMap(map[string]int{"x": 1}),
		FromMap(map[string]ValueChange[int]{"x": NewDelta(10, nil)}), FromMap(map[string]int{"x": 10}),
		preferLeft,
	).Materialize()
	if n, _ := frame1["x"].NewValue(); n != 1 {
		t.Fatalf("expected the resolver's winner 1, got %d", n)
	}
	v.Validate(frame1)

	// frame 2: a drops "x" but b still holds it — the union updates to b's
	// value instead of removing the key.
	frame2 := UnionChanges(
		FromMap(map[string]ValueChange[int]{"x": NewRemove(1)}), FromMap(map[string]int{}),
		FromMap(map[string]ValueChange[int]{}), FromMap(map[string]int{"x": 10}),
		preferLeft,
	).Materialize()
	c := frame2["x"]
	if c.IsRemoved() {
		t.Fatalf("a key still present on one union side must not be removed")
	}
	if n, _ := c.NewValue(); n != 10 {
		t.Errorf("expected the surviving side's value 10, got %d", n)
	}
	if p, ok := c.OldValue(); !ok || p != 1 {
		t.Errorf("expected the prior union value 1, got %d ok=%v", p, ok)
	}
	v.Validate(frame2)

	// frame 3: b drops it too — now the union removes, carrying b's value
	// as the prior.
	frame3 := UnionChanges(
		FromMap(map[string]ValueChange[int]{}), FromMap(map[string]int{}),
		FromMap(map[string]ValueChange[int]{"x": NewRemove(10)}), FromMap(map[string]int{}),
		preferLeft,
	).Materialize()
	c = frame3["x"]
	if !c.IsRemoved() {
		t.Fatalf("expected a Remove once the last union side loses the key, got %+v", c)
	}
	if p, _ := c.OldValue(); p != 10 {
		t.Errorf("expected the Remove to carry the last union value 10, got %d", p)
	}
	v.Validate(frame3)
}

func TestIntersectChangesMatchesZipChanges(t *testing.T) {
	aChanges := FromMap(map[string]ValueChange[int]{"x": NewDelta(2, ptr(1))})
	aView := FromMap(map[string]int{"x": 2})
	bChanges := FromMap(map[string]ValueChange[int]{})
	bView := FromMap(map[string]int{"x": 10})
	sum := func(a, b int) int { return a + b }

	got := IntersectChanges(aChanges, aView, bChanges, bView, sum).Materialize()
	want := ZipChanges(aChanges, aView, bChanges, bView, sum).Materialize()
	if len(got) != len(want) {
		t.Fatalf("expected intersect deltas to match zip deltas, got %v want %v", got, want)
	}
	gc, wc := got["x"], want["x"]
	gn, _ := gc.NewValue()
	wn, _ := wc.NewValue()
	if gn != wn {
		t.Errorf("expected identical new values, got %+v want %+v", gc, wc)
	}
}
